package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

const (
	DefaultBatchSize       = 10
	DefaultConcurrentLimit = 5
)

// SupportedExtensions are the upload formats the ingest endpoint accepts.
var SupportedExtensions = []string{".json", ".jsonl"}

type Request struct {
	FileName        string
	Content         io.Reader
	BatchSize       int
	ConcurrentLimit int
	// OnProgress, when set, receives every progress frame of the response.
	OnProgress func(Progress) error
}

type Uploader struct {
	gw *gateway.Gateway
}

func NewUploader(gw *gateway.Gateway) *Uploader {
	return &Uploader{gw: gw}
}

// Upload posts a bulk file to /ingest/unified-upload and decodes the final
// result once the response is complete.
func (u *Uploader) Upload(ctx context.Context, req Request) (Result, error) {
	if err := ValidateFileName(req.FileName); err != nil {
		return Result{}, err
	}
	if req.Content == nil {
		return Result{}, apierror.Validation("file", "no content")
	}
	batchSize, err := positiveOr(req.BatchSize, DefaultBatchSize, "batchSize")
	if err != nil {
		return Result{}, err
	}
	concurrent, err := positiveOr(req.ConcurrentLimit, DefaultConcurrentLimit, "concurrentLimit")
	if err != nil {
		return Result{}, err
	}

	body, contentType, err := buildForm(req.FileName, req.Content, batchSize, concurrent)
	if err != nil {
		return Result{}, err
	}

	resp, err := u.gw.Call(ctx, gateway.Request{
		Method:      http.MethodPost,
		Endpoint:    "/ingest/unified-upload",
		RawBody:     body,
		ContentType: contentType,
	})
	if err != nil {
		return Result{}, err
	}

	if req.OnProgress != nil {
		if err := Scan(bytes.NewReader(resp.Body), req.OnProgress); err != nil {
			return Result{}, err
		}
	}

	result := Decode(resp.Body)
	logger.Info("Upload completed",
		zap.String("file", filepath.Base(req.FileName)),
		zap.String("result_source", string(result.Source)),
		zap.Duration("duration", resp.Duration),
	)
	return result, nil
}

// UploadFile opens path and uploads it.
func (u *Uploader) UploadFile(ctx context.Context, path string, req Request) (Result, error) {
	if err := ValidateFileName(path); err != nil {
		return Result{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open upload file: %w", err)
	}
	defer f.Close()

	req.FileName = filepath.Base(path)
	req.Content = f
	return u.Upload(ctx, req)
}

// ValidateFileName rejects files the ingest endpoint cannot parse.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apierror.Validation("file", "file name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, ok := range SupportedExtensions {
		if ext == ok {
			return nil
		}
	}
	return apierror.Validation("file", "unsupported format %q, expected one of %s", ext, strings.Join(SupportedExtensions, ", "))
}

func buildForm(name string, content io.Reader, batchSize, concurrent int) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := w.WriteField("batch_size", strconv.Itoa(batchSize)); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("concurrent_limit", strconv.Itoa(concurrent)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func positiveOr(v, def int, field string) (int, error) {
	switch {
	case v == 0:
		return def, nil
	case v < 0:
		return 0, apierror.Validation(field, "must be positive, got %d", v)
	default:
		return v, nil
	}
}

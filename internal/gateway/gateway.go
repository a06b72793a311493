package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/metrics"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/circuitbreaker"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

const defaultMaxResponseBytes = 32 << 20

// Request describes one outbound call. Endpoint is relative to the base URL
// and must already be path-escaped. Route is the endpoint template used for
// metric labels; it defaults to Endpoint.
type Request struct {
	Method      string
	Endpoint    string
	Route       string
	Query       url.Values
	Body        any
	RawBody     io.Reader
	ContentType string
	Headers     map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// CallRecord is the diagnostic summary of one call handed to observers.
type CallRecord struct {
	RequestID  string
	Method     string
	Endpoint   string
	Route      string
	StatusCode int
	Duration   time.Duration
	Outcome    string
	Error      string
	At         time.Time
}

const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeUnreachable = "unreachable"
)

// Observer receives a record of every call. Its failures are logged and
// otherwise ignored.
type Observer interface {
	ObserveCall(ctx context.Context, record CallRecord) error
}

type Options struct {
	BaseURL       string
	Timeout       time.Duration
	DefaultUserID string
	UserAgent     string
	HTTPClient    *http.Client
	Breaker       *circuitbreaker.CircuitBreaker
	Observers     []Observer

	// MaxResponseBytes caps a response body; larger bodies fail the call.
	// Defaults to 32 MiB.
	MaxResponseBytes int64
}

// Gateway is the single chokepoint for calls to the review service. It holds
// no per-call state.
type Gateway struct {
	baseURL       string
	httpClient    *http.Client
	defaultUserID string
	userAgent     string
	breaker       *circuitbreaker.CircuitBreaker
	observers     []Observer
	maxBody       int64
}

var errServerSide = errors.New("server-side failure")

// ErrResponseTooLarge wraps the cause of an UnreachableError when a response
// body exceeds the configured cap.
var ErrResponseTooLarge = errors.New("response body too large")

func New(opts Options) (*Gateway, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "review-console/1"
	}

	maxBody := opts.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBytes
	}

	return &Gateway{
		maxBody:       maxBody,
		baseURL:       base,
		httpClient:    httpClient,
		defaultUserID: opts.DefaultUserID,
		userAgent:     userAgent,
		breaker:       opts.Breaker,
		observers:     opts.Observers,
	}, nil
}

func (g *Gateway) BaseURL() string {
	return g.baseURL
}

// DefaultUserID is the configured acting user for calls that omit one.
func (g *Gateway) DefaultUserID() string {
	return g.defaultUserID
}

// Call performs req. Non-2xx responses fail with *apierror.RequestFailedError
// carrying the body text; transport failures fail with
// *apierror.UnreachableError.
func (g *Gateway) Call(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	route := req.Route
	if route == "" {
		route = req.Endpoint
	}

	requestID := uuid.NewString()
	start := time.Now()

	httpReq, err := g.newRequest(ctx, method, req, requestID)
	if err != nil {
		return nil, err
	}

	var resp *Response
	var transportErr error

	send := func() error {
		resp, transportErr = g.send(httpReq)
		if transportErr != nil {
			return transportErr
		}
		if resp.StatusCode >= 500 {
			return errServerSide
		}
		return nil
	}

	if g.breaker != nil {
		if berr := g.breaker.Execute(ctx, send); berr != nil && resp == nil && transportErr == nil {
			transportErr = berr
		}
	} else {
		_ = send()
	}

	duration := time.Since(start)
	record := CallRecord{
		RequestID: requestID,
		Method:    method,
		Endpoint:  req.Endpoint,
		Route:     route,
		Duration:  duration,
		At:        start,
	}

	if transportErr != nil {
		record.Outcome = OutcomeUnreachable
		record.Error = transportErr.Error()
		g.observe(ctx, record)

		logger.Warn("Backend unreachable",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("endpoint", req.Endpoint),
			zap.Duration("duration", duration),
			zap.Error(transportErr),
		)
		return nil, &apierror.UnreachableError{Endpoint: req.Endpoint, Cause: transportErr}
	}

	resp.Duration = duration
	record.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		failed := &apierror.RequestFailedError{
			Method:     method,
			Endpoint:   req.Endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
		record.Outcome = OutcomeFailed
		record.Error = failed.Error()
		g.observe(ctx, record)

		logger.Warn("Backend call failed",
			zap.String("request_id", requestID),
			zap.String("method", method),
			zap.String("endpoint", req.Endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", duration),
			zap.String("body", truncate(failed.Body, 512)),
		)
		return nil, failed
	}

	record.Outcome = OutcomeSuccess
	g.observe(ctx, record)

	logger.Debug("Backend call completed",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", req.Endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// CallJSON performs req and decodes a non-empty response body into out.
func (g *Gateway) CallJSON(ctx context.Context, req Request, out any) error {
	resp, err := g.Call(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.Endpoint, err)
	}
	return nil
}

func (g *Gateway) newRequest(ctx context.Context, method string, req Request, requestID string) (*http.Request, error) {
	target := g.baseURL + "/" + strings.TrimLeft(req.Endpoint, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := req.ContentType

	switch {
	case req.RawBody != nil:
		body = req.RawBody
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

func (g *Gateway) send(httpReq *http.Request) (*Response, error) {
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > g.maxBody {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, g.maxBody)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (g *Gateway) observe(ctx context.Context, record CallRecord) {
	metrics.GatewayRequestDuration.WithLabelValues(record.Method, record.Route).Observe(record.Duration.Seconds())
	metrics.GatewayRequestTotal.WithLabelValues(record.Method, record.Route, outcomeLabel(record)).Inc()

	for _, observer := range g.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Debug("Call observer panicked", zap.Any("panic", r))
				}
			}()
			if err := observer.ObserveCall(ctx, record); err != nil {
				logger.Debug("Call observer failed", zap.Error(err))
			}
		}()
	}
}

func outcomeLabel(record CallRecord) string {
	if record.StatusCode == 0 {
		return record.Outcome
	}
	return strconv.Itoa(record.StatusCode/100) + "xx"
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

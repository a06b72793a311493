package devapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/ingest"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

const maxBatchSize = 1000

// Upload ingests a .json or .jsonl file and streams one "data:" frame per
// batch. Records inside a batch are processed concurrently up to
// concurrent_limit.
func (h *Handler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "file is required")
	}
	if err := ingest.ValidateFileName(fh.Filename); err != nil {
		return detail(c, fiber.StatusBadRequest, "Only .json and .jsonl files are supported")
	}

	batchSize, err := formInt(c, "batch_size", ingest.DefaultBatchSize)
	if err != nil || batchSize > maxBatchSize {
		return detail(c, fiber.StatusBadRequest, "batch_size must be between 1 and "+strconv.Itoa(maxBatchSize))
	}
	concurrent, err := formInt(c, "concurrent_limit", ingest.DefaultConcurrentLimit)
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "concurrent_limit must be positive")
	}

	f, err := fh.Open()
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "Unable to read upload")
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return detail(c, fiber.StatusBadRequest, "Unable to read upload")
	}

	raws, err := ingest.ExtractRecords(fh.Filename, data)
	if err != nil {
		return detail(c, fiber.StatusBadRequest, err.Error())
	}
	if len(raws) == 0 {
		return detail(c, fiber.StatusBadRequest, "No records found in file")
	}

	logger.Info("Upload accepted",
		zap.String("file", fh.Filename),
		zap.Int("records", len(raws)),
		zap.Int("batch_size", batchSize),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		h.streamBatches(w, raws, batchSize, concurrent)
	})
	return nil
}

func (h *Handler) streamBatches(w *bufio.Writer, raws []map[string]any, batchSize, concurrent int) {
	total := len(raws)
	totalBatches := (total + batchSize - 1) / batchSize
	processed, errs := 0, 0
	started := time.Now()

	for b := 0; b < totalBatches; b++ {
		batchStart := time.Now()
		lo := b * batchSize
		hi := min(lo+batchSize, total)

		items := h.processBatch(raws[lo:hi], lo, concurrent)
		for _, it := range items {
			if it.Status != "success" {
				errs++
			}
		}
		processed += len(items)

		elapsed := time.Since(started).Seconds()
		remaining := 0.0
		if processed < total {
			remaining = elapsed / float64(processed) * float64(total-processed)
		}

		frame := ingest.Progress{
			BatchNumber:            b + 1,
			TotalBatches:           totalBatches,
			ProcessedInBatch:       len(items),
			TotalProcessed:         processed,
			TotalRecords:           total,
			ProgressPercentage:     round1(float64(processed) / float64(total) * 100),
			BatchProcessingTimeMS:  round1(float64(time.Since(batchStart).Microseconds()) / 1000),
			EstimatedRemainingSecs: round1(remaining),
			BatchResults:           items,
			ProcessingStats: ingest.Stats{
				TotalProcessed: processed,
				TotalErrors:    errs,
				SuccessRate:    round1(float64(processed-errs) / float64(processed) * 100),
			},
		}

		payload, err := json.Marshal(frame)
		if err != nil {
			logger.Error("Failed to encode progress frame", zap.Error(err))
			return
		}
		fmt.Fprintf(w, "%s %s\n\n", ingest.Marker, payload)
		if err := w.Flush(); err != nil {
			logger.Warn("Upload client went away", zap.Int("batch", b+1), zap.Error(err))
			return
		}
	}
}

func (h *Handler) processBatch(raws []map[string]any, offset, concurrent int) []ingest.BatchItem {
	items := make([]ingest.BatchItem, len(raws))

	var g errgroup.Group
	g.SetLimit(concurrent)
	for i, raw := range raws {
		g.Go(func() error {
			items[i] = h.ingestOne(raw, offset+i)
			return nil
		})
	}
	_ = g.Wait()

	return items
}

func (h *Handler) ingestOne(raw map[string]any, index int) ingest.BatchItem {
	rec, err := normalizeUpload(raw, index)
	if err != nil {
		return ingest.BatchItem{Status: "error", RecordID: firstString(raw, idFields), Error: err.Error()}
	}

	stored := h.store.Insert(rec)
	result, _ := json.Marshal(map[string]any{
		"id":           stored.ID,
		"status":       stored.Status,
		"qualityScore": stored.QualityScore,
	})
	return ingest.BatchItem{Status: "success", RecordID: stored.RecordID, Result: result}
}

func formInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := c.FormValue(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

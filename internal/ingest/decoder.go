package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/metrics"
)

// Marker prefixes every progress frame of the upload stream.
const Marker = "data:"

const maxFrameBytes = 8 << 20

type Source string

const (
	// SourceFrame: the last marked line that held valid JSON.
	SourceFrame Source = "frame"
	// SourceBody: no frame parsed, the whole body did.
	SourceBody Source = "body"
	// SourceAck: nothing parsed; a generic acknowledgment was substituted.
	SourceAck Source = "ack"
)

var genericAck = json.RawMessage(`{"success":true,"message":"Upload completed"}`)

// Result is the decoded final payload of an upload response.
type Result struct {
	Payload json.RawMessage
	Source  Source
}

// Into unmarshals the payload into out.
func (r Result) Into(out any) error {
	if err := json.Unmarshal(r.Payload, out); err != nil {
		return fmt.Errorf("failed to decode upload result: %w", err)
	}
	return nil
}

// Decode extracts the final result of an upload response. It never fails:
// marked lines are tried from the last one backwards, then the whole body,
// and if neither parses a generic acknowledgment is returned.
func Decode(raw []byte) Result {
	lines := strings.Split(string(raw), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		payload, ok := framePayload(lines[i])
		if !ok {
			continue
		}
		if json.Valid(payload) {
			return record(Result{Payload: payload, Source: SourceFrame})
		}
	}

	if body := bytes.TrimSpace(raw); len(body) > 0 && json.Valid(body) {
		return record(Result{Payload: json.RawMessage(body), Source: SourceBody})
	}

	ack := make(json.RawMessage, len(genericAck))
	copy(ack, genericAck)
	return record(Result{Payload: ack, Source: SourceAck})
}

func framePayload(line string) (json.RawMessage, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Marker) {
		return nil, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, Marker))
	if payload == "" {
		return nil, false
	}
	return json.RawMessage(payload), true
}

func record(r Result) Result {
	metrics.UploadDecodes.WithLabelValues(string(r.Source)).Inc()
	return r
}

// BatchItem is the per-record outcome inside a progress frame.
type BatchItem struct {
	Status   string          `json:"status"`
	RecordID string          `json:"record_id"`
	Error    string          `json:"error,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

type Stats struct {
	TotalProcessed int     `json:"total_processed"`
	TotalErrors    int     `json:"total_errors"`
	SuccessRate    float64 `json:"success_rate"`
}

// Progress is one batch frame of the upload stream.
type Progress struct {
	BatchNumber            int         `json:"batch_number"`
	TotalBatches           int         `json:"total_batches"`
	ProcessedInBatch       int         `json:"processed_in_batch"`
	TotalProcessed         int         `json:"total_processed"`
	TotalRecords           int         `json:"total_records"`
	ProgressPercentage     float64     `json:"progress_percentage"`
	BatchProcessingTimeMS  float64     `json:"batch_processing_time_ms"`
	EstimatedRemainingSecs float64     `json:"estimated_time_remaining_seconds"`
	BatchResults           []BatchItem `json:"batch_results"`
	ProcessingStats        Stats       `json:"processing_stats"`
}

// Done reports whether this frame covers the last record.
func (p Progress) Done() bool {
	return p.TotalRecords > 0 && p.TotalProcessed >= p.TotalRecords
}

// Scan reads the stream front to back and hands every progress frame to fn.
// Lines that are not frames, or frames that do not parse, are skipped. An
// error from fn stops the scan and is returned.
func Scan(r io.Reader, fn func(Progress) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxFrameBytes)

	for scanner.Scan() {
		payload, ok := framePayload(scanner.Text())
		if !ok {
			continue
		}
		var p Progress
		if err := json.Unmarshal(payload, &p); err != nil {
			continue
		}
		if p.TotalBatches == 0 && p.BatchNumber == 0 {
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read upload stream: %w", err)
	}
	return nil
}

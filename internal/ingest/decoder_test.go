package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		source  Source
		payload string
	}{
		{"last marked line wins", "data: {\"a\":1}\ndata: {\"a\":2}\n", SourceFrame, `{"a":2}`},
		{"broken tail frame skipped", "data: {\"a\":1}\n\ndata: {\"a\":\n", SourceFrame, `{"a":1}`},
		{"blank lines between frames", "data: {\"a\":1}\n\ndata: {\"a\":3}\n\n", SourceFrame, `{"a":3}`},
		{"marker without space", "data:{\"done\":true}", SourceFrame, `{"done":true}`},
		{"unmarked body", "  {\"success\":true,\"processed\":4}\n", SourceBody, `{"success":true,"processed":4}`},
		{"garbage", "garbage", SourceAck, string(genericAck)},
		{"empty", "", SourceAck, string(genericAck)},
		{"only broken frames", "data: nope\ndata: {", SourceAck, string(genericAck)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode([]byte(tc.body))
			assert.Equal(t, tc.source, got.Source)
			assert.JSONEq(t, tc.payload, string(got.Payload))
		})
	}
}

func TestDecodeInto(t *testing.T) {
	t.Parallel()

	var out struct {
		A int `json:"a"`
	}
	require.NoError(t, Decode([]byte("data: {\"a\":1}\ndata: {\"a\":2}\n")).Into(&out))
	assert.Equal(t, 2, out.A)

	var ack struct {
		Success bool `json:"success"`
	}
	require.NoError(t, Decode([]byte("garbage")).Into(&ack))
	assert.True(t, ack.Success)
}

const stream = `data: {"batch_number":1,"total_batches":2,"processed_in_batch":2,"total_processed":2,"total_records":3,"progress_percentage":66.67,"batch_results":[{"status":"success","record_id":"a"},{"status":"error","record_id":"b","error":"empty content"}],"processing_stats":{"total_processed":1,"total_errors":1,"success_rate":50}}

: keep-alive
data: not json

data: {"batch_number":2,"total_batches":2,"processed_in_batch":1,"total_processed":3,"total_records":3,"progress_percentage":100,"batch_results":[{"status":"success","record_id":"c"}],"processing_stats":{"total_processed":2,"total_errors":1,"success_rate":66.67}}
`

func TestScanYieldsFramesInOrder(t *testing.T) {
	t.Parallel()

	var frames []Progress
	err := Scan(strings.NewReader(stream), func(p Progress) error {
		frames = append(frames, p)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, 1, frames[0].BatchNumber)
	assert.False(t, frames[0].Done())
	require.Len(t, frames[0].BatchResults, 2)
	assert.Equal(t, "empty content", frames[0].BatchResults[1].Error)

	assert.True(t, frames[1].Done())
	assert.Equal(t, 100.0, frames[1].ProgressPercentage)
	assert.Equal(t, 1, frames[1].ProcessingStats.TotalErrors)
}

func TestScanStopsOnCallbackError(t *testing.T) {
	t.Parallel()

	stop := errors.New("stop")
	calls := 0
	err := Scan(strings.NewReader(stream), func(Progress) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

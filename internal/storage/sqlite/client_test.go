package sqlite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
)

func newJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := NewJournal(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordsGatewayCalls(t *testing.T) {
	j := newJournal(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/records/missing/approve" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer srv.Close()

	gw, err := gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Observers: []gateway.Observer{j}})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = gw.Call(ctx, gateway.Request{Endpoint: "/health"})
	require.NoError(t, err)
	_, err = gw.Call(ctx, gateway.Request{Method: http.MethodPost, Endpoint: "/records/missing/approve", Route: "/records/{id}/approve"})
	require.Error(t, err)

	calls, err := j.RecentCalls(ctx, 10)
	require.NoError(t, err)
	require.Len(t, calls, 2)

	byRoute := map[string]gateway.CallRecord{}
	for _, c := range calls {
		byRoute[c.Route] = c
	}
	assert.Equal(t, gateway.OutcomeSuccess, byRoute["/health"].Outcome)
	assert.Equal(t, http.StatusOK, byRoute["/health"].StatusCode)
	assert.Empty(t, byRoute["/health"].Error)

	failed := byRoute["/records/{id}/approve"]
	assert.Equal(t, gateway.OutcomeFailed, failed.Outcome)
	assert.Equal(t, "/records/missing/approve", failed.Endpoint)
	assert.NotEmpty(t, failed.RequestID)
}

func TestJournalStatsAndPrune(t *testing.T) {
	j := newJournal(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	now := time.Now()

	records := []gateway.CallRecord{
		{RequestID: "1", Method: "GET", Endpoint: "/records", Route: "/records", StatusCode: 200, Outcome: gateway.OutcomeSuccess, Duration: 10 * time.Millisecond, At: now},
		{RequestID: "2", Method: "GET", Endpoint: "/records", Route: "/records", StatusCode: 500, Outcome: gateway.OutcomeFailed, Duration: 30 * time.Millisecond, At: now},
		{RequestID: "3", Method: "GET", Endpoint: "/health", Route: "/health", Outcome: gateway.OutcomeUnreachable, Error: "refused", At: now},
		{RequestID: "4", Method: "GET", Endpoint: "/health", Route: "/health", StatusCode: 200, Outcome: gateway.OutcomeSuccess, At: old},
	}
	for _, r := range records {
		require.NoError(t, j.ObserveCall(ctx, r))
	}

	stats, err := j.Stats(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "/records", stats[0].Route)
	assert.Equal(t, 2, stats[0].Calls)
	assert.Equal(t, 1, stats[0].Failures)
	assert.InDelta(t, 20.0, stats[0].AvgLatencyMS, 0.001)
	assert.Equal(t, 1, stats[1].Unreachable)

	n, err := j.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	calls, err := j.RecentCalls(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, calls, 3)
}

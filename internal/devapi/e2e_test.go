package devapi_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/cache"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/devapi"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/ingest"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/models"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/records"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/status"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/thresholds"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

func startBackend(t *testing.T) *gateway.Gateway {
	t.Helper()

	store := devapi.NewStore()
	store.Seed()
	app, stop := devapi.NewApp(devapi.AppConfig{BodyLimit: 4 << 20}, store)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() {
		_ = app.Shutdown()
		stop()
	})

	gw, err := gateway.New(gateway.Options{
		BaseURL:       "http://" + ln.Addr().String(),
		Timeout:       5 * time.Second,
		DefaultUserID: "reviewer",
	})
	require.NoError(t, err)
	return gw
}

func TestRecordsAgainstBackend(t *testing.T) {
	gw := startBackend(t)
	ctx := context.Background()
	ctrl := records.NewController(gw, records.WithCache(cache.NewMemory(), time.Minute))

	page, err := ctrl.List(ctx, models.Filter{Connectors: []string{"GDrive"}}, models.Pagination{PageSize: 2, SortBy: "recordId", SortOrder: models.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "rec-004", page.Data[0].RecordID)

	beyond, err := ctrl.List(ctx, models.Filter{Connectors: []string{"GDrive"}}, models.Pagination{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
	assert.Equal(t, 2, beyond.Pagination.TotalPages)

	first, err := ctrl.Approve(ctx, "rec-001", records.ActionOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, first.Record.Status)
	assert.Equal(t, "reviewer", first.Audit.UserID)

	again, err := ctrl.Approve(ctx, "rec-001", records.ActionOptions{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, again.Record.Status)

	trail, err := ctrl.AuditTrail(ctx, "rec-001")
	require.NoError(t, err)
	assert.Len(t, trail, 2)

	_, err = ctrl.Approve(ctx, "rec-006", records.ActionOptions{})
	require.ErrorIs(t, err, apierror.ErrInvalidTransition)

	_, err = ctrl.Flag(ctx, "no-such-record", records.ActionOptions{})
	require.ErrorIs(t, err, apierror.ErrNotFound)

	_, err = ctrl.Override(ctx, "rec-001", records.ActionOptions{Reason: "  "})
	require.ErrorIs(t, err, apierror.ErrValidation)

	flipped, err := ctrl.Override(ctx, "rec-001", records.ActionOptions{Reason: "second look"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFlagged, flipped.Record.Status)

	edited, err := ctrl.EditContent(ctx, "rec-001", records.ContentChange{
		Content: "Quarterly budget forecast, revised for Q3.",
		Tags:    []string{"budget", " forecast", "budget"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFlagged, edited.Record.Status)
	assert.Equal(t, []string{"budget", "forecast"}, edited.Record.Tags)
}

func TestThresholdsAgainstBackend(t *testing.T) {
	gw := startBackend(t)
	ctx := context.Background()
	client := thresholds.NewClient(gw, thresholds.WithCache(cache.NewMemory(), time.Minute))

	all, err := client.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 11)

	_, err = client.Update(ctx, thresholds.UpdateRequest{Name: "spam_threshold", NewValue: 3})
	require.ErrorIs(t, err, thresholds.ErrOutOfRange)

	history := client.History(ctx, "spam_threshold")
	require.False(t, history.IsFallback())
	assert.Empty(t, history.Value)

	result, err := client.Update(ctx, thresholds.UpdateRequest{Name: "spam_threshold", NewValue: 0.5, Reason: "tune"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0.3, result.OldValue)

	listed, err := client.List(ctx, "content")
	require.NoError(t, err)
	for _, th := range listed {
		if th.Name == "spam_threshold" {
			assert.Equal(t, 0.5, th.CurrentValue)
		}
	}

	history = client.History(ctx, "spam_threshold")
	require.Len(t, history.Value, 1)

	reset, err := client.Reset(ctx, "spam_threshold", "")
	require.NoError(t, err)
	assert.Equal(t, 0.3, reset.CurrentValue)

	listed, err = client.List(ctx, "content")
	require.NoError(t, err)
	found := false
	for _, th := range listed {
		if th.Name == "spam_threshold" {
			found = true
			assert.Equal(t, th.DefaultValue, th.CurrentValue)
		}
	}
	assert.True(t, found)

	history = client.History(ctx, "spam_threshold")
	require.Len(t, history.Value, 2)
	last := history.Value[len(history.Value)-1]
	assert.Equal(t, reset.DefaultValue, last.NewValue)
	assert.Equal(t, 0.5, last.OldValue)

	results := client.ResetMany(ctx, []string{"min_tag_count", "missing", "max_tag_count"}, "")
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, apierror.ErrNotFound)
	assert.NoError(t, results[2].Err)
	assert.Len(t, client.History(ctx, "max_tag_count").Value, 1)
}

func TestStatusAgainstBackend(t *testing.T) {
	gw := startBackend(t)
	ctx := context.Background()
	reader := status.NewReader(gw)

	health := reader.Health(ctx)
	assert.False(t, health.IsFallback())
	assert.Equal(t, "healthy", health.Value.Status)

	opts := reader.FilterOptions(ctx)
	assert.False(t, opts.IsFallback())
	assert.NotEmpty(t, opts.Value.Companies)

	llm := reader.LLMSettings(ctx)
	assert.False(t, llm.IsFallback())
	assert.Equal(t, 0.6, llm.Value.ConfidenceThreshold)
}

func TestHealthFallsBackWhenBackendDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	gw, err := gateway.New(gateway.Options{BaseURL: "http://" + addr, Timeout: time.Second})
	require.NoError(t, err)

	health := status.NewReader(gw).Health(context.Background())
	assert.True(t, health.IsFallback())
	assert.Equal(t, status.HealthOffline, health.Value.Status)
	assert.ErrorIs(t, health.Cause, apierror.ErrUnreachable)
}

func TestUploadAgainstBackend(t *testing.T) {
	gw := startBackend(t)
	ctx := context.Background()

	body := `[{"id":"bulk-1","content":"Release checklist for the mobile app store submission.","tags":["release","mobile"]},
{"id":"bulk-2","content":"Office move logistics for the Denver team in June."}]`

	var frames []ingest.Progress
	result, err := ingest.NewUploader(gw).Upload(ctx, ingest.Request{
		FileName:  "docs.json",
		Content:   strings.NewReader(body),
		BatchSize: 1,
		OnProgress: func(p ingest.Progress) error {
			frames = append(frames, p)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ingest.SourceFrame, result.Source)
	assert.Len(t, frames, 2)

	var final ingest.Progress
	require.NoError(t, result.Into(&final))
	assert.True(t, final.Done())
	assert.Equal(t, 0, final.ProcessingStats.TotalErrors)

	ctrl := records.NewController(gw)
	page, err := ctrl.List(ctx, models.Filter{Search: "bulk-"}, models.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.Total)
}

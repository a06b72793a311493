package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/gateway"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

func newReader(t *testing.T, baseURL string) *Reader {
	t.Helper()
	gw, err := gateway.New(gateway.Options{BaseURL: baseURL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return NewReader(gw)
}

func deadBackend(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestHealthOfflineWhenUnreachable(t *testing.T) {
	t.Parallel()

	r := newReader(t, deadBackend(t))
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	out := r.Health(context.Background())
	require.True(t, out.IsFallback())
	assert.Equal(t, HealthOffline, out.Value.Status)
	assert.Equal(t, fixed, out.Value.Timestamp)
	assert.ErrorIs(t, out.Cause, apierror.ErrUnreachable)
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","timestamp":"2026-06-01T12:00:00Z","version":"2.1.0"}`))
	}))
	defer srv.Close()

	out := newReader(t, srv.URL).Health(context.Background())
	require.False(t, out.IsFallback())
	assert.Equal(t, "healthy", out.Value.Status)
	assert.Equal(t, "2.1.0", out.Value.Version)
}

func TestFallbackPayloadsAreStructurallyComplete(t *testing.T) {
	t.Parallel()

	r := newReader(t, deadBackend(t))

	opts := r.FilterOptions(context.Background())
	require.True(t, opts.IsFallback())
	assert.Equal(t, []string{"SharePoint", "Confluence", "Notion", "GDrive"}, opts.Value.Connectors)
	assert.Len(t, opts.Value.Statuses, 5)
	assert.Len(t, opts.Value.Priorities, 4)
	assert.NotNil(t, opts.Value.Companies)
	assert.NotNil(t, opts.Value.Tags)
	assert.NotNil(t, opts.Value.Authors)

	llm := r.LLMSettings(context.Background())
	require.True(t, llm.IsFallback())
	assert.False(t, llm.Value.Enabled)
	assert.Equal(t, DefaultLLMSettings(), llm.Value)
}

func TestFilterOptionsLiveFillsMissingVocabularies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/filter-options", r.URL.Path)
		_, _ = w.Write([]byte(`{"companies":[{"id":"c1","name":"Acme"}],"tags":["finance"]}`))
	}))
	defer srv.Close()

	out := newReader(t, srv.URL).FilterOptions(context.Background())
	require.False(t, out.IsFallback())
	assert.Equal(t, "Acme", out.Value.Companies[0].Name)
	assert.Equal(t, []string{"finance"}, out.Value.Tags)
	assert.Len(t, out.Value.Connectors, 4)
}

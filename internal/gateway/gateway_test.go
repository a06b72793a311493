package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/circuitbreaker"
)

type recordingObserver struct {
	mu      sync.Mutex
	records []CallRecord
	err     error
	panics  bool
}

func (o *recordingObserver) ObserveCall(_ context.Context, record CallRecord) error {
	o.mu.Lock()
	o.records = append(o.records, record)
	o.mu.Unlock()
	if o.panics {
		panic("observer exploded")
	}
	return o.err
}

func newGateway(t *testing.T, baseURL string, opts ...func(*Options)) *Gateway {
	t.Helper()

	o := Options{BaseURL: baseURL, Timeout: 5 * time.Second, DefaultUserID: "reviewer"}
	for _, fn := range opts {
		fn(&o)
	}

	g, err := New(o)
	require.NoError(t, err)
	return g
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{BaseURL: ""})
	require.Error(t, err)

	_, err = New(Options{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestCallJSONSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/records/r%201/approve", r.URL.EscapedPath())
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "yes", r.Header.Get("X-Trace"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["user_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL+"/")

	var out struct {
		OK bool `json:"ok"`
	}
	err := g.CallJSON(context.Background(), Request{
		Method:   http.MethodPost,
		Endpoint: "/records/" + url.PathEscape("r 1") + "/approve",
		Query:    url.Values{"page": {"2"}},
		Body:     map[string]string{"user_id": "u1"},
		Headers:  map[string]string{"X-Trace": "yes"},
	}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "reviewer", g.DefaultUserID())
}

func TestCallNonSuccessCapturesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"threshold changed concurrently"}`))
	}))
	defer srv.Close()

	g := newGateway(t, srv.URL)

	_, err := g.Call(context.Background(), Request{Method: http.MethodPut, Endpoint: "/thresholds/spam_threshold"})
	require.ErrorIs(t, err, apierror.ErrRequestFailed)

	var failed *apierror.RequestFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, http.StatusConflict, failed.StatusCode)
	assert.Equal(t, `{"detail":"threshold changed concurrently"}`, failed.Body)
	assert.Equal(t, "threshold changed concurrently", err.Error())
}

func TestCallUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	observer := &recordingObserver{}
	g := newGateway(t, base, func(o *Options) { o.Observers = []Observer{observer} })

	_, err := g.Call(context.Background(), Request{Endpoint: "/health"})
	require.ErrorIs(t, err, apierror.ErrUnreachable)

	require.Len(t, observer.records, 1)
	assert.Equal(t, OutcomeUnreachable, observer.records[0].Outcome)
	assert.Equal(t, 0, observer.records[0].StatusCode)
}

func TestObserverFailuresDoNotAffectCalls(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	failing := &recordingObserver{err: errors.New("disk full")}
	panicking := &recordingObserver{panics: true}
	g := newGateway(t, srv.URL, func(o *Options) { o.Observers = []Observer{failing, panicking} })

	resp, err := g.Call(context.Background(), Request{Endpoint: "/health", Route: "/health"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, failing.records, 1)
	assert.Equal(t, OutcomeSuccess, failing.records[0].Outcome)
	assert.Equal(t, http.MethodGet, failing.records[0].Method)
	require.Len(t, panicking.records, 1)
}

func TestCallRespectsCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := newGateway(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Call(ctx, Request{Endpoint: "/records"})
	require.ErrorIs(t, err, apierror.ErrUnreachable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBreakerFailsFastWhenOpen(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	breaker := circuitbreaker.NewCircuitBreaker("backend", circuitbreaker.Config{
		FailureThreshold: 1,
		Timeout:          time.Minute,
	})
	g := newGateway(t, srv.URL, func(o *Options) { o.Breaker = breaker })

	_, err := g.Call(context.Background(), Request{Endpoint: "/records"})
	require.ErrorIs(t, err, apierror.ErrRequestFailed)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, err = g.Call(context.Background(), Request{Endpoint: "/records"})
	require.ErrorIs(t, err, apierror.ErrUnreachable)
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	breaker := circuitbreaker.NewCircuitBreaker("backend", circuitbreaker.Config{FailureThreshold: 1})
	g := newGateway(t, srv.URL, func(o *Options) { o.Breaker = breaker })

	for i := 0; i < 3; i++ {
		_, err := g.Call(context.Background(), Request{Endpoint: "/records/missing/approve"})
		require.ErrorIs(t, err, apierror.ErrRequestFailed)
	}
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

func TestOversizedResponseFailsInsteadOfTruncating(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Query().Get("payload")))
	}))
	t.Cleanup(srv.Close)

	g := newGateway(t, srv.URL, func(o *Options) { o.MaxResponseBytes = 8 })

	resp, err := g.Call(context.Background(), Request{Endpoint: "/echo", Query: url.Values{"payload": {"12345678"}}})
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(resp.Body))

	_, err = g.Call(context.Background(), Request{Endpoint: "/echo", Query: url.Values{"payload": {"123456789"}}})
	require.ErrorIs(t, err, ErrResponseTooLarge)
	assert.ErrorIs(t, err, apierror.ErrUnreachable)
}

func TestTruncateKeepsWholeRunes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héé", truncate("hééllo", 3))
	assert.Equal(t, "日本", truncate("日本語", 2))
	assert.True(t, utf8.ValidString(truncate("ééééé", 3)))
}

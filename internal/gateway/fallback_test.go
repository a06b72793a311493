package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
)

type healthPayload struct {
	Status string `json:"status"`
}

func TestWithFallbackLiveBranch(t *testing.T) {
	t.Parallel()

	out := WithFallback(context.Background(), "health",
		func(context.Context) (healthPayload, error) { return healthPayload{Status: "healthy"}, nil },
		func() healthPayload { return healthPayload{Status: "offline"} },
	)

	assert.False(t, out.IsFallback())
	assert.Equal(t, SourceLive, out.Source)
	assert.Equal(t, "healthy", out.Value.Status)
	assert.NoError(t, out.Cause)
}

func TestWithFallbackSubstitutesOnAnyError(t *testing.T) {
	t.Parallel()

	failures := []error{
		&apierror.UnreachableError{Endpoint: "/health", Cause: errors.New("connection refused")},
		&apierror.RequestFailedError{StatusCode: 500, Body: "boom"},
		errors.New("decode failure"),
	}

	for _, failure := range failures {
		calls := 0
		out := WithFallback(context.Background(), "health",
			func(context.Context) (healthPayload, error) {
				calls++
				return healthPayload{}, failure
			},
			func() healthPayload { return healthPayload{Status: "offline"} },
		)

		require.True(t, out.IsFallback())
		assert.Equal(t, "offline", out.Value.Status)
		assert.Same(t, failure, out.Cause)
		assert.Equal(t, 1, calls, "fallback must not retry")
	}
}

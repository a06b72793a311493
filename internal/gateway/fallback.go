package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/internal/metrics"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/apierror"
	"github.com/skandvijay/lucy-indexing-quality-assurance-sub001/pkg/logger"
)

type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Outcome is the result of a fallback-wrapped call: either the live value or
// the static default, never an error. Cause holds the error that triggered
// the substitution.
type Outcome[T any] struct {
	Value  T
	Source Source
	Cause  error
}

func (o Outcome[T]) IsFallback() bool {
	return o.Source == SourceFallback
}

// WithFallback runs fetch and substitutes fallback() on any error. The
// substitution is terminal: fetch is never retried.
func WithFallback[T any](ctx context.Context, call string, fetch func(context.Context) (T, error), fallback func() T) Outcome[T] {
	value, err := fetch(ctx)
	if err == nil {
		return Outcome[T]{Value: value, Source: SourceLive}
	}

	metrics.FallbackSubstitutions.WithLabelValues(call).Inc()
	logger.Warn("Substituting fallback payload",
		zap.String("call", call),
		zap.String("error_kind", apierror.Kind(err)),
		zap.Error(err),
	)

	return Outcome[T]{Value: fallback(), Source: SourceFallback, Cause: err}
}

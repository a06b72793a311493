package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	require.NotPanics(t, Init)
	require.NotPanics(t, Init)
}

func TestFallbackCounter(t *testing.T) {
	before := testutil.ToFloat64(FallbackSubstitutions.WithLabelValues("metrics_test"))
	FallbackSubstitutions.WithLabelValues("metrics_test").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(FallbackSubstitutions.WithLabelValues("metrics_test")))
}

package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "review_gateway_request_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	GatewayRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_gateway_requests_total",
			Help: "Total backend calls by outcome class",
		},
		[]string{"method", "endpoint", "outcome"},
	)

	FallbackSubstitutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_fallback_substitutions_total",
			Help: "Times a static default replaced a failed call",
		},
		[]string{"call"},
	)

	RecordTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_record_transitions_total",
			Help: "Record lifecycle actions by result",
		},
		[]string{"action", "result"},
	)

	ThresholdChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_threshold_changes_total",
			Help: "Threshold updates and resets by result",
		},
		[]string{"operation", "result"},
	)

	UploadDecodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_upload_decodes_total",
			Help: "Streaming upload responses by decoded source",
		},
		[]string{"source"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_cache_hits_total",
			Help: "Total session cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_cache_misses_total",
			Help: "Total session cache misses",
		},
		[]string{"cache_type"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(GatewayRequestDuration)
		prometheus.MustRegister(GatewayRequestTotal)
		prometheus.MustRegister(FallbackSubstitutions)
		prometheus.MustRegister(RecordTransitions)
		prometheus.MustRegister(ThresholdChanges)
		prometheus.MustRegister(UploadDecodes)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

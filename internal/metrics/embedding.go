package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding provider metrics, labelled by provider ("service", "openai") and model.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparko",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Calls to the embedding provider by outcome",
		},
		[]string{"provider", "model", "status"}, // "success" / "error"
	)

	// Upper buckets follow the provider timeout (60s by default).
	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sparko",
			Subsystem: "embedding",
			Name:      "request_duration_seconds",
			Help:      "Latency of successful embedding calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparko",
			Subsystem: "embedding",
			Name:      "errors_total",
			Help:      "Embedding failures by kind (transport, http_status, decode, api_error, ...)",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparko",
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Term cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	embeddingRegisterOnce sync.Once
)

// RegisterEmbeddingMetrics registers the embedding collectors. Safe to call more than once.
func RegisterEmbeddingMetrics() {
	embeddingRegisterOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
		)
	})
}

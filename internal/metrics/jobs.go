package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Job lifecycle and ranking metrics.
var (
	JobsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sparko",
			Name:      "jobs_created_total",
			Help:      "Embedding jobs created",
		},
	)

	JobsClaimTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparko",
			Name:      "jobs_claim_total",
			Help:      "Claim attempts by outcome",
		},
		[]string{"result"}, // "won" / "lost" / "error"
	)

	JobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sparko",
			Name:      "jobs_finished_total",
			Help:      "Jobs reaching a terminal state",
		},
		[]string{"status"},
	)

	QueueLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sparko",
			Name:      "queue_latency_seconds",
			Help:      "Time between client enqueue and worker pickup",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	RankingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sparko",
			Name:      "ranking_duration_seconds",
			Help:      "Time spent ranking candidate papers",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"mode"},
	)
)

var jobRegisterOnce sync.Once

// RegisterJobMetrics registers job and ranking metrics. Safe to call more than once.
func RegisterJobMetrics() {
	jobRegisterOnce.Do(func() {
		prometheus.MustRegister(
			JobsCreatedTotal,
			JobsClaimTotal,
			JobsFinishedTotal,
			QueueLatency,
			RankingDuration,
		)
	})
}

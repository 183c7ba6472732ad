package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval pipeline metrics.
var (
	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"status"},
	)

	// CandidatesDroppedTotal counts index candidates excluded before filtering.
	CandidatesDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_candidates_dropped_total",
			Help:      "Index candidates dropped during the catalog join",
		},
		[]string{"reason"}, // "malformed" / "unknown"
	)

	RetrievalResultSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_result_size",
			Help:      "Number of records returned per retrieval",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)
)

var retrievalMetricsOnce sync.Once

// RegisterRetrievalMetrics registers retrieval pipeline metrics. Safe to call more than once.
func RegisterRetrievalMetrics() {
	retrievalMetricsOnce.Do(func() {
		prometheus.MustRegister(RetrievalDuration, CandidatesDroppedTotal, RetrievalResultSize)
	})
}

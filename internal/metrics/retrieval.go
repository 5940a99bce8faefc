package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval metrics. mode is "single" for unconstrained-year queries and
// "per_year" for the fan-out.
var (
	IndexQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_queries_total",
			Help:      "Vector index queries issued, by outcome",
		},
		[]string{"mode", "status"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "End-to-end retrieval duration (embed + index queries)",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode", "status"},
	)

	RetrievedRecords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_records",
			Help:      "Records returned per retrieval after truncation",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	YearBranches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_year_branches",
			Help:      "Per-year index queries fanned out per retrieval",
			Buckets:   []float64{1, 2, 3, 5, 10, 20},
		},
	)
)

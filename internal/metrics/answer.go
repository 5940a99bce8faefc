package metrics

import "github.com/prometheus/client_golang/prometheus"

// Language model answerer metrics.
var (
	AnswerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"model", "status"},
	)

	AnswerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_request_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"model"},
	)

	AnswerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answer_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"model", "type"},
	)
)

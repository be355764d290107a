package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeFallback = "fallback"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_queries_total",
			Help: "Total number of routed queries by response type",
		},
		[]string{"response_type"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_query_duration_seconds",
			Help:    "End-to-end latency of processQuery",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"response_type"},
	)

	StageCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_stage_calls_total",
			Help: "External calls issued by each routing stage",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "router_stage_duration_seconds",
			Help: "Latency of external calls per routing stage",
		},
		[]string{"stage"},
	)

	MatchSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_match_source_total",
			Help: "How a function match was produced (vector, fallback, none)",
		},
		[]string{"source"},
	)

	OperationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_operation_calls_total",
			Help: "Catalog operation invocations",
		},
		[]string{"operation", "outcome"},
	)

	IndexedPatterns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_indexed_patterns",
			Help: "Phrase patterns uploaded by the last indexing run",
		},
	)
)

// ObserveCall records one external call made by a stage.
func ObserveCall(stage string, started time.Time, outcome string) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	StageCalls.WithLabelValues(stage, outcome).Inc()
}

// Outcome maps a call error onto an outcome label.
func Outcome(err error, timedOut bool) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case timedOut:
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the per-step outcomes of the orchestrator. Each increments
// once per step outcome.
var (
	StepsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqpilot_steps_executed_total",
		Help: "Plan steps executed to completion.",
	})
	StepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqpilot_step_errors_total",
		Help: "Plan steps that ended in an error.",
	})
	BlockedWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqpilot_blocked_writes_total",
		Help: "Mutating steps intercepted into the approval gate.",
	})
	StepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reqpilot_step_duration_seconds",
		Help:    "Wall time per executed plan step.",
		Buckets: prometheus.DefBuckets,
	})
)

// ServeMetrics exposes the Prometheus endpoint on addr. Blocks; run it in a
// goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

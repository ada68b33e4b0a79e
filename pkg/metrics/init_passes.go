package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPassMetrics() {
	r.PassesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "passes_total",
			Help:      "Total number of analysis passes run",
		},
		[]string{"component", "pass", "status"},
	)

	r.PassDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "pass_duration_seconds",
			Help:      "Analysis pass duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"component", "pass"},
	)

	r.PassVisits = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: r.namespace,
			Name:      "pass_nodes_visited",
			Help:      "Number of node visits per analysis pass",
			Buckets:   []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"component", "pass"},
	)

	r.TrackedNodes = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: r.namespace,
			Name:      "tracked_nodes",
			Help:      "Number of nodes with computed results per component",
		},
		[]string{"component"},
	)

	r.BudgetFailure = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "pass_failures_total",
			Help:      "Passes aborted because they exceeded their visit budget",
		},
		[]string{"component", "pass"},
	)
}

func (r *Registry) initResultMetrics() {
	r.DependencyFlags = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: r.namespace,
			Name:      "dependency_flags",
			Help:      "Number of nodes carrying each dependent property after the last update",
		},
		[]string{"property"},
	)

	r.ScopeErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "scope_errors_total",
			Help:      "Structural scope errors found, by message",
		},
		[]string{"message"},
	)
}

func (r *Registry) initManagerMetrics() {
	r.RecomputesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: r.namespace,
			Name:      "recomputes_total",
			Help:      "Lazy recomputations triggered by workflow changes",
		},
	)

	r.WorkflowLevels = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: r.namespace,
			Name:      "workflow_levels",
			Help:      "Number of workflow levels analysed in the last recomputation",
		},
	)
}

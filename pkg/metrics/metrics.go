package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Pass status label values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	return NewRegistryWithNamespace(DefaultNamespace)
}

// NewRegistryWithNamespace creates a registry whose metric names start with namespace
func NewRegistryWithNamespace(namespace string) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &Registry{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	r.initPassMetrics()
	r.initResultMetrics()
	r.initManagerMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// RecordPass records one completed (or failed) analysis pass
func (r *Registry) RecordPass(component, pass, status string, duration time.Duration, visited int) {
	r.PassesTotal.WithLabelValues(component, pass, status).Inc()
	r.PassDuration.WithLabelValues(component, pass).Observe(duration.Seconds())
	r.PassVisits.WithLabelValues(component, pass).Observe(float64(visited))
	if status == StatusFailed {
		r.BudgetFailure.WithLabelValues(component, pass).Inc()
	}
}

// SetTrackedNodes records how many nodes a component holds results for
func (r *Registry) SetTrackedNodes(component string, n int) {
	r.TrackedNodes.WithLabelValues(component).Set(float64(n))
}

// SetDependencyFlags records how many nodes carry each dependent property
func (r *Registry) SetDependencyFlags(executablePredecessor, executingSuccessor int) {
	r.DependencyFlags.WithLabelValues("executable_predecessor").Set(float64(executablePredecessor))
	r.DependencyFlags.WithLabelValues("executing_successor").Set(float64(executingSuccessor))
}

// RecordScopeError counts a structural scope error by its message
func (r *Registry) RecordScopeError(message string) {
	r.ScopeErrorsTotal.WithLabelValues(message).Inc()
}

// RecordRecompute counts a lazy recomputation triggered by the manager
func (r *Registry) RecordRecompute(levels int) {
	r.RecomputesTotal.Inc()
	r.WorkflowLevels.Set(float64(levels))
}

// Gather collects the current metric families
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}

// WriteText writes all metrics in the Prometheus text exposition format
func (r *Registry) WriteText(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

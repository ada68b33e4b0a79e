package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name unless configured otherwise.
const DefaultNamespace = "flowscope"

// Registry holds all metrics of the analysis engine
type Registry struct {
	// Pass metrics, labelled by component (tracker, scope) and pass
	// (update, forward, backward)
	PassesTotal   *prometheus.CounterVec
	PassDuration  *prometheus.HistogramVec
	PassVisits    *prometheus.HistogramVec
	TrackedNodes  *prometheus.GaugeVec
	BudgetFailure *prometheus.CounterVec

	// Result metrics
	DependencyFlags  *prometheus.GaugeVec
	ScopeErrorsTotal *prometheus.CounterVec

	// Manager metrics
	RecomputesTotal prometheus.Counter
	WorkflowLevels  prometheus.Gauge

	namespace string
	registry  *prometheus.Registry
	mu        sync.Mutex
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

package manager

import (
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger handed to every tracker and annotator.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records pass and recompute metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(m *Manager) {
		m.metrics = r
	}
}

// WithBudgetFactor scales the visit budget of every pass.
func WithBudgetFactor(f int) Option {
	return func(m *Manager) {
		m.budgetFactor = f
	}
}

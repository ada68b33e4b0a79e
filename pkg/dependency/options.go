package dependency

import (
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
	"github.com/dd0wney/cluso-flowscope/pkg/traverse"
)

const component = "tracker"

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger; the default discards output.
func WithLogger(l logging.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics records pass metrics in r.
func WithMetrics(r *metrics.Registry) Option {
	return func(t *Tracker) {
		t.metrics = r
	}
}

// WithBudgetFactor scales the visit budget of a pass. Values below
// traverse.DefaultBudgetFactor are raised to it.
func WithBudgetFactor(f int) Option {
	return func(t *Tracker) {
		t.budgetFactor = max(f, traverse.DefaultBudgetFactor)
	}
}

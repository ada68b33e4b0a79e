package scope

import (
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
	"github.com/dd0wney/cluso-flowscope/pkg/traverse"
)

const component = "scope"

// Option configures an Annotator.
type Option func(*Annotator)

func WithLogger(l logging.Logger) Option {
	return func(a *Annotator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(a *Annotator) {
		a.metrics = r
	}
}

// WithBudgetFactor scales the visit budget of both passes. Values below
// traverse.DefaultBudgetFactor are raised to it.
func WithBudgetFactor(f int) Option {
	return func(a *Annotator) {
		a.budgetFactor = max(f, traverse.DefaultBudgetFactor)
	}
}

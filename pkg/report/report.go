// Package report turns tracker and annotator results into a validity report
// for one workflow level.
package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/dd0wney/cluso-flowscope/pkg/dependency"
	"github.com/dd0wney/cluso-flowscope/pkg/scope"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
	"github.com/google/uuid"
)

// NodeResult is one row of a report.
type NodeResult struct {
	ID            workflow.NodeID   `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Kind          workflow.NodeKind `json:"kind" yaml:"kind"`
	State         string            `json:"state" yaml:"state"`
	Role          string            `json:"role" yaml:"role"`
	Depth         int               `json:"depth" yaml:"depth"`
	ForwardStack  []workflow.NodeID `json:"forward_stack,omitempty" yaml:"forward_stack,omitempty"`
	BackwardStack []workflow.NodeID `json:"backward_stack,omitempty" yaml:"backward_stack,omitempty"`
	CanExecute    bool              `json:"can_execute" yaml:"can_execute"`
	CanReset      bool              `json:"can_reset" yaml:"can_reset"`
	Error         string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report describes one workflow level.
type Report struct {
	ID          string          `json:"id" yaml:"id"`
	Workflow    workflow.NodeID `json:"workflow" yaml:"workflow"`
	Name        string          `json:"name" yaml:"name"`
	Container   string          `json:"container" yaml:"container"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Nodes       []NodeResult    `json:"nodes" yaml:"nodes"`
	ErrorCount  int             `json:"error_count" yaml:"error_count"`
}

// Build assembles the report of w from its updated tracker and completed
// annotator. Rows are ordered by depth, then node ID.
func Build(w *workflow.Workflow, tracker *dependency.Tracker, annotator *scope.Annotator) (*Report, error) {
	if !annotator.Completed() {
		return nil, fmt.Errorf("report for %s: %w", w.ID(), scope.ErrForwardPassRequired)
	}

	r := &Report{
		ID:          uuid.NewString(),
		Workflow:    w.ID(),
		Name:        w.Name(),
		Container:   w.ContainerKind().String(),
		GeneratedAt: time.Now().UTC(),
	}

	for _, ann := range annotator.Annotations() {
		node, err := w.Node(ann.ID)
		if err != nil {
			return nil, err
		}
		canExecute, err := tracker.CanExecute(ann.ID)
		if err != nil {
			return nil, err
		}
		canReset, err := tracker.CanReset(ann.ID)
		if err != nil {
			return nil, err
		}

		r.Nodes = append(r.Nodes, NodeResult{
			ID:            ann.ID,
			Name:          node.Name,
			Kind:          node.Kind,
			State:         node.State().String(),
			Role:          ann.Role.String(),
			Depth:         ann.Depth,
			ForwardStack:  ann.ForwardStack.Slice(),
			BackwardStack: ann.BackwardStack.Slice(),
			CanExecute:    canExecute,
			CanReset:      canReset,
			Error:         ann.ErrorMessage,
		})
		if ann.HasError() {
			r.ErrorCount++
		}
	}
	return r, nil
}

// HasErrors reports whether any node carries a structural error.
func (r *Report) HasErrors() bool {
	return r.ErrorCount > 0
}

// Errors returns the rows that carry a structural error.
func (r *Report) Errors() []NodeResult {
	return slices.DeleteFunc(slices.Clone(r.Nodes), func(n NodeResult) bool {
		return n.Error == ""
	})
}

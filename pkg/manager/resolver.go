package manager

import "github.com/dd0wney/cluso-flowscope/pkg/workflow"

// trackerResolver answers boundary queries of a nested workflow from the
// tracker of its parent, which the manager always updates first. Whatever
// lies beyond the parent's own ports is already folded into the container
// node's properties, so the answer never looks further than one level up.
type trackerResolver struct {
	m *Manager
}

func (r trackerResolver) parentLevel(w *workflow.Workflow) (*level, bool) {
	if w.Parent() == nil {
		return nil, false
	}
	lv, ok := r.m.levels[w.Parent().ID()]
	if !ok || lv.wf != w.Parent() || !lv.updated {
		return nil, false
	}
	return lv, true
}

func (r trackerResolver) PredecessorExecutable(w *workflow.Workflow, inport int) bool {
	parent, ok := r.parentLevel(w)
	if !ok {
		return workflow.StateResolver{}.PredecessorExecutable(w, inport)
	}
	sources, fromParentBoundary := w.BoundarySources(inport)
	for _, id := range sources {
		if w.Parent().State(id).IsExecutable() {
			return true
		}
		if p, err := parent.tracker.HasExecutablePredecessor(id); err == nil && p {
			return true
		}
	}
	if fromParentBoundary {
		p, err := parent.tracker.HasExecutablePredecessor(w.ID())
		return err == nil && p
	}
	return false
}

func (r trackerResolver) SuccessorInProgress(w *workflow.Workflow, outport int) bool {
	parent, ok := r.parentLevel(w)
	if !ok || w.ContainerKind() == workflow.Component {
		return workflow.StateResolver{}.SuccessorInProgress(w, outport)
	}
	targets, toParentBoundary := w.BoundaryTargets(outport)
	for _, id := range targets {
		if w.Parent().State(id).IsInProgress() {
			return true
		}
		if p, err := parent.tracker.HasExecutingSuccessor(id); err == nil && p {
			return true
		}
	}
	if toParentBoundary {
		p, err := parent.tracker.HasExecutingSuccessor(w.ID())
		return err == nil && p
	}
	return false
}

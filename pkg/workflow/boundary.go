package workflow

// BoundaryResolver answers boundary queries for a nested workflow by looking
// one level up, into the parent workflow.
type BoundaryResolver interface {
	PredecessorExecutable(w *Workflow, inport int) bool
	SuccessorInProgress(w *Workflow, outport int) bool
}

// StateResolver answers boundary queries from the states of the parent-level
// neighbours of the container node. It is the default resolver.
type StateResolver struct{}

func (StateResolver) PredecessorExecutable(w *Workflow, inport int) bool {
	sources, _ := w.BoundarySources(inport)
	for _, id := range sources {
		if w.parent.State(id).IsExecutable() {
			return true
		}
	}
	return false
}

func (StateResolver) SuccessorInProgress(w *Workflow, outport int) bool {
	if w.kind == Component {
		n, err := w.ContainerNode()
		return err == nil && n.state.IsInProgress()
	}
	targets, _ := w.BoundaryTargets(outport)
	for _, id := range targets {
		if w.parent.State(id).IsInProgress() {
			return true
		}
	}
	return false
}

// ContainerKind reports what encloses the workflow.
func (w *Workflow) ContainerKind() ContainerKind {
	return w.kind
}

// ContainerNode returns the parent-level node that owns this workflow.
func (w *Workflow) ContainerNode() (*Node, error) {
	if w.parent == nil {
		return nil, NewError("ContainerNode").Node(w.id).Cause(ErrNotContainer).Err()
	}
	return w.parent.Node(w.id)
}

// PredecessorExecutable implements Boundary.
func (w *Workflow) PredecessorExecutable(inport int) bool {
	if w.kind.IsProjectRoot() || w.parent == nil {
		return false
	}
	return w.boundaryResolver().PredecessorExecutable(w, inport)
}

// SuccessorInProgress implements Boundary.
func (w *Workflow) SuccessorInProgress(outport int) bool {
	if w.kind.IsProjectRoot() || w.parent == nil {
		return false
	}
	return w.boundaryResolver().SuccessorInProgress(w, outport)
}

func (w *Workflow) boundaryResolver() BoundaryResolver {
	if w.resolver == nil {
		return StateResolver{}
	}
	return w.resolver
}

// BoundarySources returns the parent-level nodes feeding the given container
// inport. A component runs as one unit, so all predecessors of the component
// node count regardless of port. The second result reports whether the port is
// fed straight from the parent's own container inport; that hop is not followed.
func (w *Workflow) BoundarySources(inport int) ([]NodeID, bool) {
	if w.parent == nil {
		return nil, false
	}
	var sources []NodeID
	fromParent := false
	for _, c := range w.parent.incoming[w.id] {
		if w.kind == Metanode && c.DestPort != inport {
			continue
		}
		if c.Source == w.parent.id {
			fromParent = true
			continue
		}
		sources = append(sources, c.Source)
	}
	SortIDs(sources)
	return sources, fromParent
}

// BoundaryTargets returns the parent-level nodes fed by the given container
// outport. Components are successor-free: resetting inside a component never
// looks at the component's downstream consumers.
func (w *Workflow) BoundaryTargets(outport int) ([]NodeID, bool) {
	if w.parent == nil || w.kind == Component {
		return nil, false
	}
	var targets []NodeID
	toParent := false
	for _, c := range w.parent.outgoing[w.id] {
		if c.SourcePort != outport {
			continue
		}
		if c.Dest == w.parent.id {
			toParent = true
			continue
		}
		targets = append(targets, c.Dest)
	}
	SortIDs(targets)
	return targets, toParent
}

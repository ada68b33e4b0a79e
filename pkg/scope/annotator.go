// Package scope computes the nesting of loop and try/catch scopes in a
// workflow. A forward pass from the sources assigns every node its depth and
// the stack of enclosing scope starts; a backward pass from the sinks assigns
// the stack of enclosing scope ends. Unbalanced or crossing scopes are
// reported as error messages on the affected annotations.
package scope

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
	"github.com/dd0wney/cluso-flowscope/pkg/traverse"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// ErrForwardPassRequired is returned by RunBackward when no forward pass has
// completed since the annotator was created or the last forward pass failed.
var ErrForwardPassRequired = errors.New("forward pass required")

// Annotator holds the scope annotations of one graph.
//
// Like the dependency tracker it does no locking: run the passes while
// holding the exclusive graph lock.
type Annotator struct {
	graph       workflow.Graph
	annotations map[Key]*GraphAnnotation

	forwardDone  bool
	backwardDone bool

	logger       logging.Logger
	metrics      *metrics.Registry
	budgetFactor int
}

func NewAnnotator(g workflow.Graph, opts ...Option) *Annotator {
	a := &Annotator{
		graph:        g,
		annotations:  make(map[Key]*GraphAnnotation),
		logger:       logging.NewNopLogger(),
		budgetFactor: traverse.DefaultBudgetFactor,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logging.Component(component), logging.Workflow(g.ID()))
	return a
}

// Run runs the forward pass followed by the backward pass.
func (a *Annotator) Run() error {
	if err := a.RunForward(); err != nil {
		return err
	}
	return a.RunBackward()
}

// RunForward discards all annotations and recomputes depth, forward stacks
// and container inports.
func (a *Annotator) RunForward() error {
	timer := logging.StartTimer(a.logger, "scope forward pass", logging.Pass("forward"))
	a.annotations = make(map[Key]*GraphAnnotation)
	a.forwardDone, a.backwardDone = false, false

	nodes := a.graph.Nodes()
	budget := traverse.NewBudget("scope forward", a.budgetFactor*a.bound(nodes))
	queue := traverse.NewQueue[workflow.NodeID]()

	for _, id := range nodes {
		inports := a.containerInports(id)
		if len(a.graph.Predecessors(id)) == 0 || len(inports) > 0 {
			a.seedForward(id, inports)
			queue.Push(id)
		}
	}
	err := a.drainForward(queue, budget)

	// Nodes on a cycle without an entry point are never reached from a
	// source; start them as roots.
	for err == nil {
		id, ok := a.firstUnannotated(nodes)
		if !ok {
			break
		}
		a.seedForward(id, nil)
		queue.Push(id)
		err = a.drainForward(queue, budget)
	}

	if err != nil {
		a.annotations = make(map[Key]*GraphAnnotation)
		a.record("forward", metrics.StatusFailed, timer.EndError(err), budget.Spent())
		return err
	}
	a.forwardDone = true
	d := timer.End(logging.Count(len(a.annotations)), logging.Visited(budget.Spent()))
	a.record("forward", metrics.StatusOK, d, budget.Spent())
	return nil
}

// bound is the structural visit limit of one pass. A node is queued when it
// is seeded and again each time one of its neighbours changes, and an
// annotation changes only a bounded number of times.
func (a *Annotator) bound(nodes []workflow.NodeID) int {
	scopes, edges := 0, 0
	for _, id := range nodes {
		if a.graph.Role(id) != workflow.RoleNone {
			scopes++
		}
		edges += len(a.graph.OutgoingConnections(id))
	}
	ports := len(a.graph.OutgoingConnections(a.graph.ID())) + len(a.graph.IncomingConnections(a.graph.ID()))
	return (len(nodes) + edges + 1) * (2*scopes + ports + 6)
}

func (a *Annotator) containerInports(id workflow.NodeID) []int {
	var ports []int
	for _, c := range a.graph.IncomingConnections(id) {
		if c.Source == a.graph.ID() {
			ports, _ = unionPorts(ports, []int{c.SourcePort})
		}
	}
	return ports
}

func (a *Annotator) seedForward(id workflow.NodeID, inports []int) {
	ann := &GraphAnnotation{
		ID:                        id,
		OutportIndex:              NoOutport,
		Role:                      a.graph.Role(id),
		ConnectedContainerInports: inports,
	}
	checkStart(ann)
	a.annotations[ann.Key()] = ann
}

func (a *Annotator) firstUnannotated(nodes []workflow.NodeID) (workflow.NodeID, bool) {
	for _, id := range nodes {
		if _, ok := a.annotations[Key{ID: id, Outport: NoOutport}]; !ok {
			return id, true
		}
	}
	return "", false
}

// target returns the annotation key and role on the receiving end of c.
func (a *Annotator) target(c workflow.Connection) (Key, workflow.Role, bool) {
	if c.Dest == a.graph.ID() {
		return Key{ID: c.Dest, Outport: c.DestPort}, workflow.RoleNone, true
	}
	if !a.graph.Contains(c.Dest) {
		return Key{}, workflow.RoleNone, false
	}
	return Key{ID: c.Dest, Outport: NoOutport}, a.graph.Role(c.Dest), true
}

func (a *Annotator) drainForward(queue *traverse.Queue[workflow.NodeID], budget *traverse.Budget) error {
	for {
		id, ok := queue.Pop()
		if !ok {
			return nil
		}
		if err := budget.Spend(); err != nil {
			return err
		}

		cur := a.annotations[Key{ID: id, Outport: NoOutport}]
		out := forwardOut(*cur)
		for _, c := range a.graph.OutgoingConnections(id) {
			key, role, ok := a.target(c)
			if !ok {
				continue
			}
			incoming := GraphAnnotation{
				ID:                        key.ID,
				OutportIndex:              key.Outport,
				Depth:                     depthOf(role, out),
				Role:                      role,
				ConnectedContainerInports: cur.ConnectedContainerInports,
				ForwardStack:              out,
			}

			existing, seen := a.annotations[key]
			if !seen {
				ann := incoming.clone()
				checkStart(&ann)
				a.annotations[key] = &ann
			} else if !MergeForward(existing, incoming) {
				continue
			}
			if key.Outport == NoOutport {
				queue.Push(key.ID)
			}
		}
	}
}

// RunBackward recomputes backward stacks and container outports on top of
// the last forward pass, then flags scope starts that never reach an end.
func (a *Annotator) RunBackward() error {
	if !a.forwardDone {
		return fmt.Errorf("%w: workflow %s", ErrForwardPassRequired, a.graph.ID())
	}
	timer := logging.StartTimer(a.logger, "scope backward pass", logging.Pass("backward"))
	a.backwardDone = false
	a.resetBackward()

	nodes := a.graph.Nodes()
	budget := traverse.NewBudget("scope backward", a.budgetFactor*a.bound(nodes))
	visited := traverse.NewMarker[workflow.NodeID]()
	queue := traverse.NewQueue[workflow.NodeID]()

	for _, id := range nodes {
		if len(a.graph.Successors(id)) == 0 || a.feedsOutport(id) {
			queue.Push(id)
		}
	}
	err := a.drainBackward(queue, visited, budget)
	for _, id := range nodes {
		if err != nil {
			break
		}
		if !visited.Marked(id) {
			queue.Push(id)
			err = a.drainBackward(queue, visited, budget)
		}
	}
	if err != nil {
		a.record("backward", metrics.StatusFailed, timer.EndError(err), budget.Spent())
		return err
	}

	for _, ann := range a.annotations {
		if ann.Role == workflow.RoleScopeStart && ann.OutportIndex == NoOutport &&
			ann.BackwardStack.IsEmpty() && ann.ErrorMessage == "" {
			ann.ErrorMessage = ErrMsgMissingEnd
		}
	}
	a.backwardDone = true

	errs := a.Errors()
	for _, ann := range errs {
		a.logger.Debug("structural scope error", logging.NodeID(ann.ID), logging.ScopeError(ann.ErrorMessage))
		if a.metrics != nil {
			a.metrics.RecordScopeError(ann.ErrorMessage)
		}
	}
	d := timer.End(logging.Count(len(errs)), logging.Visited(budget.Spent()))
	a.record("backward", metrics.StatusOK, d, budget.Spent())
	return nil
}

func (a *Annotator) resetBackward() {
	for key, ann := range a.annotations {
		ann.BackwardStack = Stack{}
		ann.ConnectedContainerOutports = nil
		if key.Outport != NoOutport {
			ann.ConnectedContainerOutports = []int{key.Outport}
		}
		if ann.ErrorMessage == ErrMsgMultipleEnds || ann.ErrorMessage == ErrMsgMissingEnd {
			ann.ErrorMessage = ""
		}
	}
}

func (a *Annotator) feedsOutport(id workflow.NodeID) bool {
	for _, c := range a.graph.OutgoingConnections(id) {
		if c.Dest == a.graph.ID() {
			return true
		}
	}
	return false
}

func (a *Annotator) drainBackward(queue *traverse.Queue[workflow.NodeID], visited *traverse.Marker[workflow.NodeID], budget *traverse.Budget) error {
	for {
		id, ok := queue.Pop()
		if !ok {
			return nil
		}
		if err := budget.Spend(); err != nil {
			return err
		}

		cur, ok := a.annotations[Key{ID: id, Outport: NoOutport}]
		if !ok {
			continue
		}
		var successors []GraphAnnotation
		for _, c := range a.graph.OutgoingConnections(id) {
			key, _, ok := a.target(c)
			if !ok {
				continue
			}
			if s, ok := a.annotations[key]; ok {
				successors = append(successors, *s)
			}
		}

		changed := SetAndMergeBackwards(cur, successors)
		if first := visited.Mark(id); !first && !changed {
			continue
		}
		for _, p := range a.graph.Predecessors(id) {
			queue.Push(p)
		}
	}
}

func (a *Annotator) record(pass, status string, d time.Duration, visited int) {
	if a.metrics == nil {
		return
	}
	a.metrics.RecordPass(component, pass, status, d, visited)
	a.metrics.SetTrackedNodes(component, len(a.annotations))
}

func (a *Annotator) get(op string, key Key) (*GraphAnnotation, error) {
	ann, ok := a.annotations[key]
	if !ok {
		b := workflow.NewError(op).Node(key.ID).Cause(workflow.ErrNodeNotFound)
		if key.Outport != NoOutport {
			b = b.Port(key.Outport)
		}
		return nil, b.Err()
	}
	return ann, nil
}

// Completed reports whether both passes have run since the last change.
func (a *Annotator) Completed() bool {
	return a.forwardDone && a.backwardDone
}

// AnnotationOf returns a copy of the annotation of node id.
func (a *Annotator) AnnotationOf(id workflow.NodeID) (GraphAnnotation, error) {
	ann, err := a.get("AnnotationOf", Key{ID: id, Outport: NoOutport})
	if err != nil {
		return GraphAnnotation{}, err
	}
	return ann.clone(), nil
}

// OutportAnnotation returns the annotation of one of the workflow's own
// container outports.
func (a *Annotator) OutportAnnotation(port int) (GraphAnnotation, error) {
	ann, err := a.get("OutportAnnotation", Key{ID: a.graph.ID(), Outport: port})
	if err != nil {
		return GraphAnnotation{}, err
	}
	return ann.clone(), nil
}

func (a *Annotator) Depth(id workflow.NodeID) (int, error) {
	ann, err := a.get("Depth", Key{ID: id, Outport: NoOutport})
	if err != nil {
		return 0, err
	}
	return ann.Depth, nil
}

func (a *Annotator) Role(id workflow.NodeID) (workflow.Role, error) {
	ann, err := a.get("Role", Key{ID: id, Outport: NoOutport})
	if err != nil {
		return workflow.RoleNone, err
	}
	return ann.Role, nil
}

func (a *Annotator) ForwardStack(id workflow.NodeID) (Stack, error) {
	ann, err := a.get("ForwardStack", Key{ID: id, Outport: NoOutport})
	if err != nil {
		return Stack{}, err
	}
	return ann.ForwardStack, nil
}

func (a *Annotator) BackwardStack(id workflow.NodeID) (Stack, error) {
	ann, err := a.get("BackwardStack", Key{ID: id, Outport: NoOutport})
	if err != nil {
		return Stack{}, err
	}
	return ann.BackwardStack, nil
}

// Error returns the structural error of node id; ok is false when there is none.
func (a *Annotator) Error(id workflow.NodeID) (msg string, ok bool, err error) {
	ann, err := a.get("Error", Key{ID: id, Outport: NoOutport})
	if err != nil {
		return "", false, err
	}
	return ann.ErrorMessage, ann.HasError(), nil
}

// Annotations returns all node annotations ordered by depth, then ID.
func (a *Annotator) Annotations() []GraphAnnotation {
	return a.collect(func(ann *GraphAnnotation) bool { return ann.OutportIndex == NoOutport })
}

// OutportAnnotations returns the annotations of the workflow's container outports.
func (a *Annotator) OutportAnnotations() []GraphAnnotation {
	return a.collect(func(ann *GraphAnnotation) bool { return ann.OutportIndex != NoOutport })
}

// Errors returns the node annotations that carry a structural error.
func (a *Annotator) Errors() []GraphAnnotation {
	return a.collect(func(ann *GraphAnnotation) bool {
		return ann.OutportIndex == NoOutport && ann.HasError()
	})
}

func (a *Annotator) collect(keep func(*GraphAnnotation) bool) []GraphAnnotation {
	var out []GraphAnnotation
	for _, ann := range a.annotations {
		if keep(ann) {
			out = append(out, ann.clone())
		}
	}
	slices.SortFunc(out, Compare)
	return out
}

// MatchingStart returns the scope start closed by the scope end id.
func (a *Annotator) MatchingStart(id workflow.NodeID) (workflow.NodeID, bool, error) {
	ann, err := a.get("MatchingStart", Key{ID: id, Outport: NoOutport})
	if err != nil || ann.Role != workflow.RoleScopeEnd {
		return "", false, err
	}
	start, ok := ann.ForwardStack.Peek()
	return start, ok, nil
}

// MatchingEnd returns the scope end that closes the scope start id.
func (a *Annotator) MatchingEnd(id workflow.NodeID) (workflow.NodeID, bool, error) {
	ann, err := a.get("MatchingEnd", Key{ID: id, Outport: NoOutport})
	if err != nil || ann.Role != workflow.RoleScopeStart {
		return "", false, err
	}
	end, ok := ann.BackwardStack.Peek()
	return end, ok, nil
}

// ScopeMembers returns the nodes inside the scope opened by id, its end
// included, ordered by depth.
func (a *Annotator) ScopeMembers(id workflow.NodeID) ([]workflow.NodeID, error) {
	if _, err := a.get("ScopeMembers", Key{ID: id, Outport: NoOutport}); err != nil {
		return nil, err
	}
	var members []workflow.NodeID
	for _, ann := range a.Annotations() {
		if ann.ID != id && ann.ForwardStack.Contains(id) {
			members = append(members, ann.ID)
		}
	}
	return members, nil
}

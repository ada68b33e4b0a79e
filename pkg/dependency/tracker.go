// Package dependency tracks, for every node of a workflow, whether some
// predecessor is executable and whether some successor is executing. The
// answers gate the "execute" and "reset" actions in O(1) after an O(V+E)
// update instead of a graph walk per query.
package dependency

import (
	"fmt"
	"time"

	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
	"github.com/dd0wney/cluso-flowscope/pkg/traverse"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// Properties are the dependent properties of one node.
type Properties struct {
	HasExecutablePredecessor bool
	HasExecutingSuccessor    bool
}

// Tracker maintains Properties for every node of one graph.
//
// Tracker does no locking. Update must run while the caller holds the
// exclusive graph lock; queries are safe once no Update is in flight.
type Tracker struct {
	graph   workflow.Graph
	props   map[workflow.NodeID]*Properties
	logger  logging.Logger
	metrics *metrics.Registry

	budgetFactor int
}

// NewTracker binds a tracker to g. Call Update before the first query.
func NewTracker(g workflow.Graph, opts ...Option) *Tracker {
	t := &Tracker{
		graph:        g,
		props:        make(map[workflow.NodeID]*Properties),
		logger:       logging.NewNopLogger(),
		budgetFactor: traverse.DefaultBudgetFactor,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(logging.Component(component), logging.Workflow(g.ID()))
	return t
}

// Update recomputes the properties of every node.
func (t *Tracker) Update() error {
	timer := logging.StartTimer(t.logger, "dependency update", logging.Pass("update"))
	nodes := t.graph.Nodes()

	forward, backward := t.reset(nodes)
	t.seedBoundary(forward, backward)

	// Executable seeds may be reached again later, every other node is
	// queued at most once per direction.
	budget := traverse.NewBudget("dependency", t.budgetFactor*(len(nodes)+1))
	err := t.propagate(forward, budget, t.graph.Successors, func(p *Properties) *bool {
		return &p.HasExecutablePredecessor
	})
	if err == nil {
		err = t.propagate(backward, budget, t.graph.Predecessors, func(p *Properties) *bool {
			return &p.HasExecutingSuccessor
		})
	}

	if err != nil {
		d := timer.EndError(err)
		t.record(metrics.StatusFailed, d, budget.Spent())
		return err
	}
	d := timer.End(logging.Count(len(t.props)), logging.Visited(budget.Spent()))
	t.record(metrics.StatusOK, d, budget.Spent())
	return nil
}

// reset prunes vanished nodes, clears the survivors and returns the seed
// queues: executable nodes for the forward walk, in-progress nodes for the
// backward walk.
func (t *Tracker) reset(nodes []workflow.NodeID) (*traverse.Queue[workflow.NodeID], *traverse.Queue[workflow.NodeID]) {
	present := make(map[workflow.NodeID]struct{}, len(nodes))
	forward := traverse.NewQueue[workflow.NodeID]()
	backward := traverse.NewQueue[workflow.NodeID]()

	for _, id := range nodes {
		present[id] = struct{}{}
		if p, ok := t.props[id]; ok {
			*p = Properties{}
		} else {
			t.props[id] = &Properties{}
		}

		state := t.graph.State(id)
		if state.IsExecutable() {
			forward.Push(id)
		}
		if state.IsInProgress() {
			backward.Push(id)
		}
	}
	for id := range t.props {
		if _, ok := present[id]; !ok {
			delete(t.props, id)
		}
	}
	return forward, backward
}

// seedBoundary marks nodes wired to the container's ports when the one-hop
// boundary query says the outside world is executable or executing. A project
// root has no boundary.
func (t *Tracker) seedBoundary(forward, backward *traverse.Queue[workflow.NodeID]) {
	if t.graph.ContainerKind().IsProjectRoot() {
		return
	}
	self := t.graph.ID()

	for _, c := range t.graph.OutgoingConnections(self) {
		p, ok := t.props[c.Dest]
		if !ok || p.HasExecutablePredecessor {
			continue
		}
		if t.graph.PredecessorExecutable(c.SourcePort) {
			p.HasExecutablePredecessor = true
			forward.Push(c.Dest)
		}
	}
	for _, c := range t.graph.IncomingConnections(self) {
		p, ok := t.props[c.Source]
		if !ok || p.HasExecutingSuccessor {
			continue
		}
		if t.graph.SuccessorInProgress(c.DestPort) {
			p.HasExecutingSuccessor = true
			backward.Push(c.Source)
		}
	}
}

// propagate runs a breadth-first walk from the queued nodes, setting flag on
// every node reached. A node whose flag is already true is not enqueued
// again: the flag never goes back to false within a pass.
func (t *Tracker) propagate(queue *traverse.Queue[workflow.NodeID], budget *traverse.Budget,
	next func(workflow.NodeID) []workflow.NodeID, flag func(*Properties) *bool) error {
	for {
		current, ok := queue.Pop()
		if !ok {
			return nil
		}
		if err := budget.Spend(); err != nil {
			return err
		}
		for _, id := range next(current) {
			p, ok := t.props[id]
			if !ok {
				continue
			}
			if f := flag(p); !*f {
				*f = true
				queue.Push(id)
			}
		}
	}
}

func (t *Tracker) record(status string, d time.Duration, visited int) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordPass(component, "update", status, d, visited)
	t.metrics.SetTrackedNodes(component, len(t.props))
	if status == metrics.StatusOK {
		pred, succ := 0, 0
		for _, p := range t.props {
			if p.HasExecutablePredecessor {
				pred++
			}
			if p.HasExecutingSuccessor {
				succ++
			}
		}
		t.metrics.SetDependencyFlags(pred, succ)
	}
}

func (t *Tracker) lookup(op string, id workflow.NodeID) (*Properties, error) {
	p, ok := t.props[id]
	if !ok {
		return nil, workflow.NewError(op).Node(id).
			Context(fmt.Sprintf("not tracked in workflow %s", t.graph.ID())).
			Cause(workflow.ErrNodeNotFound).Err()
	}
	return p, nil
}

// Properties returns the properties computed for id by the last Update.
func (t *Tracker) Properties(id workflow.NodeID) (Properties, error) {
	p, err := t.lookup("Properties", id)
	if err != nil {
		return Properties{}, err
	}
	return *p, nil
}

// HasExecutablePredecessor reports whether some upstream node of id is executable.
func (t *Tracker) HasExecutablePredecessor(id workflow.NodeID) (bool, error) {
	p, err := t.lookup("HasExecutablePredecessor", id)
	if err != nil {
		return false, err
	}
	return p.HasExecutablePredecessor, nil
}

// HasExecutingSuccessor reports whether some downstream node of id is queued or running.
func (t *Tracker) HasExecutingSuccessor(id workflow.NodeID) (bool, error) {
	p, err := t.lookup("HasExecutingSuccessor", id)
	if err != nil {
		return false, err
	}
	return p.HasExecutingSuccessor, nil
}

// CanExecute reports whether executing id is possible: either the node is
// ready itself, or it is idle and an upstream node can execute first.
func (t *Tracker) CanExecute(id workflow.NodeID) (bool, error) {
	p, err := t.lookup("CanExecute", id)
	if err != nil {
		return false, err
	}
	if t.graph.CanExecuteDirectly(id) {
		return true, nil
	}
	state := t.graph.State(id)
	return p.HasExecutablePredecessor && !state.IsExecuted() && !state.IsInProgress(), nil
}

// CanReset reports whether id can be reset: it must hold resettable state and
// nothing downstream may be executing.
func (t *Tracker) CanReset(id workflow.NodeID) (bool, error) {
	p, err := t.lookup("CanReset", id)
	if err != nil {
		return false, err
	}
	return t.graph.CanResetDirectly(id) && !p.HasExecutingSuccessor, nil
}

// Len returns the number of tracked nodes.
func (t *Tracker) Len() int {
	return len(t.props)
}

// Nodes returns the tracked node IDs in stable order.
func (t *Tracker) Nodes() []workflow.NodeID {
	ids := make([]workflow.NodeID, 0, len(t.props))
	for id := range t.props {
		ids = append(ids, id)
	}
	workflow.SortIDs(ids)
	return ids
}

// Package manager drives dependency tracking and scope annotation for a
// whole project: every workflow level gets its own tracker and annotator,
// results are recomputed lazily after mutations, and nested levels see
// their container's surroundings through the parent level's tracker.
package manager

import (
	"fmt"

	"github.com/dd0wney/cluso-flowscope/pkg/dependency"
	"github.com/dd0wney/cluso-flowscope/pkg/logging"
	"github.com/dd0wney/cluso-flowscope/pkg/metrics"
	"github.com/dd0wney/cluso-flowscope/pkg/scope"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

type level struct {
	wf        *workflow.Workflow
	tracker   *dependency.Tracker
	annotator *scope.Annotator
	updated   bool
}

// Level is the computed state of one workflow level. It stays valid until
// the next mutation through the manager.
type Level struct {
	Workflow  *workflow.Workflow
	Tracker   *dependency.Tracker
	Annotator *scope.Annotator
}

// Manager owns a project and the analysis results of all its levels. All
// methods take the project lock.
type Manager struct {
	project *workflow.Workflow
	levels  map[workflow.NodeID]*level
	order   []workflow.NodeID
	dirty   bool

	logger       logging.Logger
	metrics      *metrics.Registry
	budgetFactor int
}

// New creates a manager for project. Results are computed on first query.
func New(project *workflow.Workflow, opts ...Option) *Manager {
	m := &Manager{
		project: project,
		levels:  make(map[workflow.NodeID]*level),
		dirty:   true,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logging.Component("manager"))
	return m
}

// Project returns the managed project. Mutating it directly bypasses the
// manager; call Invalidate afterwards.
func (m *Manager) Project() *workflow.Workflow {
	return m.project
}

// Invalidate forces a recompute on the next query.
func (m *Manager) Invalidate() {
	m.project.Lock()
	defer m.project.Unlock()
	m.dirty = true
}

func (m *Manager) mutate(fn func() error) error {
	m.project.Lock()
	defer m.project.Unlock()
	if err := fn(); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

func (m *Manager) findWorkflow(id workflow.NodeID) (*workflow.Workflow, error) {
	return m.project.Find(id)
}

// parentOf returns the workflow level that holds node id.
func (m *Manager) parentOf(op string, id workflow.NodeID) (*workflow.Workflow, error) {
	parent, ok := id.Parent()
	if !ok {
		return nil, workflow.NodeNotFoundError(op, id)
	}
	w, err := m.findWorkflow(parent)
	if err != nil || !w.Contains(id) {
		return nil, workflow.NodeNotFoundError(op, id)
	}
	return w, nil
}

// AddNode adds a node to the workflow level parent.
func (m *Manager) AddNode(parent workflow.NodeID, name string, kind workflow.NodeKind, state workflow.NodeState) (workflow.NodeID, error) {
	var id workflow.NodeID
	err := m.mutate(func() error {
		w, err := m.findWorkflow(parent)
		if err != nil {
			return err
		}
		n, err := w.AddNode(name, kind, state)
		if err != nil {
			return err
		}
		id = n.ID
		return nil
	})
	return id, err
}

// AddContainer adds a metanode or component and returns its ID, which is
// also the ID of its nested workflow.
func (m *Manager) AddContainer(parent workflow.NodeID, name string, kind workflow.NodeKind) (workflow.NodeID, error) {
	if !kind.IsContainer() {
		return "", workflow.NewError("AddContainer").Node(parent).
			Context(fmt.Sprintf("kind %q", kind)).Cause(workflow.ErrNotContainer).Err()
	}
	return m.AddNode(parent, name, kind, workflow.Idle)
}

// Connect wires two nodes of the workflow level parent. Use parent itself as
// source or destination to reach the level's container ports.
func (m *Manager) Connect(parent, source workflow.NodeID, sourcePort int, dest workflow.NodeID, destPort int) (workflow.Connection, error) {
	var c workflow.Connection
	err := m.mutate(func() error {
		w, err := m.findWorkflow(parent)
		if err != nil {
			return err
		}
		c, err = w.Connect(source, sourcePort, dest, destPort)
		return err
	})
	return c, err
}

func (m *Manager) Disconnect(parent workflow.NodeID, c workflow.Connection) error {
	return m.mutate(func() error {
		w, err := m.findWorkflow(parent)
		if err != nil {
			return err
		}
		return w.Disconnect(c)
	})
}

func (m *Manager) RemoveNode(id workflow.NodeID) error {
	return m.mutate(func() error {
		w, err := m.parentOf("RemoveNode", id)
		if err != nil {
			return err
		}
		return w.RemoveNode(id)
	})
}

func (m *Manager) SetState(id workflow.NodeID, state workflow.NodeState) error {
	return m.mutate(func() error {
		w, err := m.parentOf("SetState", id)
		if err != nil {
			return err
		}
		return w.SetState(id, state)
	})
}

// recompute brings every level up to date. Parents are updated before their
// children so that boundary queries read fresh parent results. The caller
// holds the project lock.
func (m *Manager) recompute() error {
	if !m.dirty {
		return nil
	}
	timer := logging.StartTimer(m.logger, "recompute")

	seen := make(map[workflow.NodeID]bool)
	m.order = m.order[:0]
	for _, lv := range m.levels {
		lv.updated = false
	}

	err := m.project.Walk(func(w *workflow.Workflow) error {
		lv := m.levelFor(w)
		seen[w.ID()] = true
		m.order = append(m.order, w.ID())

		if err := lv.tracker.Update(); err != nil {
			return fmt.Errorf("dependency update of %s: %w", w.ID(), err)
		}
		lv.updated = true
		if err := lv.annotator.Run(); err != nil {
			return fmt.Errorf("scope annotation of %s: %w", w.ID(), err)
		}
		return nil
	})
	for id := range m.levels {
		if !seen[id] {
			delete(m.levels, id)
		}
	}
	if err != nil {
		timer.EndError(err)
		return err
	}

	m.dirty = false
	timer.End(logging.Count(len(m.levels)))
	if m.metrics != nil {
		m.metrics.RecordRecompute(len(m.levels))
	}
	return nil
}

// levelFor returns the level bound to w, replacing one left over from a
// removed container with the same ID.
func (m *Manager) levelFor(w *workflow.Workflow) *level {
	if lv, ok := m.levels[w.ID()]; ok && lv.wf == w {
		return lv
	}
	lv := &level{
		wf: w,
		tracker: dependency.NewTracker(w,
			dependency.WithLogger(m.logger),
			dependency.WithMetrics(m.metrics),
			dependency.WithBudgetFactor(m.budgetFactor)),
		annotator: scope.NewAnnotator(w,
			scope.WithLogger(m.logger),
			scope.WithMetrics(m.metrics),
			scope.WithBudgetFactor(m.budgetFactor)),
	}
	if w.Parent() != nil {
		w.SetBoundaryResolver(trackerResolver{m: m})
	}
	m.levels[w.ID()] = lv
	return lv
}

// levelOf recomputes if needed and returns the level holding node id.
func (m *Manager) levelOf(op string, id workflow.NodeID) (*level, error) {
	if err := m.recompute(); err != nil {
		return nil, err
	}
	parent, ok := id.Parent()
	if !ok {
		return nil, workflow.NodeNotFoundError(op, id)
	}
	lv, ok := m.levels[parent]
	if !ok {
		return nil, workflow.NodeNotFoundError(op, id)
	}
	return lv, nil
}

// Recompute brings all results up to date now instead of on the next query.
func (m *Manager) Recompute() error {
	m.project.Lock()
	defer m.project.Unlock()
	return m.recompute()
}

func (m *Manager) CanExecute(id workflow.NodeID) (bool, error) {
	m.project.Lock()
	defer m.project.Unlock()
	lv, err := m.levelOf("CanExecute", id)
	if err != nil {
		return false, err
	}
	return lv.tracker.CanExecute(id)
}

func (m *Manager) CanReset(id workflow.NodeID) (bool, error) {
	m.project.Lock()
	defer m.project.Unlock()
	lv, err := m.levelOf("CanReset", id)
	if err != nil {
		return false, err
	}
	return lv.tracker.CanReset(id)
}

func (m *Manager) Properties(id workflow.NodeID) (dependency.Properties, error) {
	m.project.Lock()
	defer m.project.Unlock()
	lv, err := m.levelOf("Properties", id)
	if err != nil {
		return dependency.Properties{}, err
	}
	return lv.tracker.Properties(id)
}

// Annotation returns the scope annotation of node id.
func (m *Manager) Annotation(id workflow.NodeID) (scope.GraphAnnotation, error) {
	m.project.Lock()
	defer m.project.Unlock()
	lv, err := m.levelOf("Annotation", id)
	if err != nil {
		return scope.GraphAnnotation{}, err
	}
	return lv.annotator.AnnotationOf(id)
}

// Errors returns every annotation with a structural scope error, level by
// level, parents first.
func (m *Manager) Errors() ([]scope.GraphAnnotation, error) {
	m.project.Lock()
	defer m.project.Unlock()
	if err := m.recompute(); err != nil {
		return nil, err
	}
	var all []scope.GraphAnnotation
	for _, id := range m.order {
		all = append(all, m.levels[id].annotator.Errors()...)
	}
	return all, nil
}

// Snapshot returns the computed levels, parents first.
func (m *Manager) Snapshot() ([]Level, error) {
	m.project.Lock()
	defer m.project.Unlock()
	if err := m.recompute(); err != nil {
		return nil, err
	}
	levels := make([]Level, 0, len(m.order))
	for _, id := range m.order {
		lv := m.levels[id]
		levels = append(levels, Level{Workflow: lv.wf, Tracker: lv.tracker, Annotator: lv.annotator})
	}
	return levels, nil
}

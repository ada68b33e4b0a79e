package workflow

import (
	"fmt"
	"slices"
	"sync"
)

// Node is a single node of a workflow level.
type Node struct {
	ID    NodeID
	Name  string
	Kind  NodeKind
	state NodeState
	child *Workflow
}

// Role returns the scope role derived from the node kind.
func (n *Node) Role() Role {
	return RoleOf(n.Kind)
}

// OwnState returns the state set on the node itself, ignoring any child workflow.
func (n *Node) OwnState() NodeState {
	return n.state
}

// Child returns the workflow owned by a metanode or component, nil otherwise.
func (n *Node) Child() *Workflow {
	return n.child
}

// State returns the effective state. Containers report the aggregate of their
// child workflow unless they are in progress themselves.
func (n *Node) State() NodeState {
	if n.child == nil || n.state.IsInProgress() {
		return n.state
	}
	return n.child.aggregateState()
}

// Workflow is an in-memory graph model for one workflow level. Nested levels
// (metanodes, components) are Workflows owned by a container node.
//
// Workflow does no locking of its own. Callers hold the project lock, obtained
// with Lock, for every read and mutation; all levels of a project share it.
type Workflow struct {
	id        NodeID
	name      string
	kind      ContainerKind
	parent    *Workflow
	nodes     map[NodeID]*Node
	incoming  map[NodeID][]Connection
	outgoing  map[NodeID][]Connection
	nextIndex int
	resolver  BoundaryResolver
	mu        sync.Mutex
}

// NewProject creates a top-level workflow.
func NewProject(index int, name string) *Workflow {
	return newWorkflow(RootID(index), name, Project, nil)
}

// NewComponentProject creates a component opened as its own project.
func NewComponentProject(index int, name string) *Workflow {
	return newWorkflow(RootID(index), name, ComponentProject, nil)
}

func newWorkflow(id NodeID, name string, kind ContainerKind, parent *Workflow) *Workflow {
	return &Workflow{
		id:        id,
		name:      name,
		kind:      kind,
		parent:    parent,
		nodes:     make(map[NodeID]*Node),
		incoming:  make(map[NodeID][]Connection),
		outgoing:  make(map[NodeID][]Connection),
		nextIndex: 1,
	}
}

func (w *Workflow) ID() NodeID        { return w.id }
func (w *Workflow) Name() string      { return w.name }
func (w *Workflow) Parent() *Workflow { return w.parent }

// Root returns the project at the top of the tree.
func (w *Workflow) Root() *Workflow {
	root := w
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// Lock acquires the exclusive project lock.
func (w *Workflow) Lock() {
	w.Root().mu.Lock()
}

// Unlock releases the project lock.
func (w *Workflow) Unlock() {
	w.Root().mu.Unlock()
}

// SetBoundaryResolver replaces the resolver used for boundary queries.
// A nil resolver restores the default StateResolver.
func (w *Workflow) SetBoundaryResolver(r BoundaryResolver) {
	w.resolver = r
}

// AddNode adds a node with the next free index. Container kinds get an empty
// child workflow.
func (w *Workflow) AddNode(name string, kind NodeKind, state NodeState) (*Node, error) {
	return w.AddNodeAt(w.nextIndex, name, kind, state)
}

// AddNodeAt adds a node with an explicit index.
func (w *Workflow) AddNodeAt(index int, name string, kind NodeKind, state NodeState) (*Node, error) {
	if index < 0 {
		return nil, NewError("AddNode").Node(w.id).Context(fmt.Sprintf("index %d", index)).
			Cause(fmt.Errorf("negative node index")).Err()
	}
	id := w.id.Child(index)
	if _, exists := w.nodes[id]; exists {
		return nil, NewError("AddNode").Node(id).Cause(ErrDuplicateNode).Err()
	}

	n := &Node{ID: id, Name: name, Kind: kind, state: state}
	if ck, ok := ContainerKindOf(kind); ok {
		n.child = newWorkflow(id, name, ck, w)
	}
	w.nodes[id] = n
	if index >= w.nextIndex {
		w.nextIndex = index + 1
	}
	return n, nil
}

// Node returns the node with the given ID.
func (w *Workflow) Node(id NodeID) (*Node, error) {
	n, ok := w.nodes[id]
	if !ok {
		return nil, NodeNotFoundError("Node", id)
	}
	return n, nil
}

// Child returns the workflow owned by the container node id.
func (w *Workflow) Child(id NodeID) (*Workflow, error) {
	n, err := w.Node(id)
	if err != nil {
		return nil, err
	}
	if n.child == nil {
		return nil, NewError("Child").Node(id).Cause(ErrNotContainer).Err()
	}
	return n.child, nil
}

// SetState sets the node's own state.
func (w *Workflow) SetState(id NodeID, state NodeState) error {
	n, ok := w.nodes[id]
	if !ok {
		return NodeNotFoundError("SetState", id)
	}
	n.state = state
	return nil
}

// RemoveNode deletes a node and every connection touching it.
func (w *Workflow) RemoveNode(id NodeID) error {
	if _, ok := w.nodes[id]; !ok {
		return NodeNotFoundError("RemoveNode", id)
	}
	for _, c := range w.incoming[id] {
		w.outgoing[c.Source] = removeConnection(w.outgoing[c.Source], c)
	}
	for _, c := range w.outgoing[id] {
		w.incoming[c.Dest] = removeConnection(w.incoming[c.Dest], c)
	}
	delete(w.incoming, id)
	delete(w.outgoing, id)
	delete(w.nodes, id)
	return nil
}

// Connect adds a connection. Use the workflow's own ID as source or
// destination to connect to a container inport or outport.
func (w *Workflow) Connect(source NodeID, sourcePort int, dest NodeID, destPort int) (Connection, error) {
	c := Connection{Source: source, SourcePort: sourcePort, Dest: dest, DestPort: destPort}
	if err := w.validateConnection(c); err != nil {
		return Connection{}, err
	}
	w.outgoing[source] = append(w.outgoing[source], c)
	w.incoming[dest] = append(w.incoming[dest], c)
	return c, nil
}

func (w *Workflow) validateConnection(c Connection) error {
	if c.SourcePort < 0 || c.DestPort < 0 {
		return ConnectionError("Connect", c, fmt.Errorf("%w: negative port index", ErrInvalidConnection))
	}
	if c.Source == c.Dest {
		return ConnectionError("Connect", c, fmt.Errorf("%w: source and destination are the same", ErrInvalidConnection))
	}
	for _, end := range []NodeID{c.Source, c.Dest} {
		if end == w.id {
			if w.kind.IsProjectRoot() {
				return ConnectionError("Connect", c, fmt.Errorf("%w: %s has no container ports", ErrInvalidConnection, w.kind))
			}
			continue
		}
		if _, ok := w.nodes[end]; !ok {
			return ConnectionError("Connect", c, ErrNodeNotFound)
		}
	}
	for _, existing := range w.incoming[c.Dest] {
		if existing.DestPort == c.DestPort {
			return NewError("Connect").Node(c.Dest).Port(c.DestPort).Cause(ErrPortOccupied).Err()
		}
	}
	if c.Source != w.id && c.Dest != w.id && w.reaches(c.Dest, c.Source) {
		return ConnectionError("Connect", c, fmt.Errorf("%w: connection would create a cycle", ErrInvalidConnection))
	}
	return nil
}

// reaches reports whether to is reachable from from along in-graph connections.
func (w *Workflow) reaches(from, to NodeID) bool {
	visited := map[NodeID]bool{from: true}
	queue := []NodeID{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			return true
		}
		for _, next := range w.Successors(current) {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// Disconnect removes a connection.
func (w *Workflow) Disconnect(c Connection) error {
	before := len(w.outgoing[c.Source])
	w.outgoing[c.Source] = removeConnection(w.outgoing[c.Source], c)
	if len(w.outgoing[c.Source]) == before {
		return ConnectionError("Disconnect", c, fmt.Errorf("%w: no such connection", ErrInvalidConnection))
	}
	w.incoming[c.Dest] = removeConnection(w.incoming[c.Dest], c)
	return nil
}

func removeConnection(conns []Connection, c Connection) []Connection {
	return slices.DeleteFunc(conns, func(x Connection) bool { return x == c })
}

// Connections returns every connection of this level.
func (w *Workflow) Connections() []Connection {
	var all []Connection
	for _, conns := range w.outgoing {
		all = append(all, conns...)
	}
	slices.SortFunc(all, func(a, b Connection) int {
		if c := a.Source.Compare(b.Source); c != 0 {
			return c
		}
		if a.SourcePort != b.SourcePort {
			return a.SourcePort - b.SourcePort
		}
		if c := a.Dest.Compare(b.Dest); c != 0 {
			return c
		}
		return a.DestPort - b.DestPort
	})
	return all
}

// Walk visits w and every nested workflow, parents before children.
func (w *Workflow) Walk(fn func(*Workflow) error) error {
	if err := fn(w); err != nil {
		return err
	}
	for _, id := range w.Nodes() {
		if child := w.nodes[id].child; child != nil {
			if err := child.Walk(fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find locates the workflow level with the given ID anywhere below w.
func (w *Workflow) Find(id NodeID) (*Workflow, error) {
	var found *Workflow
	_ = w.Walk(func(level *Workflow) error {
		if level.id == id {
			found = level
		}
		return nil
	})
	if found == nil {
		return nil, NewError("Find").Node(id).Cause(ErrNodeNotFound).Err()
	}
	return found, nil
}

func (w *Workflow) aggregateState() NodeState {
	if len(w.nodes) == 0 {
		return Idle
	}
	executed := 0
	executable := false
	for _, n := range w.nodes {
		s := n.State()
		switch {
		case s.IsInProgress():
			return Executing
		case s.IsExecuted():
			executed++
		case s.IsExecutable():
			executable = true
		}
	}
	if executed == len(w.nodes) {
		return Executed
	}
	if executable {
		return Configured
	}
	return Idle
}

// Topology

func (w *Workflow) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(w.nodes))
	for id := range w.nodes {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

func (w *Workflow) Contains(id NodeID) bool {
	_, ok := w.nodes[id]
	return ok
}

func (w *Workflow) IncomingConnections(id NodeID) []Connection {
	return slices.Clone(w.incoming[id])
}

func (w *Workflow) OutgoingConnections(id NodeID) []Connection {
	return slices.Clone(w.outgoing[id])
}

func (w *Workflow) Predecessors(id NodeID) []NodeID {
	var ids []NodeID
	for _, c := range w.incoming[id] {
		if c.Source != w.id && !slices.Contains(ids, c.Source) {
			ids = append(ids, c.Source)
		}
	}
	SortIDs(ids)
	return ids
}

func (w *Workflow) Successors(id NodeID) []NodeID {
	var ids []NodeID
	for _, c := range w.outgoing[id] {
		if c.Dest != w.id && !slices.Contains(ids, c.Dest) {
			ids = append(ids, c.Dest)
		}
	}
	SortIDs(ids)
	return ids
}

// States

func (w *Workflow) State(id NodeID) NodeState {
	if n, ok := w.nodes[id]; ok {
		return n.State()
	}
	return Idle
}

func (w *Workflow) CanExecuteDirectly(id NodeID) bool {
	return w.State(id).IsExecutable()
}

func (w *Workflow) CanResetDirectly(id NodeID) bool {
	s := w.State(id)
	return s.IsExecuted() || s.IsExecutable()
}

// Roles

func (w *Workflow) Role(id NodeID) Role {
	if n, ok := w.nodes[id]; ok {
		return n.Role()
	}
	return RoleNone
}

// SortIDs sorts node IDs in hierarchical numeric order.
func SortIDs(ids []NodeID) {
	slices.SortFunc(ids, NodeID.Compare)
}

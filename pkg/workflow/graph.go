package workflow

import "fmt"

// Connection links an outport of Source to an inport of Dest.
//
// A connection whose Source is the workflow's own ID starts at a container
// inport; one whose Dest is the workflow's own ID ends at a container outport.
type Connection struct {
	Source     NodeID
	SourcePort int
	Dest       NodeID
	DestPort   int
}

func (c Connection) String() string {
	return fmt.Sprintf("%s[%d] -> %s[%d]", c.Source, c.SourcePort, c.Dest, c.DestPort)
}

// Topology is the structural view of one workflow level.
type Topology interface {
	// ID returns the workflow's own ID, used as the endpoint of boundary connections.
	ID() NodeID
	// Nodes returns the IDs of all nodes at this level in a stable order.
	Nodes() []NodeID
	Contains(id NodeID) bool
	// IncomingConnections returns the connections ending at id. For the
	// workflow's own ID these are the connections into container outports.
	IncomingConnections(id NodeID) []Connection
	// OutgoingConnections returns the connections starting at id. For the
	// workflow's own ID these are the connections out of container inports.
	OutgoingConnections(id NodeID) []Connection
	// Predecessors and Successors return the distinct in-graph neighbours of
	// id; boundary endpoints are excluded.
	Predecessors(id NodeID) []NodeID
	Successors(id NodeID) []NodeID
}

// States exposes per-node execution state.
type States interface {
	State(id NodeID) NodeState
	// CanExecuteDirectly reports whether the node itself is ready to execute.
	CanExecuteDirectly(id NodeID) bool
	// CanResetDirectly reports whether the node itself holds resettable state.
	CanResetDirectly(id NodeID) bool
}

// Boundary answers one-hop questions about the container enclosing a workflow.
// Implementations must not recurse further than the immediate parent.
type Boundary interface {
	ContainerKind() ContainerKind
	// PredecessorExecutable reports whether something feeding the given
	// container inport from outside is executable.
	PredecessorExecutable(inport int) bool
	// SuccessorInProgress reports whether something fed by the given container
	// outport from outside is queued or executing.
	SuccessorInProgress(outport int) bool
}

// Roles tags scope start and end nodes.
type Roles interface {
	Role(id NodeID) Role
}

// Graph is everything the analysis engine reads from a workflow.
type Graph interface {
	Topology
	States
	Boundary
	Roles
}

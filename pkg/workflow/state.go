package workflow

import "fmt"

// NodeState is the execution phase of a node. It is owned by the graph model;
// the analysis engine only reads it.
type NodeState int

const (
	// Idle nodes are not configured and cannot run.
	Idle NodeState = iota
	// Configured nodes are ready to execute.
	Configured
	// Queued nodes are waiting for an executor slot.
	Queued
	// Executing nodes are running.
	Executing
	// Executed nodes hold results.
	Executed
)

var stateNames = map[NodeState]string{
	Idle:       "idle",
	Configured: "configured",
	Queued:     "queued",
	Executing:  "executing",
	Executed:   "executed",
}

func (s NodeState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("NodeState(%d)", int(s))
}

// IsExecutable reports whether the node can be executed as it is.
func (s NodeState) IsExecutable() bool {
	return s == Configured
}

// IsInProgress reports whether the node is queued or running.
func (s NodeState) IsInProgress() bool {
	return s == Queued || s == Executing
}

// IsExecuted reports whether the node holds results.
func (s NodeState) IsExecuted() bool {
	return s == Executed
}

// ParseNodeState converts a state name to a NodeState.
func ParseNodeState(name string) (NodeState, error) {
	for state, n := range stateNames {
		if n == name {
			return state, nil
		}
	}
	return Idle, fmt.Errorf("unknown node state %q", name)
}

package scope

import (
	"cmp"
	"slices"

	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// Structural scope errors. They describe the workflow, not a failure of the
// annotator, and are reported as data on the annotation.
const (
	ErrMsgMissingStart   = "Missing Start Node."
	ErrMsgMissingEnd     = "Missing End Node."
	ErrMsgDivergentScope = "Node can not be part of different (nested) loops."
	ErrMsgMultipleEnds   = "More than one Scope End node connected to this node."
)

// NoOutport marks the annotation of a node, as opposed to one of the
// workflow's own container outports.
const NoOutport = -1

// Key identifies an annotation: a node, or an outport of the annotated
// workflow itself.
type Key struct {
	ID      workflow.NodeID
	Outport int
}

// GraphAnnotation is the scope information computed for one node or
// container outport.
//
// ForwardStack holds the scope starts enclosing the node as seen on its
// inputs, so a scope end still has its own start on top. BackwardStack holds
// the enclosing scope ends as seen on the node's outputs, so a scope start
// still has its own end on top.
type GraphAnnotation struct {
	ID           workflow.NodeID
	OutportIndex int
	Depth        int
	Role         workflow.Role

	ConnectedContainerInports  []int
	ConnectedContainerOutports []int

	ForwardStack  Stack
	BackwardStack Stack
	ErrorMessage  string
}

func (a GraphAnnotation) Key() Key {
	return Key{ID: a.ID, Outport: a.OutportIndex}
}

func (a GraphAnnotation) HasError() bool {
	return a.ErrorMessage != ""
}

func (a GraphAnnotation) clone() GraphAnnotation {
	a.ConnectedContainerInports = slices.Clone(a.ConnectedContainerInports)
	a.ConnectedContainerOutports = slices.Clone(a.ConnectedContainerOutports)
	return a
}

// Compare orders annotations by depth, then node ID, then outport.
func Compare(a, b GraphAnnotation) int {
	if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
		return c
	}
	if c := a.ID.Compare(b.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.OutportIndex, b.OutportIndex)
}

// depthOf is the nesting depth of a node given its inbound forward stack.
// A start sits at the depth of its enclosing scope, an end closes its scope.
func depthOf(role workflow.Role, inbound Stack) int {
	switch role {
	case workflow.RoleScopeEnd:
		return max(inbound.Len()-1, 0)
	default:
		return inbound.Len()
	}
}

// forwardOut is the stack a node hands to its successors.
func forwardOut(a GraphAnnotation) Stack {
	switch a.Role {
	case workflow.RoleScopeStart:
		if a.ForwardStack.Contains(a.ID) {
			return a.ForwardStack
		}
		return a.ForwardStack.Push(a.ID)
	case workflow.RoleScopeEnd:
		return a.ForwardStack.Pop()
	default:
		return a.ForwardStack
	}
}

// backwardOut is the stack a node hands to its predecessors.
func backwardOut(a GraphAnnotation) Stack {
	switch a.Role {
	case workflow.RoleScopeEnd:
		if a.BackwardStack.Contains(a.ID) {
			return a.BackwardStack
		}
		return a.BackwardStack.Push(a.ID)
	case workflow.RoleScopeStart:
		return a.BackwardStack.Pop()
	default:
		return a.BackwardStack
	}
}

// unionPorts merges two sorted port sets and reports whether dst grew.
func unionPorts(dst, src []int) ([]int, bool) {
	changed := false
	for _, p := range src {
		i, found := slices.BinarySearch(dst, p)
		if !found {
			dst = slices.Insert(dst, i, p)
			changed = true
		}
	}
	return dst, changed
}

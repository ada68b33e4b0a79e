package scope

import (
	"strings"

	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// Stack is an immutable stack of node IDs. Push and Pop return new stacks
// that share their lower frames with the receiver, so stacks can be copied
// and compared freely. The zero value is the empty stack.
type Stack struct {
	top *frame
}

type frame struct {
	id    workflow.NodeID
	below *frame
	size  int
}

// StackOf builds a stack from ids listed outermost first.
func StackOf(ids ...workflow.NodeID) Stack {
	var s Stack
	for _, id := range ids {
		s = s.Push(id)
	}
	return s
}

func (s Stack) Push(id workflow.NodeID) Stack {
	return Stack{top: &frame{id: id, below: s.top, size: s.Len() + 1}}
}

// Pop removes the top element. Popping the empty stack yields the empty stack.
func (s Stack) Pop() Stack {
	if s.top == nil {
		return s
	}
	return Stack{top: s.top.below}
}

// Peek returns the innermost element.
func (s Stack) Peek() (workflow.NodeID, bool) {
	if s.top == nil {
		return "", false
	}
	return s.top.id, true
}

func (s Stack) Len() int {
	if s.top == nil {
		return 0
	}
	return s.top.size
}

func (s Stack) IsEmpty() bool {
	return s.top == nil
}

func (s Stack) Contains(id workflow.NodeID) bool {
	for f := s.top; f != nil; f = f.below {
		if f.id == id {
			return true
		}
	}
	return false
}

// Slice returns the elements outermost first.
func (s Stack) Slice() []workflow.NodeID {
	ids := make([]workflow.NodeID, s.Len())
	i := len(ids) - 1
	for f := s.top; f != nil; f = f.below {
		ids[i] = f.id
		i--
	}
	return ids
}

func (s Stack) Equal(other Stack) bool {
	if s.Len() != other.Len() {
		return false
	}
	a, b := s.top, other.top
	for a != b {
		if a.id != b.id {
			return false
		}
		a, b = a.below, b.below
	}
	return true
}

// String renders the stack outermost first, e.g. "[0:1 0:4]".
func (s Stack) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, id := range s.Slice() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(id))
	}
	b.WriteByte(']')
	return b.String()
}

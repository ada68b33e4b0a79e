package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

const idSeparator = ":"

// NodeID identifies a node within a workflow tree. IDs are hierarchical: a node
// with index 3 inside the metanode "0:4" has the ID "0:4:3", so an ID is always
// qualified by the workflow that contains it.
type NodeID string

// RootID returns the ID of a top-level project with the given index.
func RootID(index int) NodeID {
	return NodeID(strconv.Itoa(index))
}

// ParseNodeID validates s and converts it to a NodeID.
func ParseNodeID(s string) (NodeID, error) {
	if s == "" {
		return "", fmt.Errorf("empty node id")
	}
	for _, part := range strings.Split(s, idSeparator) {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid node id %q: segment %q is not a non-negative integer", s, part)
		}
	}
	return NodeID(s), nil
}

// Child returns the ID of the node with the given index inside id.
func (id NodeID) Child(index int) NodeID {
	return NodeID(string(id) + idSeparator + strconv.Itoa(index))
}

// Parent returns the ID of the workflow containing id.
// Top-level IDs have no parent.
func (id NodeID) Parent() (NodeID, bool) {
	i := strings.LastIndex(string(id), idSeparator)
	if i < 0 {
		return "", false
	}
	return id[:i], true
}

// Index returns the last segment of id, or -1 if the ID is malformed.
func (id NodeID) Index() int {
	s := string(id)
	if i := strings.LastIndex(s, idSeparator); i >= 0 {
		s = s[i+1:]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// IsChildOf reports whether id is a direct child of parent.
func (id NodeID) IsChildOf(parent NodeID) bool {
	p, ok := id.Parent()
	return ok && p == parent
}

func (id NodeID) String() string {
	return string(id)
}

// Compare orders IDs segment by segment numerically, so "0:2" sorts before "0:10".
func (id NodeID) Compare(other NodeID) int {
	a := strings.Split(string(id), idSeparator)
	b := strings.Split(string(other), idSeparator)
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		x, errX := strconv.Atoi(a[i])
		y, errY := strconv.Atoi(b[i])
		if errX != nil || errY != nil {
			return strings.Compare(a[i], b[i])
		}
		if x < y {
			return -1
		}
		return 1
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

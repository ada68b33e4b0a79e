package workflow

// Role marks nodes that open or close a scope (loop, try/catch).
type Role int

const (
	RoleNone Role = iota
	RoleScopeStart
	RoleScopeEnd
)

func (r Role) String() string {
	switch r {
	case RoleScopeStart:
		return "scope-start"
	case RoleScopeEnd:
		return "scope-end"
	default:
		return "none"
	}
}

// NodeKind names the capability of a node type.
type NodeKind string

const (
	KindNode      NodeKind = "node"
	KindLoopStart NodeKind = "loop-start"
	KindLoopEnd   NodeKind = "loop-end"
	KindTryStart  NodeKind = "try-start"
	KindCatchEnd  NodeKind = "catch-end"
	KindMetanode  NodeKind = "metanode"
	KindComponent NodeKind = "component"
)

var kindRoles = map[NodeKind]Role{
	KindLoopStart: RoleScopeStart,
	KindTryStart:  RoleScopeStart,
	KindLoopEnd:   RoleScopeEnd,
	KindCatchEnd:  RoleScopeEnd,
}

// RoleOf derives the scope role from a node kind.
func RoleOf(kind NodeKind) Role {
	return kindRoles[kind]
}

// IsContainer reports whether nodes of this kind own a child workflow.
func (k NodeKind) IsContainer() bool {
	return k == KindMetanode || k == KindComponent
}

// ContainerKind describes what encloses a workflow.
type ContainerKind int

const (
	// Project is a top-level workflow.
	Project ContainerKind = iota
	// ComponentProject is a component opened as its own project.
	ComponentProject
	// Metanode is a plain grouping container; its ports pass data straight through.
	Metanode
	// Component is an encapsulated container that executes as one unit.
	Component
)

func (k ContainerKind) String() string {
	switch k {
	case Project:
		return "project"
	case ComponentProject:
		return "component-project"
	case Metanode:
		return "metanode"
	case Component:
		return "component"
	default:
		return "unknown"
	}
}

// IsProjectRoot reports whether the workflow has no enclosing container.
func (k ContainerKind) IsProjectRoot() bool {
	return k == Project || k == ComponentProject
}

// ContainerKindOf maps a container node kind to the kind of the workflow it owns.
func ContainerKindOf(kind NodeKind) (ContainerKind, bool) {
	switch kind {
	case KindMetanode:
		return Metanode, true
	case KindComponent:
		return Component, true
	}
	return Project, false
}

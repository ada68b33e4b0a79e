// Package loader reads workflow definitions from YAML and builds them into
// workflow models.
package loader

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Endpoint names a connection end: a node index within the same level, or
// "in"/"out" for the enclosing container's ports.
type Endpoint string

const (
	ContainerIn  Endpoint = "in"
	ContainerOut Endpoint = "out"
)

// UnmarshalYAML accepts both `from: 3` and `from: in`.
func (e *Endpoint) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: endpoint must be a node index, %q or %q", node.Line, ContainerIn, ContainerOut)
	}
	*e = Endpoint(node.Value)
	return nil
}

// Index returns the node index the endpoint refers to.
func (e Endpoint) Index() (int, bool) {
	n, err := strconv.Atoi(string(e))
	return n, err == nil && n >= 0
}

// Definition is a project as written in a workflow file.
type Definition struct {
	Name string `yaml:"name" validate:"required"`
	// Component marks a component opened as its own project.
	Component bool `yaml:"component"`

	Level `yaml:",inline"`
}

// Level holds the nodes and connections of one workflow level.
type Level struct {
	Nodes       []NodeDef       `yaml:"nodes" validate:"dive"`
	Connections []ConnectionDef `yaml:"connections" validate:"dive"`
}

type NodeDef struct {
	ID    int    `yaml:"id" validate:"min=0"`
	Name  string `yaml:"name" validate:"required"`
	Kind  string `yaml:"kind" validate:"omitempty,oneof=node loop-start loop-end try-start catch-end metanode component"`
	State string `yaml:"state" validate:"omitempty,oneof=idle configured queued executing executed"`

	// Workflow is the nested level of a metanode or component.
	Workflow *Level `yaml:"workflow"`
}

type ConnectionDef struct {
	From     Endpoint `yaml:"from" validate:"required"`
	FromPort int      `yaml:"from_port" validate:"min=0"`
	To       Endpoint `yaml:"to" validate:"required"`
	ToPort   int      `yaml:"to_port" validate:"min=0"`
}

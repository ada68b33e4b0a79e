package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/dd0wney/cluso-flowscope/pkg/validation"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a definition file.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks field rules and the references between nodes and
// connections on every level.
func (d *Definition) Validate() error {
	if err := validation.Struct(d); err != nil {
		return err
	}
	return d.Level.check("workflow", true)
}

func (l *Level) check(path string, top bool) error {
	cv := validation.NewConfigValidator(path)
	ids := make(map[int]bool, len(l.Nodes))

	for i, n := range l.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if ids[n.ID] {
			cv.Custom(field, func() error { return fmt.Errorf("duplicate node id %d", n.ID) })
		}
		ids[n.ID] = true

		if n.Workflow != nil && !workflow.NodeKind(n.Kind).IsContainer() {
			cv.Custom(field, func() error {
				return fmt.Errorf("node %d of kind %q cannot own a workflow", n.ID, kindOf(n.Kind))
			})
		}
	}

	for i, c := range l.Connections {
		field := fmt.Sprintf("connections[%d]", i)
		cv.Custom(field+".from", func() error { return checkEndpoint(c.From, ContainerIn, ids, top) })
		cv.Custom(field+".to", func() error { return checkEndpoint(c.To, ContainerOut, ids, top) })
	}

	errs := []error{cv.Validate()}
	for _, n := range l.Nodes {
		if n.Workflow != nil {
			errs = append(errs, n.Workflow.check(fmt.Sprintf("%s.node[%d]", path, n.ID), false))
		}
	}
	return errors.Join(errs...)
}

func checkEndpoint(e, port Endpoint, ids map[int]bool, top bool) error {
	if e == port {
		if top {
			return fmt.Errorf("%q is not available at the project level", e)
		}
		return nil
	}
	idx, ok := e.Index()
	if !ok {
		return fmt.Errorf("%q is neither a node id nor %q", e, port)
	}
	if !ids[idx] {
		return fmt.Errorf("unknown node id %d", idx)
	}
	return nil
}

func kindOf(kind string) workflow.NodeKind {
	if kind == "" {
		return workflow.KindNode
	}
	return workflow.NodeKind(kind)
}

func stateOf(state string) (workflow.NodeState, error) {
	if state == "" {
		return workflow.Idle, nil
	}
	return workflow.ParseNodeState(state)
}

// Build creates the workflow model described by d.
func Build(d *Definition) (*workflow.Workflow, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	project := workflow.NewProject(0, d.Name)
	if d.Component {
		project = workflow.NewComponentProject(0, d.Name)
	}
	if err := buildLevel(project, &d.Level); err != nil {
		return nil, err
	}
	return project, nil
}

func buildLevel(w *workflow.Workflow, l *Level) error {
	for _, n := range l.Nodes {
		state, err := stateOf(n.State)
		if err != nil {
			return err
		}
		node, err := w.AddNodeAt(n.ID, n.Name, kindOf(n.Kind), state)
		if err != nil {
			return err
		}
		if n.Workflow == nil {
			continue
		}
		child, err := w.Child(node.ID)
		if err != nil {
			return err
		}
		if err := buildLevel(child, n.Workflow); err != nil {
			return err
		}
	}

	for _, c := range l.Connections {
		if _, err := w.Connect(resolve(w, c.From), c.FromPort, resolve(w, c.To), c.ToPort); err != nil {
			return err
		}
	}
	return nil
}

func resolve(w *workflow.Workflow, e Endpoint) workflow.NodeID {
	if idx, ok := e.Index(); ok {
		return w.ID().Child(idx)
	}
	return w.ID()
}

// Load reads a definition file and builds it.
func Load(path string) (*workflow.Workflow, error) {
	def, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Build(def)
}

package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-flowscope/pkg/dependency"
	"github.com/dd0wney/cluso-flowscope/pkg/scope"
	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Reader(configured) -> Loop Start -> Body, with no loop end.
func buildReport(t *testing.T) *Report {
	t.Helper()
	w := workflow.NewProject(0, "demo")
	reader, err := w.AddNode("Reader", workflow.KindNode, workflow.Configured)
	require.NoError(t, err)
	start, err := w.AddNode("Loop Start", workflow.KindLoopStart, workflow.Idle)
	require.NoError(t, err)
	body, err := w.AddNode("Body", workflow.KindNode, workflow.Idle)
	require.NoError(t, err)
	_, err = w.Connect(reader.ID, 0, start.ID, 0)
	require.NoError(t, err)
	_, err = w.Connect(start.ID, 0, body.ID, 0)
	require.NoError(t, err)

	tr := dependency.NewTracker(w)
	require.NoError(t, tr.Update())
	an := scope.NewAnnotator(w)
	require.NoError(t, an.Run())

	r, err := Build(w, tr, an)
	require.NoError(t, err)
	return r
}

func TestBuild(t *testing.T) {
	r := buildReport(t)

	want := &Report{
		Workflow:  "0",
		Name:      "demo",
		Container: "project",
		Nodes: []NodeResult{
			{ID: "0:1", Name: "Reader", Kind: workflow.KindNode, State: "configured", Role: "none",
				ForwardStack: []workflow.NodeID{}, BackwardStack: []workflow.NodeID{}, CanExecute: true, CanReset: true},
			{ID: "0:2", Name: "Loop Start", Kind: workflow.KindLoopStart, State: "idle", Role: "scope-start",
				ForwardStack: []workflow.NodeID{}, BackwardStack: []workflow.NodeID{}, CanExecute: true,
				Error: scope.ErrMsgMissingEnd},
			{ID: "0:3", Name: "Body", Kind: workflow.KindNode, State: "idle", Role: "none", Depth: 1,
				ForwardStack: []workflow.NodeID{"0:2"}, BackwardStack: []workflow.NodeID{}, CanExecute: true},
		},
		ErrorCount: 1,
	}
	if diff := cmp.Diff(want, r, cmpopts.IgnoreFields(Report{}, "ID", "GeneratedAt")); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	_, err := uuid.Parse(r.ID)
	assert.NoError(t, err, "report ID must be a UUID")
	assert.False(t, r.GeneratedAt.IsZero())
	assert.True(t, r.HasErrors())
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, workflow.NodeID("0:2"), r.Errors()[0].ID)
}

func TestBuild_RequiresCompletedAnnotation(t *testing.T) {
	w := workflow.NewProject(0, "demo")
	tr := dependency.NewTracker(w)
	require.NoError(t, tr.Update())

	_, err := Build(w, tr, scope.NewAnnotator(w))
	assert.ErrorIs(t, err, scope.ErrForwardPassRequired)
}

func TestRender_JSON(t *testing.T) {
	r := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatJSON))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, 1, decoded.ErrorCount)
	assert.Len(t, decoded.Nodes, 3)
	assert.Contains(t, buf.String(), `"error": "Missing End Node."`)
}

func TestRender_YAML(t *testing.T) {
	r := buildReport(t)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, FormatYAML))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "demo", decoded["name"])
	assert.Equal(t, 1, decoded["error_count"])
}

func TestRender_Text(t *testing.T) {
	r := buildReport(t)

	for _, color := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, r, FormatText, WithColor(color)))
		out := buf.String()

		for _, want := range []string{"0 demo (project)", "Loop Start", "scope-start", "Missing End Node.", "1 structural error(s)"} {
			assert.Contains(t, out, want)
		}
		// Not a terminal, so no escape sequences either way.
		assert.False(t, strings.Contains(out, "\x1b["), "unexpected ANSI escapes")
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	err := Render(&bytes.Buffer{}, buildReport(t), "xml")
	assert.ErrorContains(t, err, `unknown report format "xml"`)
}

package scope

import (
	"testing"

	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
	"github.com/google/go-cmp/cmp"
)

func TestMergeStacks(t *testing.T) {
	tests := []struct {
		name string
		a, b []workflow.NodeID
		want []workflow.NodeID
		ok   bool
	}{
		{"equal", []workflow.NodeID{"0:1"}, []workflow.NodeID{"0:1"}, []workflow.NodeID{"0:1"}, true},
		{"empty side branch", nil, []workflow.NodeID{"0:1", "0:2"}, []workflow.NodeID{"0:1", "0:2"}, true},
		{"prefix", []workflow.NodeID{"0:1", "0:2"}, []workflow.NodeID{"0:1"}, []workflow.NodeID{"0:1", "0:2"}, true},
		{"splice from a", []workflow.NodeID{"0:1", "0:2", "0:3"}, []workflow.NodeID{"0:1", "0:3"}, []workflow.NodeID{"0:1", "0:2", "0:3"}, true},
		{"splice from b", []workflow.NodeID{"0:1", "0:3"}, []workflow.NodeID{"0:1", "0:2", "0:3"}, []workflow.NodeID{"0:1", "0:2", "0:3"}, true},
		{"divergent", []workflow.NodeID{"0:1", "0:2"}, []workflow.NodeID{"0:1", "0:3"}, []workflow.NodeID{"0:1"}, false},
		{"disjoint", []workflow.NodeID{"0:2"}, []workflow.NodeID{"0:3"}, []workflow.NodeID{}, false},
		{"crossed order", []workflow.NodeID{"0:1", "0:2"}, []workflow.NodeID{"0:2", "0:1"}, []workflow.NodeID{"0:1", "0:2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mergeStacks(StackOf(tt.a...), StackOf(tt.b...))
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got.Slice()); diff != "" {
				t.Errorf("merged stack mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeForward_IdenticalIsNoOp(t *testing.T) {
	x := GraphAnnotation{
		ID:                        "0:4",
		OutportIndex:              NoOutport,
		Depth:                     1,
		ConnectedContainerInports: []int{0, 2},
		ForwardStack:              StackOf("0:1"),
	}
	before := x.clone()

	if MergeForward(&x, x.clone()) {
		t.Error("merging an annotation with itself reported a change")
	}
	if diff := cmp.Diff(before, x, cmp.Comparer(Stack.Equal)); diff != "" {
		t.Errorf("annotation modified (-want +got):\n%s", diff)
	}
}

func TestMergeForward_DepthAndInports(t *testing.T) {
	x := GraphAnnotation{ID: "0:4", OutportIndex: NoOutport, Depth: 1, ConnectedContainerInports: []int{1}}
	in := GraphAnnotation{ID: "0:4", OutportIndex: NoOutport, Depth: 2, ConnectedContainerInports: []int{0, 1}}

	if !MergeForward(&x, in) {
		t.Fatal("expected a change")
	}
	if x.Depth != 2 {
		t.Errorf("Depth = %d, want 2", x.Depth)
	}
	if diff := cmp.Diff([]int{0, 1}, x.ConnectedContainerInports); diff != "" {
		t.Errorf("inports mismatch (-want +got):\n%s", diff)
	}

	// A lower depth never lowers the merged one.
	in.Depth = 0
	if MergeForward(&x, in) || x.Depth != 2 {
		t.Errorf("Depth = %d after merging a shallower path", x.Depth)
	}
}

func TestMergeForward_RequiresSameKey(t *testing.T) {
	x := GraphAnnotation{ID: "0:4", OutportIndex: NoOutport}
	if MergeForward(&x, GraphAnnotation{ID: "0:4", OutportIndex: 0, Depth: 3}) {
		t.Error("merged an annotation for a different outport")
	}
	if x.Depth != 0 {
		t.Errorf("Depth = %d", x.Depth)
	}
}

func TestMergeForward_DivergenceIsTerminal(t *testing.T) {
	x := GraphAnnotation{ID: "0:9", OutportIndex: NoOutport, ForwardStack: StackOf("0:1")}

	if !MergeForward(&x, GraphAnnotation{ID: "0:9", OutportIndex: NoOutport, ForwardStack: StackOf("0:2")}) {
		t.Fatal("expected a change")
	}
	if x.ErrorMessage != ErrMsgDivergentScope {
		t.Fatalf("ErrorMessage = %q", x.ErrorMessage)
	}
	frozen := x.ForwardStack
	MergeForward(&x, GraphAnnotation{ID: "0:9", OutportIndex: NoOutport, ForwardStack: StackOf("0:3", "0:4")})
	if !x.ForwardStack.Equal(frozen) || x.ErrorMessage != ErrMsgDivergentScope {
		t.Errorf("stack %s / error %q changed after divergence", x.ForwardStack, x.ErrorMessage)
	}
}

func TestMergeForward_MissingStartClears(t *testing.T) {
	end := GraphAnnotation{ID: "0:5", OutportIndex: NoOutport, Role: workflow.RoleScopeEnd}
	checkStart(&end)
	if end.ErrorMessage != ErrMsgMissingStart {
		t.Fatalf("ErrorMessage = %q, want missing start", end.ErrorMessage)
	}

	MergeForward(&end, GraphAnnotation{ID: "0:5", OutportIndex: NoOutport, Role: workflow.RoleScopeEnd, ForwardStack: StackOf("0:1")})
	if end.HasError() {
		t.Errorf("ErrorMessage = %q after a start arrived", end.ErrorMessage)
	}
}

func TestSetAndMergeBackwards(t *testing.T) {
	node := GraphAnnotation{ID: "0:2", OutportIndex: NoOutport}
	endA := GraphAnnotation{ID: "0:3", OutportIndex: NoOutport, Role: workflow.RoleScopeEnd}
	plain := GraphAnnotation{ID: "0:4", OutportIndex: NoOutport, BackwardStack: StackOf("0:3")}
	outport := GraphAnnotation{ID: "0", OutportIndex: 1, ConnectedContainerOutports: []int{1}}

	if !SetAndMergeBackwards(&node, []GraphAnnotation{endA, plain, outport}) {
		t.Fatal("expected a change")
	}
	if diff := cmp.Diff([]workflow.NodeID{"0:3"}, node.BackwardStack.Slice()); diff != "" {
		t.Errorf("backward stack mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, node.ConnectedContainerOutports); diff != "" {
		t.Errorf("outports mismatch (-want +got):\n%s", diff)
	}
	if node.HasError() {
		t.Errorf("unexpected error %q", node.ErrorMessage)
	}
	if SetAndMergeBackwards(&node, []GraphAnnotation{endA, plain, outport}) {
		t.Error("recomputing from the same successors reported a change")
	}

	endB := GraphAnnotation{ID: "0:5", OutportIndex: NoOutport, Role: workflow.RoleScopeEnd}
	SetAndMergeBackwards(&node, []GraphAnnotation{endA, endB})
	if node.ErrorMessage != ErrMsgMultipleEnds {
		t.Errorf("ErrorMessage = %q, want multiple ends", node.ErrorMessage)
	}
}

func TestSetAndMergeBackwards_KeepsForwardError(t *testing.T) {
	node := GraphAnnotation{ID: "0:2", OutportIndex: NoOutport, ErrorMessage: ErrMsgDivergentScope}
	endA := GraphAnnotation{ID: "0:3", OutportIndex: NoOutport, Role: workflow.RoleScopeEnd}
	endB := GraphAnnotation{ID: "0:5", OutportIndex: NoOutport, Role: workflow.RoleScopeEnd}

	SetAndMergeBackwards(&node, []GraphAnnotation{endA, endB})
	if node.ErrorMessage != ErrMsgDivergentScope {
		t.Errorf("ErrorMessage = %q, forward error must win", node.ErrorMessage)
	}
}

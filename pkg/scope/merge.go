package scope

import (
	"slices"

	"github.com/dd0wney/cluso-flowscope/pkg/workflow"
)

// mergeStacks combines two stacks reaching the same node. Walking both from
// the outermost element, matching elements are kept; when they differ and one
// stack holds the other's next element further in, the elements skipped over
// are spliced in. Otherwise the stacks diverge and the result is cut at the
// point of divergence with ok set to false.
func mergeStacks(a, b Stack) (merged Stack, ok bool) {
	switch {
	case a.Equal(b):
		return a, true
	case a.IsEmpty():
		return b, true
	case b.IsEmpty():
		return a, true
	}

	as, bs := a.Slice(), b.Slice()
	out := make([]workflow.NodeID, 0, len(as)+len(bs))
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		if as[i] == bs[j] {
			out = append(out, as[i])
			i++
			j++
			continue
		}
		if k := slices.Index(as[i+1:], bs[j]); k >= 0 {
			out = append(out, as[i:i+1+k]...)
			i += 1 + k
			continue
		}
		if k := slices.Index(bs[j+1:], as[i]); k >= 0 {
			out = append(out, bs[j:j+1+k]...)
			j += 1 + k
			continue
		}
		return StackOf(out...), false
	}
	out = append(out, as[i:]...)
	out = append(out, bs[j:]...)

	seen := make(map[workflow.NodeID]struct{}, len(out))
	for n, id := range out {
		if _, dup := seen[id]; dup {
			return StackOf(out[:n]...), false
		}
		seen[id] = struct{}{}
	}
	return StackOf(out...), true
}

// MergeForward folds an annotation arriving over another path into existing
// and reports whether existing changed. Both must describe the same node and
// outport. Once a node is flagged as sitting in divergent scopes its forward
// stack no longer changes.
func MergeForward(existing *GraphAnnotation, incoming GraphAnnotation) bool {
	if existing.Key() != incoming.Key() {
		return false
	}
	changed := false

	if incoming.Depth > existing.Depth {
		existing.Depth = incoming.Depth
		changed = true
	}

	var grew bool
	existing.ConnectedContainerInports, grew = unionPorts(existing.ConnectedContainerInports, incoming.ConnectedContainerInports)
	changed = changed || grew

	if existing.ErrorMessage != ErrMsgDivergentScope {
		merged, ok := mergeStacks(existing.ForwardStack, incoming.ForwardStack)
		if !merged.Equal(existing.ForwardStack) {
			existing.ForwardStack = merged
			changed = true
		}
		if !ok {
			existing.ErrorMessage = ErrMsgDivergentScope
			changed = true
		}
	}

	return checkStart(existing) || changed
}

// checkStart flags a scope end that has no start on its inbound stack and
// clears the flag once one shows up.
func checkStart(a *GraphAnnotation) bool {
	if a.Role != workflow.RoleScopeEnd || a.OutportIndex != NoOutport {
		return false
	}
	switch {
	case a.ForwardStack.IsEmpty() && a.ErrorMessage == "":
		a.ErrorMessage = ErrMsgMissingStart
		return true
	case !a.ForwardStack.IsEmpty() && a.ErrorMessage == ErrMsgMissingStart:
		a.ErrorMessage = ""
		return true
	}
	return false
}

// SetAndMergeBackwards recomputes the backward side of a from the annotations
// of all its successors and reports whether a changed. Successor stacks are
// taken as the successors hand them upstream. Errors found here never replace
// an error from the forward pass.
func SetAndMergeBackwards(a *GraphAnnotation, successors []GraphAnnotation) bool {
	changed := false

	for _, s := range successors {
		var grew bool
		a.ConnectedContainerOutports, grew = unionPorts(a.ConnectedContainerOutports, s.ConnectedContainerOutports)
		changed = changed || grew
	}

	if a.ErrorMessage == ErrMsgMultipleEnds {
		return changed
	}

	var merged Stack
	ok := true
	for _, s := range successors {
		if merged, ok = mergeStacks(merged, backwardOut(s)); !ok {
			break
		}
	}
	if !merged.Equal(a.BackwardStack) {
		a.BackwardStack = merged
		changed = true
	}
	if !ok && a.ErrorMessage == "" {
		a.ErrorMessage = ErrMsgMultipleEnds
		changed = true
	}
	return changed
}

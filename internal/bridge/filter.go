package bridge

import (
	"context"
	"iter"
)

// FilterClientToolCalls drops tool calls the agent executed server-side for a
// tool the client declared itself, together with their results. The client
// runs those tools on its own and must not see a second execution trace.
//
// A call to a client tool is held back until the tool phase it belongs to is
// resolved: a result for it means the server executed it (call and result are
// dropped); any text, state or finish fragment means it was left for the
// client (the call is released). While a call is held, later tool fragments
// queue behind it so output order is preserved. Nothing else is buffered.
func FilterClientToolCalls(ctx context.Context, fragments iter.Seq2[Fragment, error], clientTools map[string]struct{}) iter.Seq2[Fragment, error] {
	if len(clientTools) == 0 {
		return fragments
	}

	return func(yield func(Fragment, error) bool) {
		var (
			queue      []Fragment
			unresolved = make(map[string]bool)
			suppressed = make(map[string]bool)
		)

		flush := func() bool {
			pending := queue
			queue = nil
			clear(unresolved)
			for _, f := range pending {
				if !yield(f, nil) {
					return false
				}
			}
			return true
		}

		for f, err := range fragments {
			if err != nil {
				if !flush() {
					return
				}
				yield(Fragment{}, err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Fragment{}, err)
				return
			}

			switch {
			case f.Kind == FragmentToolCall && isClientTool(clientTools, f.ToolName) && f.ToolCallID != "":
				queue = append(queue, f)
				unresolved[f.ToolCallID] = true
				continue

			case f.Kind == FragmentToolResult && unresolved[f.ToolCallID]:
				queue = removeCall(queue, f.ToolCallID)
				delete(unresolved, f.ToolCallID)
				suppressed[f.ToolCallID] = true
				if len(unresolved) == 0 && !flush() {
					return
				}
				continue

			case f.Kind == FragmentToolResult && suppressed[f.ToolCallID]:
				continue
			}

			if len(unresolved) > 0 {
				if f.Kind == FragmentToolCall || f.Kind == FragmentToolResult {
					queue = append(queue, f)
					continue
				}
				if !flush() {
					return
				}
			}

			if !yield(f, nil) {
				return
			}
		}

		flush()
	}
}

func isClientTool(clientTools map[string]struct{}, name string) bool {
	_, ok := clientTools[name]
	return ok
}

func removeCall(queue []Fragment, callID string) []Fragment {
	out := queue[:0]
	for _, f := range queue {
		if f.Kind == FragmentToolCall && f.ToolCallID == callID {
			continue
		}
		out = append(out, f)
	}
	return out
}

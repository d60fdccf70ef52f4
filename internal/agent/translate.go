package agent

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"strings"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	adksession "google.golang.org/adk/session"

	"agui-bridge/internal/bridge"
	"agui-bridge/internal/session"
)

// tempStatePrefix marks ADK state that lives for one invocation only.
const tempStatePrefix = "temp:"

// translator turns ADK runner events into bridge fragments.
//
// In SSE mode ADK streams text as partial events and then repeats the whole
// text in a final event; the final copy is dropped when the text was already
// streamed.
type translator struct {
	sess  *session.Session
	state map[string]any

	messageID string
	streamed  bool
	// Map to track tool calls by their ID (from FunctionCall.ID)
	calls map[string]string
}

func newTranslator(sess *session.Session, state map[string]any) *translator {
	return &translator{
		sess:  sess,
		state: maps.Clone(state),
		calls: make(map[string]string),
	}
}

func (t *translator) translate(seq iter.Seq2[*adksession.Event, error]) iter.Seq2[bridge.Fragment, error] {
	return func(yield func(bridge.Fragment, error) bool) {
		for ev, err := range seq {
			if err != nil {
				yield(bridge.Fragment{}, err)
				return
			}
			if ev == nil {
				continue
			}
			if ev.ErrorMessage != "" || ev.ErrorCode != "" {
				yield(bridge.Fragment{}, fmt.Errorf("agent error %s: %s", ev.ErrorCode, ev.ErrorMessage))
				return
			}
			for _, fragment := range t.fragments(ev) {
				if !yield(fragment, nil) {
					return
				}
			}
		}
	}
}

func (t *translator) fragments(ev *adksession.Event) []bridge.Fragment {
	var out []bridge.Fragment

	if ev.Content != nil {
		for _, part := range ev.Content.Parts {
			if part == nil {
				continue
			}
			switch {
			case part.Text != "" && !part.Thought:
				if ev.Partial {
					out = append(out, bridge.TextFragment(t.currentMessage(), part.Text))
					t.streamed = true
				} else if !t.streamed {
					out = append(out, bridge.TextFragment(t.currentMessage(), part.Text))
				}

			case part.FunctionCall != nil && !ev.Partial:
				fc := part.FunctionCall
				// Use ADK's function call ID if available, otherwise generate one
				callID := fc.ID
				if callID == "" {
					callID = events.GenerateToolCallID()
				}
				t.calls[callKey(fc.ID, fc.Name)] = callID

				args := ""
				if fc.Args != nil {
					data, err := json.Marshal(fc.Args)
					if err == nil {
						args = string(data)
					}
				}
				out = append(out, bridge.ToolCallFragment(callID, fc.Name, args))

			case part.FunctionResponse != nil && !ev.Partial:
				fr := part.FunctionResponse
				callID, ok := t.calls[callKey(fr.ID, fr.Name)]
				if !ok {
					callID = fr.ID
				}
				if callID == "" {
					callID = events.GenerateToolCallID()
				}

				result := ""
				if fr.Response != nil {
					if data, err := json.Marshal(fr.Response); err == nil {
						result = string(data)
					} else {
						result = fmt.Sprintf("%v", fr.Response)
					}
				}
				out = append(out, bridge.ToolResultFragment(callID, result))
			}
		}
	}

	if !ev.Partial && t.messageID != "" {
		out = append(out, bridge.FinishFragment())
		t.messageID = ""
		t.streamed = false
	}

	if delta := visibleState(ev.Actions.StateDelta); len(delta) > 0 {
		out = append(out, bridge.StateFragment(t.applyState(delta)))
	}
	return out
}

func (t *translator) currentMessage() string {
	if t.messageID == "" {
		t.messageID = events.GenerateMessageID()
	}
	return t.messageID
}

// applyState merges delta into the run's state and returns a snapshot.
func (t *translator) applyState(delta map[string]any) map[string]any {
	if t.sess != nil {
		t.sess.MergeState(delta)
		return t.sess.Snapshot()
	}
	if t.state == nil {
		t.state = make(map[string]any, len(delta))
	}
	maps.Copy(t.state, delta)
	return maps.Clone(t.state)
}

func visibleState(delta map[string]any) map[string]any {
	if len(delta) == 0 {
		return nil
	}
	out := make(map[string]any, len(delta))
	for k, v := range delta {
		if !strings.HasPrefix(k, tempStatePrefix) {
			out[k] = v
		}
	}
	return out
}

func callKey(id, name string) string {
	if id != "" {
		return id
	}
	return "name:" + name
}

package bridge

import (
	"context"
	"errors"
	"iter"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
)

// encoder tracks the text message currently open on the wire.
type encoder struct {
	messageID string
	open      bool
}

// Encode maps fragments to AG-UI events. The output always starts with
// RUN_STARTED and ends with exactly one of RUN_FINISHED or RUN_ERROR.
//
// An upstream error is encoded as RUN_ERROR and then yielded as an error so
// the transport can log it. A cancelled run produces no RUN_ERROR: nobody is
// listening anymore. An expired deadline is a failure like any other.
func Encode(ctx context.Context, fragments iter.Seq2[Fragment, error], threadID, runID string) iter.Seq2[events.Event, error] {
	return func(yield func(events.Event, error) bool) {
		enc := &encoder{}
		emit := func(evs ...events.Event) bool {
			for _, ev := range evs {
				if !yield(ev, nil) {
					return false
				}
			}
			return true
		}

		if !emit(events.NewRunStartedEvent(threadID, runID)) {
			return
		}

		for f, err := range fragments {
			if err != nil {
				// If message was started, we must send TEXT_MESSAGE_END before RUN_ERROR
				if !emit(enc.closeMessage()...) {
					return
				}
				if !cancelled(ctx, err) {
					if !emit(events.NewRunErrorEvent(err.Error(), events.WithRunID(runID))) {
						return
					}
				}
				yield(nil, err)
				return
			}
			if !emit(enc.translate(f)...) {
				return
			}
		}

		if !emit(enc.closeMessage()...) {
			return
		}
		emit(events.NewRunFinishedEvent(threadID, runID))
	}
}

func cancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}

// translate converts one fragment into zero or more events.
func (e *encoder) translate(f Fragment) []events.Event {
	switch f.Kind {
	case FragmentText:
		return e.text(f)

	case FragmentToolCall:
		out := e.closeMessage()
		id := f.ToolCallID
		if id == "" {
			id = events.GenerateToolCallID()
		}
		name := f.ToolName
		if name == "" {
			name = "tool"
		}
		out = append(out, events.NewToolCallStartEvent(id, name))
		if f.Args != "" {
			out = append(out, events.NewToolCallArgsEvent(id, f.Args))
		}
		return append(out, events.NewToolCallEndEvent(id))

	case FragmentToolResult:
		out := e.closeMessage()
		if f.ToolCallID == "" {
			return out
		}
		content := f.Result
		if content == "" {
			content = "null"
		}
		return append(out, events.NewToolCallResultEvent(events.GenerateMessageID(), f.ToolCallID, content))

	case FragmentState:
		out := e.closeMessage()
		state := f.State
		if state == nil {
			state = map[string]any{}
		}
		return append(out, events.NewStateSnapshotEvent(state))

	case FragmentFinish:
		return e.closeMessage()
	}
	return nil
}

func (e *encoder) text(f Fragment) []events.Event {
	// Empty deltas are invalid on the wire.
	if f.Text == "" {
		return nil
	}

	var out []events.Event
	if e.open && f.MessageID != "" && f.MessageID != e.messageID {
		out = append(out, e.closeMessage()...)
	}
	if !e.open {
		e.messageID = f.MessageID
		if e.messageID == "" {
			e.messageID = events.GenerateMessageID()
		}
		e.open = true
		out = append(out, events.NewTextMessageStartEvent(e.messageID, events.WithRole("assistant")))
	}
	return append(out, events.NewTextMessageContentEvent(e.messageID, f.Text))
}

func (e *encoder) closeMessage() []events.Event {
	if !e.open {
		return nil
	}
	end := events.NewTextMessageEndEvent(e.messageID)
	e.open = false
	e.messageID = ""
	return []events.Event{end}
}

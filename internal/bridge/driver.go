package bridge

import (
	"context"
	"iter"

	"google.golang.org/genai"

	"agui-bridge/internal/session"
)

// Agent is the conversational agent driven by the bridge.
//
// RunStreaming starts a new run on every call. The returned sequence is
// single-pass; sess is nil when no session store is registered or the request
// carried no thread id. The agent may mutate sess in place during the run.
type Agent interface {
	Name() string
	RunStreaming(ctx context.Context, messages []*genai.Content, sess *session.Session, opts RunOptions) iter.Seq2[Fragment, error]
}

// Drive invokes the agent and checks ctx at every fragment boundary. Once ctx
// is done the sequence yields ctx.Err() and stops pulling from the agent,
// which releases the agent's own iterator.
func Drive(ctx context.Context, agent Agent, messages []*genai.Content, sess *session.Session, opts RunOptions) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Fragment{}, err)
			return
		}
		for fragment, err := range agent.RunStreaming(ctx, messages, sess, opts) {
			if err != nil {
				yield(Fragment{}, err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Fragment{}, err)
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
		if err := ctx.Err(); err != nil {
			yield(Fragment{}, err)
		}
	}
}

// snapshotOnly stands in for the agent when a request has no messages: the
// client is only synchronizing state.
func snapshotOnly(state map[string]any) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		if state == nil {
			state = map[string]any{}
		}
		yield(StateFragment(state), nil)
	}
}

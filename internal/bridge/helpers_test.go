package bridge

import (
	"context"
	"iter"
	"sync"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"google.golang.org/genai"

	"agui-bridge/internal/session"
)

// scriptedAgent replays fragments and optionally fails afterwards.
type scriptedAgent struct {
	name      string
	fragments []Fragment
	err       error
	mutate    func(*session.Session)

	mu       sync.Mutex
	calls    int
	sessions []*session.Session
	messages [][]*genai.Content
	opts     []RunOptions
	pulled   int
}

func (a *scriptedAgent) Name() string {
	if a.name == "" {
		return "test_agent"
	}
	return a.name
}

func (a *scriptedAgent) RunStreaming(_ context.Context, messages []*genai.Content, sess *session.Session, opts RunOptions) iter.Seq2[Fragment, error] {
	a.mu.Lock()
	a.calls++
	a.sessions = append(a.sessions, sess)
	a.messages = append(a.messages, messages)
	a.opts = append(a.opts, opts)
	a.mu.Unlock()

	return func(yield func(Fragment, error) bool) {
		if a.mutate != nil && sess != nil {
			a.mutate(sess)
		}
		for _, f := range a.fragments {
			a.mu.Lock()
			a.pulled++
			a.mu.Unlock()
			if !yield(f, nil) {
				return
			}
		}
		if a.err != nil {
			yield(Fragment{}, a.err)
		}
	}
}

// countingStore records every store call.
type countingStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	getErr   error
	saveErr  error
	gets     int
	saves    int
	saved    []*session.Session
}

func newCountingStore() *countingStore {
	return &countingStore{sessions: make(map[string]*session.Session)}
}

func (s *countingStore) Get(_ context.Context, agentName, threadID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess, ok := s.sessions[agentName+"/"+threadID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (s *countingStore) Save(_ context.Context, agentName, threadID string, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, sess)
	s.sessions[agentName+"/"+threadID] = sess
	return nil
}

func fragmentsOf(fs ...Fragment) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for _, f := range fs {
			if !yield(f, nil) {
				return
			}
		}
	}
}

func failingAfter(err error, fs ...Fragment) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		for _, f := range fs {
			if !yield(f, nil) {
				return
			}
		}
		yield(Fragment{}, err)
	}
}

func collectFragments(seq iter.Seq2[Fragment, error]) ([]Fragment, error) {
	var out []Fragment
	for f, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}

func collectEvents(seq iter.Seq2[events.Event, error]) ([]events.Event, error) {
	var out []events.Event
	var lastErr error
	for ev, err := range seq {
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, ev)
	}
	return out, lastErr
}

func typesOf(evs []events.Event) []events.EventType {
	out := make([]events.EventType, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Type())
	}
	return out
}

// withoutFraming drops TEXT_MESSAGE_START/END so assertions can focus on content.
func withoutFraming(types []events.EventType) []events.EventType {
	out := make([]events.EventType, 0, len(types))
	for _, t := range types {
		if t == events.EventTypeTextMessageStart || t == events.EventTypeTextMessageEnd {
			continue
		}
		out = append(out, t)
	}
	return out
}

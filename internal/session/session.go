package session

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
)

// ErrNotFound is returned by a Store when no session exists for a thread.
var ErrNotFound = errors.New("session not found")

// Session is the per-thread conversational state owned by a Store.
// The agent mutates it in place during a run; it is saved back afterwards.
type Session struct {
	AgentName string         `json:"agent" yaml:"agent"`
	ThreadID  string         `json:"threadId" yaml:"thread_id"`
	State     map[string]any `json:"state,omitempty" yaml:"state,omitempty"`
	Runs      int            `json:"runs" yaml:"runs"`
	UpdatedAt time.Time      `json:"updatedAt" yaml:"updated_at"`
}

// New starts an empty session for a thread.
func New(agentName, threadID string) *Session {
	return &Session{
		AgentName: agentName,
		ThreadID:  threadID,
		State:     make(map[string]any),
	}
}

// MergeState overlays incoming keys on the stored state. Incoming state takes
// precedence for overlapping keys.
func (s *Session) MergeState(incoming map[string]any) {
	if s.State == nil {
		s.State = make(map[string]any, len(incoming))
	}
	maps.Copy(s.State, incoming)
}

// Snapshot returns a copy of the state safe to hand to other goroutines.
func (s *Session) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(s.State))
	maps.Copy(out, s.State)
	return out
}

// Clone copies the session so stores never share maps with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.State = s.Snapshot()
	return &c
}

// Store persists sessions keyed by agent name and thread id. Implementations
// must serialize access per thread; callers never run two runs on one thread
// concurrently through the same store.
type Store interface {
	Get(ctx context.Context, agentName, threadID string) (*Session, error)
	Save(ctx context.Context, agentName, threadID string, sess *Session) error
}

// Resolve looks up the session for a run. It returns nil without touching the
// store when no store is registered or the thread id is blank. A thread the
// store has never seen gets a fresh session so its first run is persisted.
func Resolve(ctx context.Context, store Store, agentName, threadID string) (*Session, error) {
	if store == nil || strings.TrimSpace(threadID) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess, err := store.Get(ctx, agentName, threadID)
	switch {
	case errors.Is(err, ErrNotFound):
		return New(agentName, threadID), nil
	case err != nil:
		return nil, err
	case sess == nil:
		return New(agentName, threadID), nil
	}
	return sess, nil
}

func key(agentName, threadID string) string {
	return agentName + "/" + threadID
}

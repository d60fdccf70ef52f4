package session

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryCapacity = 1024

// MemoryStore keeps sessions in a bounded LRU cache. Least recently used
// threads are evicted once capacity is reached.
type MemoryStore struct {
	cache *lru.Cache[string, *Session]
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most capacity sessions.
// Zero or negative capacity falls back to the default.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	cache, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &MemoryStore{cache: cache, now: time.Now}, nil
}

// Get returns a copy of the stored session to prevent external modifications.
func (m *MemoryStore) Get(ctx context.Context, agentName, threadID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, ok := m.cache.Get(key(agentName, threadID))
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// Save stores a copy of the session.
func (m *MemoryStore) Save(ctx context.Context, agentName, threadID string, sess *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("cannot save nil session for thread %q", threadID)
	}
	stored := sess.Clone()
	stored.AgentName = agentName
	stored.ThreadID = threadID
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = m.now()
	}
	m.cache.Add(key(agentName, threadID), stored)
	return nil
}

// Delete removes the session for a thread.
func (m *MemoryStore) Delete(agentName, threadID string) {
	m.cache.Remove(key(agentName, threadID))
}

// Len reports how many sessions are cached.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Cleanup removes sessions not saved within olderThan and reports how many
// were removed.
func (m *MemoryStore) Cleanup(olderThan time.Duration) int {
	now := m.now()
	removed := 0

	for _, k := range m.cache.Keys() {
		sess, ok := m.cache.Peek(k)
		if !ok {
			continue
		}
		if now.Sub(sess.UpdatedAt) > olderThan {
			m.cache.Remove(k)
			removed++
		}
	}

	return removed
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "agent", "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	sess := New("agent", "t1")
	sess.State["count"] = 1
	require.NoError(t, store.Save(ctx, "agent", "t1", sess))

	// Mutating the caller's copy must not leak into the store.
	sess.State["count"] = 99

	got, err := store.Get(ctx, "agent", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.State["count"])
	assert.False(t, got.UpdatedAt.IsZero())

	got.State["count"] = 42
	again, err := store.Get(ctx, "agent", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.State["count"])
}

func TestMemoryStore_KeyedByAgent(t *testing.T) {
	store, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", "t1", New("a", "t1")))
	_, err = store.Get(ctx, "b", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store, err := NewMemoryStore(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "agent", "t1", New("agent", "t1")))
	require.NoError(t, store.Save(ctx, "agent", "t2", New("agent", "t2")))
	_, err = store.Get(ctx, "agent", "t1")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "agent", "t3", New("agent", "t3")))

	assert.Equal(t, 2, store.Len())
	_, err = store.Get(ctx, "agent", "t2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "agent", "t1")
	assert.NoError(t, err)
}

func TestMemoryStore_Delete(t *testing.T) {
	store, err := NewMemoryStore(0)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "agent", "t1", New("agent", "t1")))
	store.Delete("agent", "t1")
	_, err = store.Get(ctx, "agent", "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsNil(t *testing.T) {
	store, err := NewMemoryStore(1)
	require.NoError(t, err)
	assert.Error(t, store.Save(context.Background(), "agent", "t1", nil))
}

func TestMemoryStore_Cleanup(t *testing.T) {
	store, err := NewMemoryStore(8)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale := New("agent", "old")
	stale.UpdatedAt = now.Add(-2 * time.Hour)
	require.NoError(t, store.Save(ctx, "agent", "old", stale))

	fresh := New("agent", "new")
	fresh.UpdatedAt = now.Add(-time.Minute)
	require.NoError(t, store.Save(ctx, "agent", "new", fresh))

	assert.Equal(t, 1, store.Cleanup(time.Hour))
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, "agent", "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "agent", "new")
	assert.NoError(t, err)
}

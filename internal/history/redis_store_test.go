package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, clock *testClock) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(RedisStoreConfig{
		Client:    client,
		KeyPrefix: "test:history:",
		Window:    4,
		IdleTTL:   2 * time.Hour,
		Now:       clock.Now,
	}), mr
}

func TestRedisStore_AppendTrimsToWindow(t *testing.T) {
	store, mr := newTestRedisStore(t, newTestClock())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Append(ctx, "u1", RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	turns, err := store.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "msg-2", turns[0].Content)
	assert.Equal(t, "msg-5", turns[3].Content)
	assert.Equal(t, RoleUser, turns[0].Role)

	assert.True(t, mr.Exists("test:history:u1"))
	assert.Equal(t, 2*time.Hour, mr.TTL("test:history:u1"))
}

func TestRedisStore_EvictIdleSkipsFreshSessions(t *testing.T) {
	clock := newTestClock()
	store, mr := newTestRedisStore(t, clock)
	ctx := context.Background()

	const sessions = 5
	for i := 0; i < sessions; i++ {
		require.NoError(t, store.Append(ctx, fmt.Sprintf("u%d", i), RoleUser, "bonjour"))
	}

	before := mr.CommandCount()
	deleted, err := store.EvictIdle(ctx, clock.Now(), 2*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	// один SCAN и по одному LINDEX на сессию
	assert.LessOrEqual(t, mr.CommandCount()-before, 1+sessions)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, sessions, n)
}

func TestRedisStore_HistoryUnknownUser(t *testing.T) {
	store, _ := newTestRedisStore(t, newTestClock())

	turns, err := store.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, turns)

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisStore_EvictIdle(t *testing.T) {
	clock := newTestClock()
	store, mr := newTestRedisStore(t, clock)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "stale", RoleUser, "old"))
	require.NoError(t, store.Append(ctx, "mixed", RoleUser, "old"))
	clock.Advance(3 * time.Hour)
	require.NoError(t, store.Append(ctx, "mixed", RoleAssistant, "fresh"))
	require.NoError(t, store.Append(ctx, "fresh", RoleUser, "hello"))

	deleted, err := store.EvictIdle(ctx, clock.Now(), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.False(t, mr.Exists("test:history:stale"))

	mixed, err := store.History(ctx, "mixed")
	require.NoError(t, err)
	require.Len(t, mixed, 1)
	assert.Equal(t, "fresh", mixed[0].Content)
	assert.Equal(t, RoleAssistant, mixed[0].Role)

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRedisStore_IgnoresForeignKeys(t *testing.T) {
	store, mr := newTestRedisStore(t, newTestClock())
	require.NoError(t, mr.Set("other:key", "x"))
	require.NoError(t, store.Append(context.Background(), "u1", RoleUser, "hi"))

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

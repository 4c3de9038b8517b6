package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, DefaultTTL), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := &Session{ID: "abc-123", StartedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)
	assert.True(t, sess.StartedAt.Equal(got.StartedAt))
}

func TestRedisStoreLoadMissing(t *testing.T) {
	store, _ := newRedisStore(t)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreClear(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "abc"}))
	require.NoError(t, store.Clear(ctx))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "abc"}))

	// Redis enforces the idle window even if the process never returns.
	mr.FastForward(31 * time.Minute)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreCorruptEntryDropped(t *testing.T) {
	store, mr := newRedisStore(t)

	require.NoError(t, mr.Set(redisKey, "{not json"))

	got, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, got)

	// The corrupt key was deleted.
	assert.False(t, mr.Exists(redisKey))
}

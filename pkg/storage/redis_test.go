package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisSessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStoreWithClient(client, 0)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisSessionStore(t *testing.T) {
	exerciseStore(t, newTestRedisStore(t))
}

func TestRedisSessionStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSessionStoreWithClient(client, time.Minute)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	s := NewSession("@alice:example.test", "onboarding")
	require.NoError(t, store.Put(ctx, s))

	_, err := store.Get(ctx, s.ID)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewRedisSessionStore_BadURL(t *testing.T) {
	_, err := NewRedisSessionStore("not-a-url", 0)
	assert.Error(t, err)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewRedisStore(client), s
}

func TestRedisStore_GetAbsent(t *testing.T) {
	store, _ := newTestRedisStore(t)

	_, present, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRedisStore_SetWithExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetWithExpiry(ctx, "window", 1, 60*time.Second))

	v, present, err := store.Get(ctx, "window")
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, int64(1), v)

	mr.FastForward(61 * time.Second)
	_, present, err = store.Get(ctx, "window")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRedisStore_IncrWithExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	n, err := store.IncrWithExpiry(ctx, "hourly", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrWithExpiry(ctx, "hourly", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	mr.FastForward(2 * time.Hour)
	_, present, err := store.Get(ctx, "hourly")
	require.NoError(t, err)
	assert.False(t, present)
}

func TestRedisStore_ListOperations(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, store.PushFront(ctx, "lat", i))
	}
	require.NoError(t, store.Trim(ctx, "lat", 0, 2))

	vals, err := store.Range(ctx, "lat", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3}, vals)
}

func TestRedisStore_ErrorsSurface(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, _, err := store.Get(context.Background(), "any")
	assert.Error(t, err)

	_, err = store.Incr(context.Background(), "any")
	assert.Error(t, err)
}

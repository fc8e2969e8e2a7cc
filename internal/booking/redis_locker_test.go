package booking

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, _ := newTestRedisLocker(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.Acquire(ctx, "doc-1", start))
	assert.ErrorIs(t, l.Acquire(ctx, "doc-1", start), ErrSlotLocked)

	require.NoError(t, l.Release(ctx, "doc-1", start))
	assert.NoError(t, l.Acquire(ctx, "doc-1", start))
}

func TestRedisLocker_LockExpires(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.Acquire(ctx, "doc-1", start))

	mr.FastForward(LockDuration + time.Second)

	assert.NoError(t, l.Acquire(ctx, "doc-1", start))
}

func TestRedisLocker_IsLocked(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	locked, err := l.IsLocked(ctx, "doc-1", start)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, l.Acquire(ctx, "doc-1", start))
	locked, err = l.IsLocked(ctx, "doc-1", start)
	require.NoError(t, err)
	assert.True(t, locked)

	mr.FastForward(LockDuration + time.Second)
	locked, err = l.IsLocked(ctx, "doc-1", start)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRedisLocker_DistinctKeysAreIndependent(t *testing.T) {
	l, _ := newTestRedisLocker(t)
	ctx := context.Background()
	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, l.Acquire(ctx, "doc-1", start))
	assert.NoError(t, l.Acquire(ctx, "doc-2", start))
	assert.NoError(t, l.Acquire(ctx, "doc-1", start.Add(30*time.Minute)))
}

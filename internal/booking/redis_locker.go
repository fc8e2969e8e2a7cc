package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker is the SlotLocker for multi-instance deployments. The
// lock is a SET NX key whose TTL matches LockDuration.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed slot locker.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    LockDuration,
	}
}

func (l *RedisLocker) key(doctorID string, start time.Time) string {
	return "slotlock:" + slotKey(doctorID, start)
}

// Acquire reserves the slot, returning ErrSlotLocked when a live lock
// already exists. Expiry is handled by the key TTL.
func (l *RedisLocker) Acquire(ctx context.Context, doctorID string, start time.Time) error {
	ok, err := l.client.SetNX(ctx, l.key(doctorID, start), "1", l.ttl).Result()
	if err != nil {
		return fmt.Errorf("booking: acquire slot lock: %w", err)
	}
	if !ok {
		return ErrSlotLocked
	}
	return nil
}

// Release drops the lock if present.
func (l *RedisLocker) Release(ctx context.Context, doctorID string, start time.Time) error {
	if err := l.client.Del(ctx, l.key(doctorID, start)).Err(); err != nil {
		return fmt.Errorf("booking: release slot lock: %w", err)
	}
	return nil
}

// IsLocked reports whether a live lock exists for the slot.
func (l *RedisLocker) IsLocked(ctx context.Context, doctorID string, start time.Time) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(doctorID, start)).Result()
	if err != nil {
		return false, fmt.Errorf("booking: check slot lock: %w", err)
	}
	return n > 0, nil
}

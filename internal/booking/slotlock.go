// Package booking handles appointment booking with slot locking so two
// concurrent requests can never reserve the same doctor/time pair.
package booking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// LockDuration is the reservation window. A caller that never releases
// still yields the slot back once the lock expires.
const LockDuration = 120 * time.Second

// ErrSlotLocked signals that another request holds the slot. Callers
// surface it as a "try again" response, never retry automatically.
var ErrSlotLocked = errors.New("booking: slot is reserved by another request")

// SlotLocker grants short-lived exclusive reservations on a
// doctor/start-time pair.
type SlotLocker interface {
	Acquire(ctx context.Context, doctorID string, start time.Time) error
	Release(ctx context.Context, doctorID string, start time.Time) error
	IsLocked(ctx context.Context, doctorID string, start time.Time) (bool, error)
}

func slotKey(doctorID string, start time.Time) string {
	return doctorID + ":" + start.UTC().Format(time.RFC3339)
}

// MemoryLocker is the in-process SlotLocker. Check-expire,
// check-presence and insert happen under one mutex.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryLocker creates an in-memory slot locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]time.Time),
		ttl:   LockDuration,
		now:   time.Now,
	}
}

// Acquire reserves the slot, returning ErrSlotLocked when a live lock
// already exists. Expired locks are cleaned in the same critical section.
func (l *MemoryLocker) Acquire(ctx context.Context, doctorID string, start time.Time) error {
	key := slotKey(doctorID, start)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.locks[key]; ok && expiry.Before(now) {
		delete(l.locks, key)
	}
	if _, ok := l.locks[key]; ok {
		return ErrSlotLocked
	}
	l.locks[key] = now.Add(l.ttl)
	return nil
}

// Release drops the lock if present.
func (l *MemoryLocker) Release(ctx context.Context, doctorID string, start time.Time) error {
	l.mu.Lock()
	delete(l.locks, slotKey(doctorID, start))
	l.mu.Unlock()
	return nil
}

// IsLocked reports whether a live lock exists for the slot.
func (l *MemoryLocker) IsLocked(ctx context.Context, doctorID string, start time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.locks[slotKey(doctorID, start)]
	return ok && expiry.After(l.now()), nil
}

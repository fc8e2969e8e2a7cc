package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewReaper_Defaults(t *testing.T) {
	r := NewReaper(NewStore(), 0, 0, nil)
	assert.Equal(t, 60*time.Minute, r.maxAge)
	assert.Equal(t, 5*time.Minute, r.interval)
	assert.NotNil(t, r.logger)
}

func TestReaper_RunStopsOnCancel(t *testing.T) {
	r := NewReaper(NewStore(), time.Minute, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}

func TestReaper_RemovesStaleSessions(t *testing.T) {
	s := NewStore()
	s.Create("stale", "", "")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Everything is stale relative to a zero-length max age.
	r := NewReaper(s, time.Nanosecond, time.Millisecond, nil)
	r.Run(ctx)

	assert.Equal(t, 0, s.Count())
}

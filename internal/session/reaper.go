package session

import (
	"context"
	"time"

	"github.com/medassist-ai/triage-platform/pkg/logging"
)

// Reaper periodically removes stale sessions so the store never grows
// without bound.
type Reaper struct {
	store    *Store
	maxAge   time.Duration
	interval time.Duration
	logger   *logging.Logger
}

// NewReaper creates a reaper for the store. maxAge defaults to 60 minutes,
// interval to 5 minutes.
func NewReaper(store *Store, maxAge, interval time.Duration, logger *logging.Logger) *Reaper {
	if maxAge <= 0 {
		maxAge = 60 * time.Minute
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reaper{store: store, maxAge: maxAge, interval: interval, logger: logger}
}

// Run blocks, reaping on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := r.store.ReapStale(r.maxAge); removed > 0 {
				r.logger.Info("session: reaped stale sessions",
					"removed", removed,
					"remaining", r.store.Count(),
				)
			}
		}
	}
}

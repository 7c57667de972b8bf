package application

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives the session's two countdowns on a shared one-second tick.
// Both timers live and die with the Run context, so session teardown cancels
// them as a unit; stale ticks against a superseded address are fenced by the
// session's generation counter.
type Scheduler struct {
	session  *SessionService
	interval time.Duration
}

// NewScheduler creates a Scheduler. interval is normally one second; tests
// may shorten it.
func NewScheduler(session *SessionService, interval time.Duration) *Scheduler {
	return &Scheduler{
		session:  session,
		interval: interval,
	}
}

// Run blocks, ticking the session until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("countdown scheduler stopped")
			return
		case <-ticker.C:
			s.session.Tick(ctx)
		}
	}
}

package settlement

import (
	"context"
	"log/slog"
	"time"
)

// Runner is satisfied by *Service.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler polls on a fixed interval. Rescanning every pending wager is the
// retry mechanism: feed outages and unfinished fixtures are picked up on a
// later tick.
type Scheduler struct {
	runner   Runner
	lease    Lease
	interval time.Duration
	log      *slog.Logger
}

// NewScheduler builds a scheduler. lease may be nil for a single instance.
func NewScheduler(runner Runner, lease Lease, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{runner: runner, lease: lease, interval: interval, log: log}
}

// Start runs a pass immediately and then on every tick until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs a single pass if the lease allows it. The pass is bounded by the interval.
func (s *Scheduler) Tick(ctx context.Context) (Report, bool) {
	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx)
		switch {
		case err != nil:
			s.log.Warn("settlement lease unavailable, running anyway", "error", err)
		case !ok:
			s.log.Debug("settlement lease held elsewhere, skipping tick")
			return Report{}, false
		default:
			defer release()
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	report, err := s.runner.Run(runCtx)
	if err != nil {
		s.log.Error("settlement pass failed", "error", err)
	}
	return report, true
}

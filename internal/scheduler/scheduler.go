package scheduler

import (
	"context"
	"log/slog"
	"time"

	"code_tracker/internal/pipeline"
)

// Runner executes one full discovery pass.
type Runner interface {
	RunAll(ctx context.Context) []pipeline.Result
}

// Scheduler triggers discovery passes: once shortly after start, then at a fixed cadence.
type Scheduler struct {
	runner Runner
	log    *slog.Logger
	tick   time.Duration
	delay  time.Duration
}

// New creates a Scheduler with a 1-hour cadence and a 5-second startup delay.
func New(runner Runner, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		log:    log,
		tick:   time.Hour,
		delay:  5 * time.Second,
	}
}

// SetTickInterval overrides the default 1-hour cadence.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetStartupDelay overrides the delay before the first pass.
func (s *Scheduler) SetStartupDelay(d time.Duration) {
	s.delay = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	s.runOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	results := s.runner.RunAll(ctx)

	var found, failed, gated int
	for _, r := range results {
		found += r.Found
		switch r.State {
		case pipeline.Failed:
			failed++
		case pipeline.Gated:
			gated++
		}
	}
	s.log.Info("scan finished",
		"games", len(results),
		"found", found,
		"gated", gated,
		"failed", failed,
		"duration", time.Since(start),
	)
}

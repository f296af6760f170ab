package usecase

import (
	"context"
	"time"

	"FeedDigest/internal/domain"
	"FeedDigest/internal/ports"
)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) (domain.RunResult, error)

// Scheduler wires the cron driver with a pipeline run.
type Scheduler struct {
	driver ports.Scheduler
	run    RunFunc
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, run RunFunc) *Scheduler {
	return &Scheduler{driver: driver, run: run}
}

// Start registers the run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.run == nil {
		return nil
	}

	job := func(time.Time) {
		_, _ = s.run(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

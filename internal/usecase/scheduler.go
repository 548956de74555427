package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"NewsLens/internal/ports"
)

// Scheduler wires the interval driver with the refresh pipeline.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring refresh cycles.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the refresh cycle with the provided scheduler. A
// trigger arriving while a cycle still runs is skipped, not queued.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report, err := s.pipeline.RunRefreshCycle(ctx)
		switch {
		case errors.Is(err, ErrRefreshBusy):
			s.logger.Debug("refresh still running, trigger skipped", "trigger", trigger)
		case err != nil:
			s.logger.Error("scheduled refresh failed", "error", err)
		default:
			s.logger.Info("scheduled refresh done",
				"cycle", report.ID, "new", report.New, "updated", report.Updated, "failed", report.Failed)
		}
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

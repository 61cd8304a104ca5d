package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

// ErrRunInProgress is returned when a run is requested while another one
// has not finished yet.
var ErrRunInProgress = errors.New("a run is already in progress")

// Scheduler wires the interval driver with the pipeline use case and makes
// sure two runs never overlap.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	running sync.Mutex
	mu      sync.RWMutex
	latest  *domain.RunSummary
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.Trigger(ctx); err != nil {
			s.logger.Info("skipping scheduled run", "trigger", trigger, "error", err)
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

// Trigger runs the pipeline now unless a run is already in progress.
func (s *Scheduler) Trigger(ctx context.Context) (domain.RunSummary, error) {
	if !s.running.TryLock() {
		return domain.RunSummary{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	summary := s.pipeline.Run(ctx)

	s.mu.Lock()
	s.latest = &summary
	s.mu.Unlock()

	return summary, nil
}

// Latest returns the summary of the most recent finished run.
func (s *Scheduler) Latest() (domain.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.RunSummary{}, false
	}
	return *s.latest, true
}

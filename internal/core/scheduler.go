package core

// scheduler.go removes finished jobs from the job store.
//
// A cron entry sweeps the store on a fixed schedule and drops every terminal
// job that completed more than Retention ago. Pending and processing jobs are
// never swept.

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig holds settings for the job sweeper.
type RetentionConfig struct {
	Retention time.Duration // how long finished jobs stay pollable (default: 1h)
	Schedule  string        // cron spec (default: every 5 minutes)
}

const (
	DefaultJobRetention  = time.Hour
	DefaultSweepSchedule = "@every 5m"
)

// StartRetentionSweeper schedules the job sweep and blocks until ctx is
// cancelled.
func (s *Service) StartRetentionSweeper(ctx context.Context, cfg RetentionConfig) error {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultJobRetention
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSweepSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() { s.sweepJobs(cfg.Retention) }); err != nil {
		return err
	}

	slog.Info("job sweeper started", "schedule", cfg.Schedule, "retention", cfg.Retention)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("job sweeper stopped")
	return nil
}

func (s *Service) sweepJobs(retention time.Duration) int {
	start := time.Now()
	removed := s.jobs.Sweep(start.Add(-retention))
	if removed > 0 {
		slog.Info("expired import jobs removed",
			"jobs_removed", removed,
			"jobs_remaining", s.jobs.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return removed
}

// Package scheduler runs the mess's periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedules holds the cron expressions for each job.
type Schedules struct {
	ExpireCoupons  string
	RemindPurchase string
}

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	logger    *slog.Logger
	schedules Schedules
}

// NewScheduler evaluates schedules in loc, the mess timezone.
func NewScheduler(jobs *Jobs, logger *slog.Logger, schedules Schedules, loc *time.Location) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	return &Scheduler{
		cron:      c,
		jobs:      jobs,
		logger:    logger,
		schedules: schedules,
	}
}

// Start registers the jobs and starts the cron scheduler. A bad schedule
// fails startup rather than silently dropping the job.
func (s *Scheduler) Start() error {
	entries := []struct {
		name string
		spec string
		fn   func()
	}{
		{"coupon expiry", s.schedules.ExpireCoupons, s.jobs.ExpireCoupons},
		{"purchase reminder", s.schedules.RemindPurchase, s.jobs.RemindPurchase},
	}
	for _, e := range entries {
		if e.spec == "" {
			s.logger.Info("job disabled", "job", e.name)
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, e.fn); err != nil {
			return fmt.Errorf("schedule %s job %q: %w", e.name, e.spec, err)
		}
		s.logger.Info("scheduled job", "job", e.name, "schedule", e.spec)
	}
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

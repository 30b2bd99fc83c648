// Package jobs runs periodic housekeeping for the backup service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/liveon/internal/logging"
	"github.com/robfig/cron/v3"
)

// StaleRunMarker flags runs that stopped making progress.
type StaleRunMarker interface {
	MarkAbandoned(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron       *cron.Cron
	runs       StaleRunMarker
	staleAfter time.Duration
	schedule   string
	log        logging.Logger
	now        func() time.Time
}

func NewScheduler(runs StaleRunMarker, schedule string, staleAfter time.Duration, log logging.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		runs:       runs,
		staleAfter: staleAfter,
		schedule:   schedule,
		log:        log,
		now:        time.Now,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.abandonStaleRuns(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.log.Info(context.Background(), "job scheduler started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info(context.Background(), "job scheduler stopped")
}

func (s *Scheduler) abandonStaleRuns(ctx context.Context) {
	n, err := s.runs.MarkAbandoned(ctx, s.now().Add(-s.staleAfter))
	if err != nil {
		s.log.Error(ctx, "failed to mark stale runs", "error", err)
		return
	}
	if n > 0 {
		s.log.Info(ctx, "marked stale runs abandoned", "count", n)
	}
}

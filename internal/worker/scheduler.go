package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/jtmorrow/arguably/internal/repository"
)

// schedulerInterval is how often the scheduler checks whether a recurring
// job is due. Coarse on purpose; the due checks below are idempotent.
const schedulerInterval = 1 * time.Hour

// Scheduler enqueues the recurring jobs: expired-session cleanup daily and
// the credit refill once per calendar month. Duplicate enqueues across
// instances are prevented by checking the jobs table for the current period
// before inserting.
type Scheduler struct {
	queries *repository.Queries
	logger  *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewScheduler creates a Scheduler over the job queue.
func NewScheduler(queries *repository.Queries, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		queries: queries,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start runs the scheduling loop. An immediate tick on startup covers
// instances that were down when a period boundary passed.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.doneCh)

		s.tick(ctx)

		ticker := time.NewTicker(schedulerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop halts the scheduling loop.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()

	s.enqueueIfDue(ctx, JobTypeCleanupSessions,
		time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		func(ctx context.Context) error {
			_, err := EnqueueCleanupSessions(ctx, s.queries, WithPriority(PriorityLow))
			return err
		})

	s.enqueueIfDue(ctx, JobTypeRefillCredits,
		time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		func(ctx context.Context) error {
			_, err := EnqueueRefillCredits(ctx, s.queries)
			return err
		})
}

// enqueueIfDue enqueues a job unless one was already created in the period
// starting at periodStart.
func (s *Scheduler) enqueueIfDue(ctx context.Context, jobType string, periodStart time.Time, enqueue func(context.Context) error) {
	exists, err := s.queries.HasJobSince(ctx, jobType, periodStart)
	if err != nil {
		s.logger.Error("Scheduler period check failed", "job_type", jobType, "error", err)
		return
	}
	if exists {
		return
	}

	if err := enqueue(ctx); err != nil {
		s.logger.Error("Scheduler enqueue failed", "job_type", jobType, "error", err)
		return
	}
	s.logger.Info("Recurring job enqueued", "job_type", jobType, "period_start", periodStart)
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jtmorrow/arguably/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeRefillCredits   = "refill_credits"
	JobTypeCleanupSessions = "cleanup_sessions"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// RefillCreditsPayload is the payload for the monthly credit refill job.
// An empty payload refills every metered subscription.
type RefillCreditsPayload struct{}

// CleanupSessionsPayload is the payload for the expired-session cleanup job.
type CleanupSessionsPayload struct{}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&params)
	}

	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueRefillCredits enqueues the monthly credit refill job.
func EnqueueRefillCredits(ctx context.Context, queries *repository.Queries, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeRefillCredits, RefillCreditsPayload{}, opts...)
}

// EnqueueCleanupSessions enqueues the expired-session cleanup job.
func EnqueueCleanupSessions(ctx context.Context, queries *repository.Queries, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, queries, JobTypeCleanupSessions, CleanupSessionsPayload{}, opts...)
}

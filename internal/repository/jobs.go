package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Job is one row of the background job queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Status       string // pending, running, completed, failed
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ErrorMessage sql.NullString
	ScheduledAt  time.Time
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
}

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts, error_message, scheduled_at, started_at, completed_at, created_at`

func scanJob(row interface{ Scan(...interface{}) error }) (Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority, &j.Attempts, &j.MaxAttempts,
		&j.ErrorMessage, &j.ScheduledAt, &j.StartedAt, &j.CompletedAt, &j.CreatedAt)
	return j, err
}

// EnqueueJobParams contains the parameters for enqueueing a job.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, job_type, payload, status, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, $6)
		RETURNING `+jobColumns,
		uuid.New(), params.JobType, params.Payload, params.Priority, params.MaxAttempts, params.ScheduledAt)
	return scanJob(row)
}

// DequeueJob claims the next runnable job. FOR UPDATE SKIP LOCKED lets
// concurrent workers dequeue without blocking on each other's claims.
// Returns sql.ErrNoRows when the queue is empty.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = 'pending' AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`)
	return scanJob(row)
}

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'running', attempts = attempts + 1, started_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobCompleted marks a job as completed.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed', completed_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobFailedParams contains the parameters for marking a job failed.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
	Permanent    bool // Skip retries regardless of attempts remaining
}

// UpdateJobFailed records a failure. Jobs with attempts remaining go back to
// pending with exponential backoff; exhausted or permanently failed jobs are
// marked failed.
func (q *Queries) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = CASE WHEN $3 OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    scheduled_at = now() + (interval '30 seconds' * power(2, attempts)),
		    error_message = $2,
		    completed_at = CASE WHEN $3 OR attempts >= max_attempts THEN now() ELSE NULL END
		WHERE id = $1`, params.ID, params.ErrorMessage, params.Permanent)
	return err
}

// RecoverStaleJobs resets running jobs older than the threshold back to
// pending. Covers workers that crashed mid-job.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending', started_at = NULL
		WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second')`,
		thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HasJobSince reports whether any job of the type was created at or after
// the given time, regardless of status. Used to keep recurring jobs from
// being enqueued twice for the same period.
func (q *Queries) HasJobSince(ctx context.Context, jobType string, since time.Time) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM jobs WHERE job_type = $1 AND created_at >= $2)`,
		jobType, since).Scan(&exists)
	return exists, err
}

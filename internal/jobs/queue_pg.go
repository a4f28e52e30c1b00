package jobs

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PGQueue implements Queue on Postgres. Claim relies on
// FOR UPDATE SKIP LOCKED, so concurrent workers never receive the same job.
type PGQueue struct {
	DB *sql.DB
}

const jobColumns = `id, document_id, query, status, progress, note, error_detail, worker_id, lease_expires_at, cancel_requested, result_id, created_at, started_at, completed_at`

// Enqueue appends a job to the tail of the queue.
func (q *PGQueue) Enqueue(ctx context.Context, documentID, query string) (Job, error) {
	job := Job{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Query:      query,
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	const stmt = `
INSERT INTO jobs (id, document_id, query, status, progress, created_at)
VALUES ($1, $2, $3, $4, 0, $5)`
	if _, err := q.DB.ExecContext(ctx, stmt, job.ID, job.DocumentID, job.Query, job.Status, job.CreatedAt); err != nil {
		return Job{}, err
	}
	return job, nil
}

// Claim atomically takes the oldest queued job and marks it running.
func (q *PGQueue) Claim(ctx context.Context, workerID string, lease time.Duration) (Job, bool, error) {
	now := time.Now().UTC()
	const stmt = `
UPDATE jobs
SET status = $1, worker_id = $2, lease_expires_at = $3, started_at = $4
WHERE id = (
    SELECT id FROM jobs
    WHERE status = $5
    ORDER BY created_at
    LIMIT 1
    FOR UPDATE SKIP LOCKED
)
RETURNING ` + jobColumns
	job, err := scanJob(q.DB.QueryRowContext(ctx, stmt, StatusRunning, workerID, now.Add(lease), now, StatusQueued))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Job{}, false, nil
		}
		return Job{}, false, err
	}
	return job, true, nil
}

// ClaimByID claims one specific queued job.
func (q *PGQueue) ClaimByID(ctx context.Context, jobID, workerID string, lease time.Duration) (Job, error) {
	now := time.Now().UTC()
	const stmt = `
UPDATE jobs
SET status = $1, worker_id = $2, lease_expires_at = $3, started_at = $4
WHERE id = $5 AND status = $6
RETURNING ` + jobColumns
	job, err := scanJob(q.DB.QueryRowContext(ctx, stmt, StatusRunning, workerID, now.Add(lease), now, jobID, StatusQueued))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Job{}, err
	}
	if _, getErr := q.Get(ctx, jobID); getErr != nil {
		return Job{}, getErr
	}
	return Job{}, ErrNotClaimed
}

// Get returns a job by ID.
func (q *PGQueue) Get(ctx context.Context, jobID string) (Job, error) {
	const stmt = `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 LIMIT 1`
	return scanJob(q.DB.QueryRowContext(ctx, stmt, jobID))
}

// Position returns the 1-based queue position of a queued job.
func (q *PGQueue) Position(ctx context.Context, jobID string) (int, error) {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != StatusQueued {
		return 0, nil
	}
	const stmt = `
SELECT COUNT(*) FROM jobs
WHERE status = $1 AND created_at < $2`
	var ahead int
	if err := q.DB.QueryRowContext(ctx, stmt, StatusQueued, job.CreatedAt).Scan(&ahead); err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

// UpdateProgress records progress for a non-terminal job.
func (q *PGQueue) UpdateProgress(ctx context.Context, jobID string, progress int, note string) error {
	const stmt = `
UPDATE jobs
SET progress = $1, note = $2
WHERE id = $3 AND status IN ($4, $5)`
	res, err := q.DB.ExecContext(ctx, stmt, clampProgress(progress), note, jobID, StatusQueued, StatusRunning)
	if err != nil {
		return err
	}
	return q.checkTransition(ctx, res, jobID)
}

// Heartbeat extends the lease of a running job held by workerID.
func (q *PGQueue) Heartbeat(ctx context.Context, jobID, workerID string, lease time.Duration) error {
	const stmt = `
UPDATE jobs
SET lease_expires_at = $1
WHERE id = $2 AND worker_id = $3 AND status = $4`
	res, err := q.DB.ExecContext(ctx, stmt, time.Now().UTC().Add(lease), jobID, workerID, StatusRunning)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := q.Get(ctx, jobID); getErr != nil {
			return getErr
		}
		return ErrNotClaimed
	}
	return nil
}

// Complete transitions a running job to succeeded.
func (q *PGQueue) Complete(ctx context.Context, jobID, resultID string) error {
	const stmt = `
UPDATE jobs
SET status = $1, progress = 100, result_id = $2, completed_at = $3, lease_expires_at = NULL
WHERE id = $4 AND status IN ($5, $6)`
	res, err := q.DB.ExecContext(ctx, stmt, StatusSucceeded, resultID, time.Now().UTC(), jobID, StatusQueued, StatusRunning)
	if err != nil {
		return err
	}
	return q.checkTransition(ctx, res, jobID)
}

// Fail transitions a job to failed with detail.
func (q *PGQueue) Fail(ctx context.Context, jobID, errorDetail string) error {
	const stmt = `
UPDATE jobs
SET status = $1, error_detail = $2, completed_at = $3, lease_expires_at = NULL
WHERE id = $4 AND status IN ($5, $6)`
	res, err := q.DB.ExecContext(ctx, stmt, StatusFailed, errorDetail, time.Now().UTC(), jobID, StatusQueued, StatusRunning)
	if err != nil {
		return err
	}
	return q.checkTransition(ctx, res, jobID)
}

// Cancel cancels a queued job, or flags a running one for best-effort cancel.
func (q *PGQueue) Cancel(ctx context.Context, jobID string) (Job, error) {
	const cancelQueued = `
UPDATE jobs
SET status = $1, error_detail = $2, cancel_requested = TRUE, completed_at = $3
WHERE id = $4 AND status = $5
RETURNING ` + jobColumns
	job, err := scanJob(q.DB.QueryRowContext(ctx, cancelQueued, StatusFailed, CancelledDetail, time.Now().UTC(), jobID, StatusQueued))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Job{}, err
	}

	const flagRunning = `
UPDATE jobs
SET cancel_requested = TRUE
WHERE id = $1 AND status = $2
RETURNING ` + jobColumns
	job, err = scanJob(q.DB.QueryRowContext(ctx, flagRunning, jobID, StatusRunning))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Job{}, err
	}

	job, err = q.Get(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	return job, ErrNotCancellable
}

// CancelRequested reports whether cancellation was requested.
func (q *PGQueue) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	const stmt = `SELECT cancel_requested FROM jobs WHERE id = $1 LIMIT 1`
	var requested bool
	if err := q.DB.QueryRowContext(ctx, stmt, jobID).Scan(&requested); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return requested, nil
}

// RequeueExpired returns running jobs with lapsed leases to the queue.
func (q *PGQueue) RequeueExpired(ctx context.Context) (int, error) {
	const stmt = `
UPDATE jobs
SET status = $1, worker_id = NULL, lease_expires_at = NULL, started_at = NULL, progress = 0, note = 'requeued after lease expiry'
WHERE status = $2 AND lease_expires_at IS NOT NULL AND lease_expires_at < $3`
	res, err := q.DB.ExecContext(ctx, stmt, StatusQueued, StatusRunning, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Stats counts jobs by status.
func (q *PGQueue) Stats(ctx context.Context) (Stats, error) {
	const stmt = `SELECT status, COUNT(*) FROM jobs GROUP BY status`
	rows, err := q.DB.QueryContext(ctx, stmt)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch status {
		case StatusQueued:
			stats.Queued = count
		case StatusRunning:
			stats.Running = count
		case StatusSucceeded:
			stats.Succeeded = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// checkTransition distinguishes unknown ids from terminal-state writes when
// a guarded UPDATE matched no rows.
func (q *PGQueue) checkTransition(ctx context.Context, res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := q.Get(ctx, jobID); err != nil {
		return err
	}
	return ErrTerminal
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var note, errorDetail, workerID, resultID sql.NullString
	var leaseExpires, startedAt, completedAt sql.NullTime
	err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.Query,
		&job.Status,
		&job.Progress,
		&note,
		&errorDetail,
		&workerID,
		&leaseExpires,
		&job.CancelRequested,
		&resultID,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	if note.Valid {
		job.Note = note.String
	}
	if errorDetail.Valid {
		job.ErrorDetail = errorDetail.String
	}
	if workerID.Valid {
		job.WorkerID = workerID.String
	}
	if resultID.Valid {
		job.ResultID = resultID.String
	}
	if leaseExpires.Valid {
		job.LeaseExpiresAt = &leaseExpires.Time
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return job, nil
}

var _ Queue = (*PGQueue)(nil)

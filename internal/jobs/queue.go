package jobs

import (
	"context"
	"time"
)

// Queue decouples request intake from processing. Implementations must
// serialize claim operations: a queued job is handed to exactly one worker.
type Queue interface {
	// Enqueue appends a job to the tail of the queue (FIFO).
	Enqueue(ctx context.Context, documentID, query string) (Job, error)

	// Claim atomically takes ownership of the oldest queued job and marks it
	// running with a lease. ok is false when the queue is empty.
	Claim(ctx context.Context, workerID string, lease time.Duration) (job Job, ok bool, err error)

	// ClaimByID claims one specific queued job. The synchronous upload path
	// uses it so the embedded worker cannot race it for the same job. Returns
	// ErrNotClaimed when the job exists but is no longer queued.
	ClaimByID(ctx context.Context, jobID, workerID string, lease time.Duration) (Job, error)

	Get(ctx context.Context, jobID string) (Job, error)

	// Position returns the 1-based queue position. Only meaningful while the
	// job is queued; returns 0 otherwise.
	Position(ctx context.Context, jobID string) (int, error)

	// UpdateProgress records pipeline progress for a running job.
	UpdateProgress(ctx context.Context, jobID string, progress int, note string) error

	// Heartbeat extends the lease of a running job held by workerID.
	Heartbeat(ctx context.Context, jobID, workerID string, lease time.Duration) error

	// Complete transitions a running job to succeeded, recording the result.
	Complete(ctx context.Context, jobID, resultID string) error

	// Fail transitions a job to failed with a human-readable detail.
	Fail(ctx context.Context, jobID, errorDetail string) error

	// Cancel marks a queued job failed with detail "cancelled". For a running
	// job it sets a best-effort cancellation flag; the worker discards the
	// result on completion.
	Cancel(ctx context.Context, jobID string) (Job, error)

	// CancelRequested reports whether cancellation was requested for a job.
	CancelRequested(ctx context.Context, jobID string) (bool, error)

	// RequeueExpired returns running jobs whose lease has lapsed to the queue,
	// so a worker crash never silently loses a job.
	RequeueExpired(ctx context.Context) (int, error)

	Stats(ctx context.Context) (Stats, error)
}

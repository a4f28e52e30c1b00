package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-memory implementation of Queue for development and
// tests. All operations take the queue mutex; claim-and-mark-running is a
// single critical section, so two workers can never hold the same job.
type MemoryQueue struct {
	mu   sync.Mutex
	data map[string]*Job
}

// NewMemoryQueue constructs a MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{data: make(map[string]*Job)}
}

// Enqueue appends a job to the tail of the queue.
func (q *MemoryQueue) Enqueue(ctx context.Context, documentID, query string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	job := Job{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Query:      query,
		Status:     StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.data[job.ID] = &job
	return job, nil
}

// Claim takes the oldest queued job, marking it running under a lease.
func (q *MemoryQueue) Claim(ctx context.Context, workerID string, lease time.Duration) (Job, bool, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var oldest *Job
	for _, job := range q.data {
		if job.Status != StatusQueued {
			continue
		}
		if oldest == nil || job.CreatedAt.Before(oldest.CreatedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return Job{}, false, nil
	}

	now := time.Now().UTC()
	expires := now.Add(lease)
	oldest.Status = StatusRunning
	oldest.WorkerID = workerID
	oldest.LeaseExpiresAt = &expires
	oldest.StartedAt = &now
	return *oldest, true, nil
}

// ClaimByID claims one specific queued job.
func (q *MemoryQueue) ClaimByID(ctx context.Context, jobID, workerID string, lease time.Duration) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	if job.Status != StatusQueued {
		return Job{}, ErrNotClaimed
	}
	now := time.Now().UTC()
	expires := now.Add(lease)
	job.Status = StatusRunning
	job.WorkerID = workerID
	job.LeaseExpiresAt = &expires
	job.StartedAt = &now
	return *job, nil
}

// Get returns a job by ID.
func (q *MemoryQueue) Get(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// Position returns the 1-based queue position of a queued job.
func (q *MemoryQueue) Position(ctx context.Context, jobID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return 0, ErrNotFound
	}
	if job.Status != StatusQueued {
		return 0, nil
	}
	pos := 1
	for _, other := range q.data {
		if other.Status == StatusQueued && other.CreatedAt.Before(job.CreatedAt) {
			pos++
		}
	}
	return pos, nil
}

// UpdateProgress records progress for a running job.
func (q *MemoryQueue) UpdateProgress(ctx context.Context, jobID string, progress int, note string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Terminal() {
		return ErrTerminal
	}
	job.Progress = clampProgress(progress)
	job.Note = note
	return nil
}

// Heartbeat extends the lease of a running job held by workerID.
func (q *MemoryQueue) Heartbeat(ctx context.Context, jobID, workerID string, lease time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != StatusRunning || job.WorkerID != workerID {
		return ErrNotClaimed
	}
	expires := time.Now().UTC().Add(lease)
	job.LeaseExpiresAt = &expires
	return nil
}

// Complete transitions a running job to succeeded.
func (q *MemoryQueue) Complete(ctx context.Context, jobID, resultID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Terminal() {
		return ErrTerminal
	}
	now := time.Now().UTC()
	job.Status = StatusSucceeded
	job.Progress = 100
	job.ResultID = resultID
	job.CompletedAt = &now
	job.LeaseExpiresAt = nil
	return nil
}

// Fail transitions a job to failed with detail.
func (q *MemoryQueue) Fail(ctx context.Context, jobID, errorDetail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Terminal() {
		return ErrTerminal
	}
	now := time.Now().UTC()
	job.Status = StatusFailed
	job.ErrorDetail = errorDetail
	job.CompletedAt = &now
	job.LeaseExpiresAt = nil
	return nil
}

// Cancel cancels a queued job, or flags a running one for best-effort cancel.
func (q *MemoryQueue) Cancel(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	switch job.Status {
	case StatusQueued:
		now := time.Now().UTC()
		job.Status = StatusFailed
		job.ErrorDetail = CancelledDetail
		job.CancelRequested = true
		job.CompletedAt = &now
		return *job, nil
	case StatusRunning:
		job.CancelRequested = true
		return *job, nil
	default:
		return *job, ErrNotCancellable
	}
}

// CancelRequested reports whether cancellation was requested.
func (q *MemoryQueue) CancelRequested(ctx context.Context, jobID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.data[jobID]
	if !ok {
		return false, ErrNotFound
	}
	return job.CancelRequested, nil
}

// RequeueExpired returns running jobs with lapsed leases to the queue.
func (q *MemoryQueue) RequeueExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().UTC()
	requeued := 0
	for _, job := range q.data {
		if job.Status != StatusRunning || job.LeaseExpiresAt == nil || job.LeaseExpiresAt.After(now) {
			continue
		}
		job.Status = StatusQueued
		job.WorkerID = ""
		job.LeaseExpiresAt = nil
		job.StartedAt = nil
		job.Progress = 0
		job.Note = "requeued after lease expiry"
		requeued++
	}
	return requeued, nil
}

// Stats counts jobs by status.
func (q *MemoryQueue) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var stats Stats
	for _, job := range q.data {
		switch job.Status {
		case StatusQueued:
			stats.Queued++
		case StatusRunning:
			stats.Running++
		case StatusSucceeded:
			stats.Succeeded++
		case StatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// snapshot returns all jobs ordered oldest-first, for tests.
func (q *MemoryQueue) snapshot() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.data))
	for _, job := range q.data {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

var _ Queue = (*MemoryQueue)(nil)

package pipeline

import (
	"context"
	"sync"
	"time"

	"findoc-backend/internal/jobs"
	"findoc-backend/internal/shared/metrics"
	"findoc-backend/internal/shared/telemetry"
)

// Worker polls the queue and feeds claimed jobs to the pipeline. Each poll
// first sweeps expired leases back into the queue, so jobs held by crashed
// workers are picked up again.
type Worker struct {
	Queue        jobs.Queue
	Pipeline     *Pipeline
	ID           string
	Concurrency  int
	Lease        time.Duration
	PollInterval time.Duration
}

// Run processes jobs until ctx is cancelled, then waits for in-flight jobs
// to finish.
func (w *Worker) Run(ctx context.Context) {
	concurrency := w.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	interval := w.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	telemetry.Info("worker.started", map[string]any{
		"worker_id":   w.ID,
		"concurrency": concurrency,
	})

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			telemetry.Info("worker.stopped", map[string]any{"worker_id": w.ID})
			return
		case <-ticker.C:
			w.sweepExpired(ctx)
			w.claimLoop(ctx, sem, &wg)
		}
	}
}

// claimLoop claims jobs until the queue is drained or all slots are busy.
func (w *Worker) claimLoop(ctx context.Context, sem chan struct{}, wg *sync.WaitGroup) {
	for {
		select {
		case sem <- struct{}{}:
		default:
			return
		}

		job, ok, err := w.Queue.Claim(ctx, w.ID, w.Lease)
		if err != nil {
			<-sem
			if ctx.Err() == nil {
				telemetry.Error("worker.claim_failed", map[string]any{
					"worker_id": w.ID,
					"error":     err.Error(),
				})
			}
			return
		}
		if !ok {
			<-sem
			return
		}

		metrics.IncJobsClaimed()
		telemetry.Info("worker.job_claimed", map[string]any{
			"worker_id":   w.ID,
			"job_id":      job.ID,
			"document_id": job.DocumentID,
		})

		wg.Add(1)
		go func(job jobs.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			// A claimed job runs to completion even if the worker is asked
			// to stop; the pipeline timeout bounds the drain. Cancelling
			// here would fail draining jobs instead of finishing them.
			w.processWithHeartbeat(context.WithoutCancel(ctx), job)
		}(job)
	}
}

// processWithHeartbeat keeps the job's lease alive while the pipeline runs.
func (w *Worker) processWithHeartbeat(ctx context.Context, job jobs.Job) {
	done := make(chan struct{})
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go func() {
		defer hbWG.Done()
		interval := w.Lease / 3
		if interval <= 0 {
			interval = 10 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := w.Queue.Heartbeat(ctx, job.ID, w.ID, w.Lease); err != nil && ctx.Err() == nil {
					telemetry.Warn("worker.heartbeat_failed", map[string]any{
						"worker_id": w.ID,
						"job_id":    job.ID,
						"error":     err.Error(),
					})
				}
			}
		}
	}()

	w.Pipeline.Process(ctx, job)
	close(done)
	hbWG.Wait()
}

func (w *Worker) sweepExpired(ctx context.Context) {
	n, err := w.Queue.RequeueExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			telemetry.Error("worker.requeue_sweep_failed", map[string]any{
				"worker_id": w.ID,
				"error":     err.Error(),
			})
		}
		return
	}
	if n > 0 {
		for i := 0; i < n; i++ {
			metrics.IncJobsRequeued()
		}
		telemetry.Warn("worker.jobs_requeued", map[string]any{
			"worker_id": w.ID,
			"count":     n,
		})
	}
}

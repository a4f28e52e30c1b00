package pipeline

import (
	"context"
	"fmt"

	"findoc-backend/internal/jobs"
	"findoc-backend/internal/results"
)

// syncWorkerID marks jobs processed inline by the upload request.
const syncWorkerID = "sync"

// RunSync processes an already-enqueued job inline and returns its result.
// The job is claimed by ID so the embedded worker cannot race the request
// for it. The returned job carries the terminal status; err is only set for
// infrastructure problems, not analysis failures.
func (p *Pipeline) RunSync(ctx context.Context, jobID string) (results.AnalysisResult, jobs.Job, error) {
	job, err := p.Queue.ClaimByID(ctx, jobID, syncWorkerID, p.Timeout)
	if err != nil {
		return results.AnalysisResult{}, jobs.Job{}, fmt.Errorf("claim job %s: %w", jobID, err)
	}

	p.Process(ctx, job)

	final, err := p.Queue.Get(ctx, jobID)
	if err != nil {
		return results.AnalysisResult{}, jobs.Job{}, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if final.Status != jobs.StatusSucceeded {
		return results.AnalysisResult{}, final, nil
	}

	result, err := p.Results.GetByJobID(ctx, jobID)
	if err != nil {
		return results.AnalysisResult{}, final, fmt.Errorf("load result for job %s: %w", jobID, err)
	}
	return result, final, nil
}

package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"findoc-backend/internal/documents"
	"findoc-backend/internal/extract"
	"findoc-backend/internal/jobs"
	"findoc-backend/internal/llm"
	"findoc-backend/internal/results"
	"findoc-backend/internal/shared/metrics"
	"findoc-backend/internal/shared/storage/object"
	"findoc-backend/internal/shared/telemetry"
	"findoc-backend/internal/users"
)

// Pipeline stage notes, with the progress reported at each stage. Completion
// bumps progress to 100.
const (
	stageFetching   = "fetching document"
	stageExtracting = "extracting text"
	stageAnalyzing  = "running analysis"
	stagePersisting = "persisting result"

	progressFetching   = 10
	progressExtracting = 30
	progressAnalyzing  = 50
	progressPersisting = 90
)

// finalizeTimeout bounds terminal bookkeeping once the run context is dead.
const finalizeTimeout = 30 * time.Second

// Pipeline processes one claimed job end to end: fetch the document, extract
// text, run the model, persist the result, then clean up the stored blob.
// The result row is written before the blob is deleted, so a crash between
// the two can at worst leave an orphaned blob, never a lost result.
type Pipeline struct {
	Docs    documents.Repo
	Queue   jobs.Queue
	Results results.Repo
	Users   users.Repo
	Store   object.ObjectStore
	LLM     llm.Client
	Timeout time.Duration

	// ExtractFn overrides text extraction; nil means extract.ExtractTextFromBytes.
	ExtractFn func(ctx context.Context, data []byte) (string, error)
}

// Process runs a claimed job to a terminal state. Each job gets exactly one
// attempt; failures are classified and recorded, never retried here.
func (p *Pipeline) Process(ctx context.Context, job jobs.Job) {
	start := time.Now()
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if p.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
	}
	defer cancel()

	err := p.run(runCtx, job, start)
	metrics.ObserveJobDurationMs(float64(time.Since(start).Milliseconds()))
	if err == nil {
		metrics.IncJobsSucceeded()
		telemetry.Info("pipeline.job_succeeded", map[string]any{
			"job_id":      job.ID,
			"document_id": job.DocumentID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return
	}

	p.finalizeFailure(job, err)
}

// run executes the stages. On success the job is completed and cleaned up
// before returning.
func (p *Pipeline) run(ctx context.Context, job jobs.Job, start time.Time) error {
	p.progress(ctx, job.ID, progressFetching, stageFetching)
	doc, err := p.Docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		return &stageError{stage: stageFetching, err: err}
	}
	if err := p.Docs.SetStatus(ctx, doc.ID, documents.StatusProcessing); err != nil {
		telemetry.Warn("pipeline.set_status_failed", map[string]any{
			"document_id": doc.ID,
			"status":      documents.StatusProcessing,
			"error":       err.Error(),
		})
	}

	// The blob read belongs to the fetch stage; a storage outage here must
	// not be reported as an extraction failure.
	raw, err := p.fetchBlob(ctx, doc.StorageKey)
	if err != nil {
		return &stageError{stage: stageFetching, err: err}
	}

	p.progress(ctx, job.ID, progressExtracting, stageExtracting)
	extractFn := p.ExtractFn
	if extractFn == nil {
		extractFn = extract.ExtractTextFromBytes
	}
	text, err := extractFn(ctx, raw)
	if err != nil {
		return &stageError{stage: stageExtracting, err: err}
	}

	if err := p.checkCancelled(ctx, job.ID); err != nil {
		return err
	}

	p.progress(ctx, job.ID, progressAnalyzing, stageAnalyzing)
	analysis, err := p.LLM.Analyze(ctx, llm.AnalyzeInput{
		Query:        job.Query,
		DocumentText: text,
	})
	if err != nil {
		return &stageError{stage: stageAnalyzing, err: err}
	}

	// A cancel that lands while the model runs still wins: the result is
	// discarded, not persisted.
	if err := p.checkCancelled(ctx, job.ID); err != nil {
		return err
	}

	p.progress(ctx, job.ID, progressPersisting, stagePersisting)
	result := results.AnalysisResult{
		ID:                uuid.NewString(),
		DocumentID:        doc.ID,
		JobID:             job.ID,
		Query:             job.Query,
		AnalysisText:      analysis,
		ProcessingSeconds: time.Since(start).Seconds(),
		ModelUsed:         p.LLM.Model(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := p.Results.Create(ctx, result); err != nil {
		return &stageError{stage: stagePersisting, err: err}
	}
	if err := p.Queue.Complete(ctx, job.ID, result.ID); err != nil {
		if errors.Is(err, jobs.ErrTerminal) {
			// Cancelled between persist and complete; the stored result is
			// orphaned but harmless.
			return errCancelled
		}
		return &stageError{stage: stagePersisting, err: err}
	}

	if doc.OwnerID != "" {
		if err := p.Users.IncrementUsage(ctx, doc.OwnerID); err != nil {
			telemetry.Warn("pipeline.usage_increment_failed", map[string]any{
				"user_id": doc.OwnerID,
				"error":   err.Error(),
			})
		}
	}

	p.cleanup(ctx, doc, documents.StatusCompleted)
	return nil
}

// finalizeFailure records the failure on the job and document. Bookkeeping
// runs on a detached context since the run context may already be dead.
func (p *Pipeline) finalizeFailure(job jobs.Job, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	code := classify(runErr)
	detail := failureDetail(runErr)
	metrics.IncJobsFailed()
	telemetry.Error("pipeline.job_failed", map[string]any{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"code":        code,
		"detail":      detail,
	})

	if err := p.Queue.Fail(ctx, job.ID, detail); err != nil && !errors.Is(err, jobs.ErrTerminal) {
		telemetry.Error("pipeline.fail_transition_failed", map[string]any{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}

	doc, err := p.Docs.GetByID(ctx, job.DocumentID)
	if err != nil {
		return
	}
	p.cleanup(ctx, doc, documents.StatusFailed)
}

// cleanup deletes the stored blob and records the document's final status.
// Both are best effort; the result (if any) is already durable.
func (p *Pipeline) cleanup(ctx context.Context, doc documents.Document, status string) {
	if doc.StorageKey != "" {
		if err := p.Store.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.Warn("pipeline.blob_cleanup_failed", map[string]any{
				"document_id": doc.ID,
				"storage_key": doc.StorageKey,
				"error":       err.Error(),
			})
		}
	}
	if err := p.Docs.SetStatus(ctx, doc.ID, status); err != nil {
		telemetry.Warn("pipeline.set_status_failed", map[string]any{
			"document_id": doc.ID,
			"status":      status,
			"error":       err.Error(),
		})
	}
}

// fetchBlob reads the stored document into memory.
func (p *Pipeline) fetchBlob(ctx context.Context, storageKey string) ([]byte, error) {
	body, err := p.Store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (p *Pipeline) checkCancelled(ctx context.Context, jobID string) error {
	requested, err := p.Queue.CancelRequested(ctx, jobID)
	if err != nil {
		telemetry.Warn("pipeline.cancel_check_failed", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return nil
	}
	if requested {
		return errCancelled
	}
	return nil
}

func (p *Pipeline) progress(ctx context.Context, jobID string, progress int, note string) {
	if err := p.Queue.UpdateProgress(ctx, jobID, progress, note); err != nil {
		telemetry.Warn("pipeline.progress_update_failed", map[string]any{
			"job_id": jobID,
			"note":   note,
			"error":  err.Error(),
		})
	}
}

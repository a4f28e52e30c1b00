package results

import "context"

// Repo stores analysis results. One result per job.
type Repo interface {
	Create(ctx context.Context, result AnalysisResult) error
	GetByJobID(ctx context.Context, jobID string) (AnalysisResult, error)
	// List returns results newest-first.
	List(ctx context.Context, limit, offset int) ([]AnalysisResult, error)
}

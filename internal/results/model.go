package results

import "time"

// AnalysisResult is the persisted output of one document analysis job.
type AnalysisResult struct {
	ID                string
	DocumentID        string
	JobID             string
	Query             string
	AnalysisText      string
	ProcessingSeconds float64
	ModelUsed         string
	CreatedAt         time.Time
}

package results

import "time"

// ResultResponse is the public view of an analysis result.
type ResultResponse struct {
	ID                string    `json:"id"`
	DocumentID        string    `json:"documentId"`
	JobID             string    `json:"jobId"`
	Query             string    `json:"query"`
	Analysis          string    `json:"analysis"`
	ProcessingSeconds float64   `json:"processingSeconds"`
	ModelUsed         string    `json:"modelUsed"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ListResponse wraps a page of results.
type ListResponse struct {
	Results []ResultResponse `json:"results"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ToResultResponse maps an AnalysisResult to its public representation.
func ToResultResponse(r AnalysisResult) ResultResponse {
	return ResultResponse{
		ID:                r.ID,
		DocumentID:        r.DocumentID,
		JobID:             r.JobID,
		Query:             r.Query,
		Analysis:          r.AnalysisText,
		ProcessingSeconds: r.ProcessingSeconds,
		ModelUsed:         r.ModelUsed,
		CreatedAt:         r.CreatedAt,
	}
}

package jobs

import "time"

// StatusResponse is the public view of a job returned by the status endpoint.
type StatusResponse struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"documentId"`
	Query         string     `json:"query"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	Note          string     `json:"note,omitempty"`
	ErrorDetail   string     `json:"errorDetail,omitempty"`
	QueuePosition int        `json:"queuePosition,omitempty"`
	ResultID      string     `json:"resultId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
}

// ToStatusResponse maps a Job to its public representation.
func ToStatusResponse(j Job, queuePosition int) StatusResponse {
	return StatusResponse{
		ID:            j.ID,
		DocumentID:    j.DocumentID,
		Query:         j.Query,
		Status:        j.Status,
		Progress:      j.Progress,
		Note:          j.Note,
		ErrorDetail:   j.ErrorDetail,
		QueuePosition: queuePosition,
		ResultID:      j.ResultID,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}

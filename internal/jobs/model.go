package jobs

import "time"

// Job statuses. Transitions are monotonic:
// queued -> running -> succeeded | failed. Terminal states are final.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// CancelledDetail is the error detail recorded for cancelled jobs.
const CancelledDetail = "cancelled"

// Job is a unit of work: analyze one document with one query.
type Job struct {
	ID              string
	DocumentID      string
	Query           string
	Status          string
	Progress        int
	Note            string
	ErrorDetail     string
	WorkerID        string
	LeaseExpiresAt  *time.Time
	CancelRequested bool
	ResultID        string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Terminal reports whether the job has reached a final state.
func (j Job) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

// Stats is a snapshot of queue depth by status.
type Stats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

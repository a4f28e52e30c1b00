package documents

import "time"

// Document lifecycle statuses. A document is mutated only by the analysis
// pipeline after creation.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document represents an uploaded financial document.
type Document struct {
	ID         string
	OwnerID    string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidStatus reports whether s is a known document status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

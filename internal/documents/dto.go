package documents

import "time"

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	DocumentID string `json:"documentId"`
	JobID      string `json:"jobId"`
	Status     string `json:"status"`
}

// DocumentResponse is the public view of a document.
type DocumentResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListResponse wraps a page of documents.
type ListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// ToDocumentResponse maps a Document to its public representation.
func ToDocumentResponse(d Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID,
		FileName:  d.FileName,
		MimeType:  d.MimeType,
		SizeBytes: d.SizeBytes,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

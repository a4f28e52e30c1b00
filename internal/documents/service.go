package documents

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"findoc-backend/internal/jobs"
	"findoc-backend/internal/shared/metrics"
	"findoc-backend/internal/shared/storage/object"
	"findoc-backend/internal/shared/telemetry"
	"findoc-backend/internal/users"
)

// UploadInput carries a validated upload into the service.
type UploadInput struct {
	FileName string
	Query    string
	Email    string
	Body     io.Reader
}

// Service persists uploaded documents and enqueues their analysis jobs.
type Service struct {
	Repo         Repo
	Store        object.ObjectStore
	Queue        jobs.Queue
	Users        users.Repo
	DefaultQuery string
}

// Upload stores the blob, creates the document record and enqueues a job.
// The blob is saved first; if any later step fails, it is rolled back so no
// orphaned state survives a failed upload.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, jobs.Job, error) {
	query := in.Query
	if query == "" {
		query = s.DefaultQuery
	}

	ownerID := ""
	if in.Email != "" {
		user, err := s.Users.GetOrCreate(ctx, in.Email)
		if err != nil {
			return Document{}, jobs.Job{}, fmt.Errorf("resolve user: %w", err)
		}
		ownerID = user.ID
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, ownerID, in.FileName, in.Body)
	if err != nil {
		return Document{}, jobs.Job{}, fmt.Errorf("store upload: %w", err)
	}

	doc := Document{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		FileName:   in.FileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, doc); err != nil {
		s.rollbackBlob(ctx, storageKey)
		return Document{}, jobs.Job{}, fmt.Errorf("create document: %w", err)
	}

	job, err := s.Queue.Enqueue(ctx, doc.ID, query)
	if err != nil {
		s.rollbackBlob(ctx, storageKey)
		if delErr := s.Repo.Delete(ctx, doc.ID); delErr != nil {
			telemetry.Warn("documents.rollback_failed", map[string]any{
				"document_id": doc.ID,
				"error":       delErr.Error(),
			})
		}
		return Document{}, jobs.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	metrics.IncJobsEnqueued()

	telemetry.Info("documents.uploaded", map[string]any{
		"document_id": doc.ID,
		"job_id":      job.ID,
		"file_name":   doc.FileName,
		"size_bytes":  doc.SizeBytes,
	})
	return doc, job, nil
}

func (s *Service) rollbackBlob(ctx context.Context, storageKey string) {
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Warn("documents.blob_rollback_failed", map[string]any{
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}

// Get returns document metadata.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	return s.Repo.GetByID(ctx, documentID)
}

// List returns documents newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Delete removes a document's metadata and stored blob.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.StorageKey != "" {
		s.rollbackBlob(ctx, doc.StorageKey)
	}
	return s.Repo.Delete(ctx, documentID)
}

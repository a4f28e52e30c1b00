package documents

import "context"

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	// SetStatus transitions a document's status. Fails with ErrNotFound if the
	// id is unknown.
	SetStatus(ctx context.Context, documentID, status string) error
	// Delete removes document metadata. Deleting an absent id is a no-op.
	Delete(ctx context.Context, documentID string) error
	List(ctx context.Context, limit, offset int) ([]Document, error)
}

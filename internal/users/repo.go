package users

import "context"

// Repo stores usage records.
type Repo interface {
	// GetOrCreate returns the user for email, creating a fresh record when
	// none exists.
	GetOrCreate(ctx context.Context, email string) (User, error)

	GetByID(ctx context.Context, id string) (User, error)

	// IncrementUsage bumps the analysis and API call counters. Called once per
	// successfully completed job.
	IncrementUsage(ctx context.Context, userID string) error
}

package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PGRepo is the Postgres-backed Repo.
type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, email, total_analyses, api_calls, created_at`

func (r *PGRepo) GetOrCreate(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	// Upsert keeps concurrent first-uploads from racing on the unique email.
	const stmt = `
INSERT INTO users (id, email, total_analyses, api_calls, created_at)
VALUES ($1, $2, 0, 0, $3)
ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
RETURNING ` + userColumns
	return scanUser(r.DB.QueryRowContext(ctx, stmt, uuid.NewString(), email, time.Now().UTC()))
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (User, error) {
	const stmt = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return scanUser(r.DB.QueryRowContext(ctx, stmt, id))
}

func (r *PGRepo) IncrementUsage(ctx context.Context, userID string) error {
	const stmt = `
UPDATE users
SET total_analyses = total_analyses + 1, api_calls = api_calls + 1
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, stmt, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.TotalAnalyses, &user.APICalls, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

var _ Repo = (*PGRepo)(nil)

package results

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo is the Postgres-backed Repo.
type PGRepo struct {
	DB *sql.DB
}

const resultColumns = `id, document_id, job_id, query, analysis_text, processing_seconds, model_used, created_at`

func (r *PGRepo) Create(ctx context.Context, result AnalysisResult) error {
	const stmt = `
INSERT INTO analysis_results (id, document_id, job_id, query, analysis_text, processing_seconds, model_used, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, stmt,
		result.ID,
		result.DocumentID,
		result.JobID,
		result.Query,
		result.AnalysisText,
		result.ProcessingSeconds,
		result.ModelUsed,
		result.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByJobID(ctx context.Context, jobID string) (AnalysisResult, error) {
	const stmt = `SELECT ` + resultColumns + ` FROM analysis_results WHERE job_id = $1 LIMIT 1`
	return scanResult(r.DB.QueryRowContext(ctx, stmt, jobID))
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]AnalysisResult, error) {
	if limit <= 0 {
		limit = 50
	}
	const stmt = `SELECT ` + resultColumns + ` FROM analysis_results ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, stmt, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AnalysisResult, 0, limit)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (AnalysisResult, error) {
	var result AnalysisResult
	err := row.Scan(
		&result.ID,
		&result.DocumentID,
		&result.JobID,
		&result.Query,
		&result.AnalysisText,
		&result.ProcessingSeconds,
		&result.ModelUsed,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisResult{}, ErrNotFound
		}
		return AnalysisResult{}, err
	}
	return result, nil
}

var _ Repo = (*PGRepo)(nil)

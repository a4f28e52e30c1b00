package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newJobRows(job Job) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "document_id", "query", "status", "progress", "note", "error_detail",
		"worker_id", "lease_expires_at", "cancel_requested", "result_id",
		"created_at", "started_at", "completed_at",
	}).AddRow(
		job.ID, job.DocumentID, job.Query, job.Status, job.Progress, job.Note, job.ErrorDetail,
		job.WorkerID, job.LeaseExpiresAt, job.CancelRequested, job.ResultID,
		job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
}

func TestPGQueueEnqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(sqlmock.AnyArg(), "doc-1", "analyze this", StatusQueued, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job, err := q.Enqueue(context.Background(), "doc-1", "analyze this")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Status != StatusQueued || job.ID == "" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGQueueClaimSkipLocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	now := time.Now().UTC()
	started := now
	expires := now.Add(time.Minute)
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(StatusRunning, "w1", sqlmock.AnyArg(), sqlmock.AnyArg(), StatusQueued).
		WillReturnRows(newJobRows(Job{
			ID:             "job-1",
			DocumentID:     "doc-1",
			Query:          "q",
			Status:         StatusRunning,
			WorkerID:       "w1",
			LeaseExpiresAt: &expires,
			CreatedAt:      now,
			StartedAt:      &started,
		}))

	job, ok, err := q.Claim(context.Background(), "w1", time.Minute)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !ok || job.ID != "job-1" || job.Status != StatusRunning {
		t.Fatalf("unexpected claim result: ok=%v job=%+v", ok, job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGQueueClaimEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, ok, err := q.Claim(context.Background(), "w1", time.Minute)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if ok {
		t.Fatal("expected no job from empty queue")
	}
}

func TestPGQueueCompleteTerminalGuard(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	// Guarded update matches nothing; follow-up read finds the job, so the
	// job is terminal rather than unknown.
	mock.ExpectExec("UPDATE jobs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(newJobRows(Job{
			ID:         "job-1",
			DocumentID: "doc-1",
			Query:      "q",
			Status:     StatusFailed,
			CreatedAt:  time.Now().UTC(),
		}))

	err = q.Complete(context.Background(), "job-1", "res-1")
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGQueuePositionCountsEarlierQueued(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	created := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-3").
		WillReturnRows(newJobRows(Job{
			ID:         "job-3",
			DocumentID: "doc-3",
			Query:      "q",
			Status:     StatusQueued,
			CreatedAt:  created,
		}))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(StatusQueued, created).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	pos, err := q.Position(context.Background(), "job-3")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != 3 {
		t.Fatalf("expected position 3, got %d", pos)
	}
}

func TestPGQueueStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	mock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow(StatusQueued, 4).
			AddRow(StatusFailed, 1))

	stats, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Stats{Queued: 4, Failed: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestPGQueueRequeueExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	q := &PGQueue{DB: db}
	mock.ExpectExec("UPDATE jobs").
		WithArgs(StatusQueued, StatusRunning, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := q.RequeueExpired(context.Background())
	if err != nil {
		t.Fatalf("RequeueExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 requeued, got %d", n)
	}
}

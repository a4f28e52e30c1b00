package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "doc-1", "q1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	time.Sleep(time.Millisecond)
	second, err := q.Enqueue(ctx, "doc-2", "q2")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	pos, err := q.Position(ctx, second.ID)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != 2 {
		t.Fatalf("expected position 2, got %d", pos)
	}

	claimed, ok, err := q.Claim(ctx, "w1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	if claimed.ID != first.ID {
		t.Fatalf("expected oldest job %s, got %s", first.ID, claimed.ID)
	}
	if claimed.Status != StatusRunning || claimed.WorkerID != "w1" {
		t.Fatalf("unexpected claimed state: %+v", claimed)
	}

	pos, err = q.Position(ctx, second.ID)
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos != 1 {
		t.Fatalf("expected position 1 after claim, got %d", pos)
	}
}

func TestMemoryQueueConcurrentClaimSingleWinner(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "doc-1", "q")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	winners := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, ok, err := q.Claim(ctx, "w", time.Minute)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				winners <- claimed.ID
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for id := range winners {
		count++
		if id != job.ID {
			t.Fatalf("unexpected job claimed: %s", id)
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one winner, got %d", count)
	}
}

func TestMemoryQueueCompleteIsTerminal(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, "doc-1", "q")
	if _, ok, _ := q.Claim(ctx, "w1", time.Minute); !ok {
		t.Fatal("expected claim to succeed")
	}
	if err := q.Complete(ctx, job.ID, "res-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if err := q.Fail(ctx, job.ID, "boom"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := q.UpdateProgress(ctx, job.ID, 50, "late"); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}

	got, err := q.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusSucceeded || got.Progress != 100 || got.ResultID != "res-1" {
		t.Fatalf("unexpected terminal state: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}
}

func TestMemoryQueueCancelQueued(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, "doc-1", "q")
	cancelled, err := q.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusFailed || cancelled.ErrorDetail != CancelledDetail {
		t.Fatalf("unexpected cancel state: %+v", cancelled)
	}

	if _, err := q.Cancel(ctx, job.ID); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
}

func TestMemoryQueueCancelRunningSetsFlag(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, "doc-1", "q")
	if _, ok, _ := q.Claim(ctx, "w1", time.Minute); !ok {
		t.Fatal("expected claim to succeed")
	}

	flagged, err := q.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if flagged.Status != StatusRunning || !flagged.CancelRequested {
		t.Fatalf("expected running job with cancel flag, got %+v", flagged)
	}

	requested, err := q.CancelRequested(ctx, job.ID)
	if err != nil {
		t.Fatalf("cancelRequested: %v", err)
	}
	if !requested {
		t.Fatal("expected cancelRequested to be true")
	}
}

func TestMemoryQueueRequeueExpired(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, "doc-1", "q")
	if _, ok, _ := q.Claim(ctx, "w1", -time.Second); !ok {
		t.Fatal("expected claim to succeed")
	}

	n, err := q.RequeueExpired(ctx)
	if err != nil {
		t.Fatalf("requeueExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 requeued, got %d", n)
	}

	got, _ := q.Get(ctx, job.ID)
	if got.Status != StatusQueued || got.WorkerID != "" || got.LeaseExpiresAt != nil {
		t.Fatalf("expected job back in queue, got %+v", got)
	}

	// Still claimable by another worker.
	claimed, ok, err := q.Claim(ctx, "w2", time.Minute)
	if err != nil || !ok || claimed.ID != job.ID {
		t.Fatalf("expected reclaim by w2: ok=%v err=%v job=%+v", ok, err, claimed)
	}
}

func TestMemoryQueueHeartbeatOwnership(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	job, _ := q.Enqueue(ctx, "doc-1", "q")
	if _, ok, _ := q.Claim(ctx, "w1", time.Minute); !ok {
		t.Fatal("expected claim to succeed")
	}

	if err := q.Heartbeat(ctx, job.ID, "w2", time.Minute); !errors.Is(err, ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed for foreign worker, got %v", err)
	}
	if err := q.Heartbeat(ctx, job.ID, "w1", time.Minute); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
}

func TestMemoryQueueStats(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	a, _ := q.Enqueue(ctx, "doc-1", "q")
	time.Sleep(time.Millisecond)
	q.Enqueue(ctx, "doc-2", "q")
	time.Sleep(time.Millisecond)
	c, _ := q.Enqueue(ctx, "doc-3", "q")

	q.Claim(ctx, "w1", time.Minute)
	q.Complete(ctx, a.ID, "res-1")
	q.Cancel(ctx, c.ID)

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{Queued: 1, Running: 0, Succeeded: 1, Failed: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	snap := q.snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 jobs in snapshot, got %d", len(snap))
	}
}

func TestMemoryQueueGetUnknown(t *testing.T) {
	q := NewMemoryQueue()
	if _, err := q.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

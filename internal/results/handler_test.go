package results

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/jobs"
)

func newTestRouter(repo Repo, queue jobs.Queue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(repo, queue).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestGetResultForSucceededJob(t *testing.T) {
	ctx := context.Background()
	queue := jobs.NewMemoryQueue()
	repo := NewMemoryRepo()

	job, _ := queue.Enqueue(ctx, "doc-1", "summarize")
	queue.Claim(ctx, "w1", time.Minute)
	if err := repo.Create(ctx, AnalysisResult{
		ID:                "res-1",
		DocumentID:        "doc-1",
		JobID:             job.ID,
		Query:             "summarize",
		AnalysisText:      "looks healthy",
		ProcessingSeconds: 1.5,
		ModelUsed:         "gemini-2.5-flash",
		CreatedAt:         time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create result: %v", err)
	}
	queue.Complete(ctx, job.ID, "res-1")

	r := newTestRouter(repo, queue)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/result", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ID != "res-1" || resp.Analysis != "looks healthy" || resp.ModelUsed != "gemini-2.5-flash" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetResultNotReadyWhileQueued(t *testing.T) {
	ctx := context.Background()
	queue := jobs.NewMemoryQueue()
	job, _ := queue.Enqueue(ctx, "doc-1", "q")

	r := newTestRouter(NewMemoryRepo(), queue)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/result", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error.Code != "not_ready" {
		t.Fatalf("expected not_ready code, got %q", resp.Error.Code)
	}
}

func TestGetResultForFailedJob(t *testing.T) {
	ctx := context.Background()
	queue := jobs.NewMemoryQueue()
	job, _ := queue.Enqueue(ctx, "doc-1", "q")
	queue.Claim(ctx, "w1", time.Minute)
	queue.Fail(ctx, job.ID, "extraction error")

	r := newTestRouter(NewMemoryRepo(), queue)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/result", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetResultUnknownJob(t *testing.T) {
	r := newTestRouter(NewMemoryRepo(), jobs.NewMemoryQueue())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing/result", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListResultsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Now().UTC()
	for i, id := range []string{"res-1", "res-2", "res-3"} {
		repo.Create(ctx, AnalysisResult{
			ID:        id,
			JobID:     "job-" + id,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	r := newTestRouter(repo, jobs.NewMemoryQueue())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/results?limit=2", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0].ID != "res-3" || resp.Results[1].ID != "res-2" {
		t.Fatalf("expected newest-first order, got %+v", resp.Results)
	}
}

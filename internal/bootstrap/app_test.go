package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"findoc-backend/internal/documents"
	"findoc-backend/internal/jobs"
	"findoc-backend/internal/llm"
	"findoc-backend/internal/results"
	"findoc-backend/internal/shared/config"
)

type fakeLLM struct {
	output string
}

func (f *fakeLLM) Analyze(ctx context.Context, input llm.AnalyzeInput) (string, error) {
	return f.output, nil
}

func (f *fakeLLM) Model() string { return "fake-model" }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:             "8080",
		CORSAllowOrigin:  []string{"http://localhost:5173"},
		ObjectStoreType:  "local",
		LocalStoreDir:    t.TempDir(),
		LLMModel:         "fake-model",
		Env:              "dev",
		DefaultQuery:     "Analyze this financial document for investment insights",
		MaxUploadBytes:   1 << 20,
		WorkerCount:      1,
		JobTimeout:       5 * time.Second,
		JobLease:         time.Minute,
		PollInterval:     10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
		SyncUploadEnable: true,
	}
}

func buildTestApp(t *testing.T) *App {
	t.Helper()
	app, err := BuildWithLLM(context.Background(), testConfig(t), &fakeLLM{output: "EXECUTIVE SUMMARY\nHealthy."})
	if err != nil {
		t.Fatalf("BuildWithLLM: %v", err)
	}
	// Route text extraction around the PDF parser; uploads in these tests
	// are not real PDFs.
	app.Pipeline.ExtractFn = func(ctx context.Context, data []byte) (string, error) {
		return "[Page 1]\nRevenue: $10M", nil
	}
	return app
}

func pdfUploadRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.pdf")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte("%PDF-1.7 test data"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadProcessAndFetchResult(t *testing.T) {
	app := buildTestApp(t)
	ctx := context.Background()

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, pdfUploadRequest(t, "/api/v1/documents"))
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload: expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var upload documents.UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &upload); err != nil {
		t.Fatalf("unmarshal upload: %v", err)
	}

	// Result is not ready before processing.
	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+upload.JobID+"/result", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before processing, got %d", w.Code)
	}

	// Drive the worker path by hand.
	job, ok, err := app.Queue.Claim(ctx, "w-test", time.Minute)
	if err != nil || !ok {
		t.Fatalf("claim: ok=%v err=%v", ok, err)
	}
	app.Pipeline.Process(ctx, job)

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+upload.JobID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("job status: expected 200, got %d", w.Code)
	}
	var status jobs.StatusResponse
	json.Unmarshal(w.Body.Bytes(), &status)
	if status.Status != jobs.StatusSucceeded || status.Progress != 100 {
		t.Fatalf("unexpected job status: %+v", status)
	}

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+upload.JobID+"/result", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("result: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result results.ResultResponse
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.Analysis != "EXECUTIVE SUMMARY\nHealthy." || result.DocumentID != upload.DocumentID {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSyncUploadReturnsResultInline(t *testing.T) {
	app := buildTestApp(t)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, pdfUploadRequest(t, "/api/v1/documents/sync"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result results.ResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Analysis == "" || result.ModelUsed != "fake-model" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestUnknownJobReturns404(t *testing.T) {
	app := buildTestApp(t)
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestNonPDFUploadRejected(t *testing.T) {
	app := buildTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("plain text"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "validation_error") {
		t.Fatalf("expected validation_error code, got %s", w.Body.String())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	app := buildTestApp(t)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "healthy") {
		t.Fatalf("health: got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "analysis_jobs_enqueued_total") {
		t.Fatalf("metrics: got %d", w.Code)
	}
}

func TestQueueStatsEndpoint(t *testing.T) {
	app := buildTestApp(t)

	w := httptest.NewRecorder()
	app.Router.ServeHTTP(w, pdfUploadRequest(t, "/api/v1/documents"))
	if w.Code != http.StatusAccepted {
		t.Fatalf("upload: got %d", w.Code)
	}

	w = httptest.NewRecorder()
	app.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("stats: got %d", w.Code)
	}
	var stats jobs.Stats
	json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.Queued != 1 {
		t.Fatalf("expected 1 queued, got %+v", stats)
	}
}

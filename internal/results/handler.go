package results

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/jobs"
	"findoc-backend/internal/shared/server/respond"
)

// Handler exposes analysis results. Results are read through the job that
// produced them, plus a flat listing for history views.
type Handler struct {
	Repo  Repo
	Queue jobs.Queue
}

func NewHandler(repo Repo, queue jobs.Queue) *Handler {
	return &Handler{Repo: repo, Queue: queue}
}

// RegisterRoutes mounts result routes on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs/:id/result", h.getByJob)
	rg.GET("/results", h.list)
}

func (h *Handler) getByJob(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}
	c.Set("jobId", jobID)

	job, err := h.Queue.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		return
	}

	switch job.Status {
	case jobs.StatusSucceeded:
		// fall through to result lookup
	case jobs.StatusFailed:
		respond.Error(c, http.StatusNotFound, "not_ready", "job failed; no result available", map[string]string{
			"status":      job.Status,
			"errorDetail": job.ErrorDetail,
		})
		return
	default:
		respond.Error(c, http.StatusNotFound, "not_ready", "job has not completed yet", map[string]string{
			"status": job.Status,
		})
		return
	}

	result, err := h.Repo.GetByJobID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "result not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch result", nil)
		return
	}
	respond.OK(c, ToResultResponse(result))
}

func (h *Handler) list(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	if limit > 200 {
		limit = 200
	}

	all, err := h.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list results", nil)
		return
	}

	out := make([]ResultResponse, 0, len(all))
	for _, result := range all {
		out = append(out, ToResultResponse(result))
	}
	respond.OK(c, ListResponse{Results: out, Limit: limit, Offset: offset})
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

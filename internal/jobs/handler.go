package jobs

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/shared/metrics"
	"findoc-backend/internal/shared/server/respond"
	"findoc-backend/internal/shared/telemetry"
)

// Handler exposes job status, cancellation and queue statistics.
type Handler struct {
	Queue Queue
}

func NewHandler(queue Queue) *Handler {
	return &Handler{Queue: queue}
}

// RegisterRoutes mounts job routes on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/jobs/:id", h.getStatus)
	rg.POST("/jobs/:id/cancel", h.cancel)
	rg.GET("/queue/stats", h.stats)
}

func (h *Handler) getStatus(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}
	c.Set("jobId", jobID)

	job, err := h.Queue.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch job", nil)
		return
	}

	position := 0
	if job.Status == StatusQueued {
		position, err = h.Queue.Position(c.Request.Context(), jobID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compute queue position", nil)
			return
		}
	}

	respond.OK(c, ToStatusResponse(job, position))
}

func (h *Handler) cancel(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job id is required", nil)
		return
	}
	c.Set("jobId", jobID)

	job, err := h.Queue.Cancel(c.Request.Context(), jobID)
	switch {
	case err == nil:
		metrics.IncJobsCancelled()
		telemetry.Info("job.cancel_requested", map[string]any{
			"job_id": jobID,
			"status": job.Status,
		})
		respond.OK(c, ToStatusResponse(job, 0))
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "job not found", nil)
	case errors.Is(err, ErrNotCancellable):
		respond.Error(c, http.StatusConflict, "not_cancellable", "job already finished", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to cancel job", nil)
	}
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Queue.Stats(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch queue stats", nil)
		return
	}
	respond.OK(c, stats)
}

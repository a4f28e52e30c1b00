package documents

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"findoc-backend/internal/jobs"
	"findoc-backend/internal/results"
	"findoc-backend/internal/shared/server/respond"
)

// SyncRunner processes an enqueued job inline for the synchronous upload
// path. The returned job carries the terminal status.
type SyncRunner interface {
	RunSync(ctx context.Context, jobID string) (results.AnalysisResult, jobs.Job, error)
}

// Handler exposes document upload and management routes.
type Handler struct {
	Service        *Service
	Sync           SyncRunner
	MaxUploadBytes int64
}

func NewHandler(service *Service, sync SyncRunner, maxUploadBytes int64) *Handler {
	return &Handler{Service: service, Sync: sync, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts document routes on the given group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.POST("/documents/sync", h.uploadSync)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	in, file, ok := h.parseUpload(c)
	if !ok {
		return
	}
	defer file.Close()
	in.Body = file

	doc, job, err := h.Service.Upload(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}
	c.Set("documentId", doc.ID)
	c.Set("jobId", job.ID)

	respond.JSON(c, http.StatusAccepted, UploadResponse{
		DocumentID: doc.ID,
		JobID:      job.ID,
		Status:     job.Status,
	})
}

func (h *Handler) uploadSync(c *gin.Context) {
	if h.Sync == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "synchronous uploads are disabled", nil)
		return
	}

	in, file, ok := h.parseUpload(c)
	if !ok {
		return
	}
	defer file.Close()
	in.Body = file

	doc, job, err := h.Service.Upload(c.Request.Context(), in)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}
	c.Set("documentId", doc.ID)
	c.Set("jobId", job.ID)

	result, final, err := h.Sync.RunSync(c.Request.Context(), job.ID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis did not complete", nil)
		return
	}
	if final.Status != jobs.StatusSucceeded {
		if final.ErrorDetail == "timeout" {
			respond.Error(c, http.StatusGatewayTimeout, "timeout", "analysis timed out", nil)
			return
		}
		respond.Error(c, http.StatusUnprocessableEntity, "analysis_failed", "analysis failed", map[string]string{
			"errorDetail": final.ErrorDetail,
		})
		return
	}
	respond.OK(c, results.ToResultResponse(result))
}

// parseUpload validates the multipart request. Nothing is persisted before
// validation passes.
func (h *Handler) parseUpload(c *gin.Context) (UploadInput, multipart.File, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return UploadInput{}, nil, false
	}
	if fileHeader.Size == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is empty", nil)
		return UploadInput{}, nil, false
	}
	if h.MaxUploadBytes > 0 && fileHeader.Size > h.MaxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds maximum size", map[string]int64{
			"maxBytes": h.MaxUploadBytes,
		})
		return UploadInput{}, nil, false
	}
	if !isPDF(fileHeader) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only PDF files are accepted", nil)
		return UploadInput{}, nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return UploadInput{}, nil, false
	}

	return UploadInput{
		FileName: filepath.Base(fileHeader.Filename),
		Query:    strings.TrimSpace(c.PostForm("query")),
		Email:    strings.TrimSpace(c.PostForm("email")),
	}, file, true
}

func isPDF(fh *multipart.FileHeader) bool {
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
		return false
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		return true
	}
	clean := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	return clean == "application/pdf" || clean == "application/octet-stream"
}

func (h *Handler) get(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	doc, err := h.Service.Get(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		return
	}
	respond.OK(c, ToDocumentResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	if limit > 200 {
		limit = 200
	}

	docs, err := h.Service.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToDocumentResponse(doc))
	}
	respond.OK(c, ListResponse{Documents: out, Limit: limit, Offset: offset})
}

func (h *Handler) delete(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	if err := h.Service.Delete(c.Request.Context(), documentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		return
	}
	c.Status(http.StatusNoContent)
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

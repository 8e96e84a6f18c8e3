package analyses

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"notes-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches read and delete routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.DELETE("/analyses/:id", h.deleteAnalysis)
}

// RegisterWriteRoutes attaches the routes that dispatch model calls.
func (h *Handler) RegisterWriteRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.createAnalysis)
	rg.POST("/analyses/upload", h.uploadAnalysis)
	rg.POST("/analyses/:id/retry", h.retryAnalysis)
}

type createRequest struct {
	RawText string `json:"rawText"`
}

func (h *Handler) createAnalysis(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	analysis, err := h.Svc.CreateFromText(c.Request.Context(), req.RawText)
	if err != nil {
		h.writeCreateError(c, analysis, err)
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{"id": analysis.ID, "status": analysis.Status})
}

func (h *Handler) uploadAnalysis(c *gin.Context) {
	limit := h.Svc.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", []map[string]string{
			{"field": "file", "issue": "required"},
		})
		return
	}
	if fileHeader.Size > limit {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	analysis, err := h.Svc.CreateFromUpload(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeCreateError(c, analysis, err)
		return
	}
	c.Set("analysisId", analysis.ID)
	respond.JSON(c, http.StatusAccepted, gin.H{"id": analysis.ID, "status": analysis.Status})
}

func (h *Handler) writeCreateError(c *gin.Context, analysis Analysis, err error) {
	switch {
	case errors.Is(err, ErrEmptyInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", "rawText is required", []map[string]string{
			{"field": "rawText", "issue": "required"},
		})
	case errors.Is(err, ErrUnsupportedFile):
		respond.Error(c, http.StatusBadRequest, "unsupported_file_type", "only PDF, DOCX and plain text files are supported", nil)
	case errors.Is(err, ErrFileTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds upload limit", nil)
	case analysis.ID != 0:
		respond.Error(c, http.StatusServiceUnavailable, "enqueue_failed", "analysis saved but could not be queued", gin.H{"id": analysis.ID})
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create analysis", nil)
	}
}

func (h *Handler) getAnalysis(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	analysis, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeLookupError(c, err, "failed to fetch analysis")
		return
	}
	respond.OK(c, analysisResponse(analysis))
}

func (h *Handler) listAnalyses(c *gin.Context) {
	limit := defaultListLimit
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	analyses, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	items := make([]gin.H, 0, len(analyses))
	for _, a := range analyses {
		items = append(items, analysisResponse(a))
	}
	respond.OK(c, gin.H{"items": items, "limit": limit, "offset": offset})
}

func (h *Handler) retryAnalysis(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	analysis, err := h.Svc.Retry(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeLookupError(c, err, "")
			return
		}
		h.writeCreateError(c, analysis, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{"id": analysis.ID, "status": analysis.Status})
}

func (h *Handler) deleteAnalysis(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		writeLookupError(c, err, "failed to delete analysis")
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id must be a positive integer", nil)
		return 0, false
	}
	c.Set("analysisId", id)
	return id, true
}

func writeLookupError(c *gin.Context, err error, internalMsg string) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", internalMsg, nil)
}

// analysisResponse renders outputs only for completed records and the error
// only for failed ones.
func analysisResponse(a Analysis) gin.H {
	resp := gin.H{
		"id":        a.ID,
		"rawText":   a.RawText,
		"status":    a.Status,
		"createdAt": a.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if a.FileKey != "" {
		resp["fileKey"] = a.FileKey
		resp["fileName"] = a.FileName
	}
	switch a.Status {
	case StatusCompleted:
		resp["summary"] = a.Summary
		resp["keyPoints"] = nonNil(a.KeyPoints)
		resp["missingInfo"] = nonNil(a.MissingInfo)
		resp["nextActions"] = nonNil(a.NextActions)
	case StatusFailed:
		resp["error"] = a.Error
	}
	return resp
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoxtract/internal/middleware"
	"invoxtract/internal/service"
)

// JobHandler handles asynchronous extraction job endpoints.
type JobHandler struct {
	invoiceService service.InvoiceService
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(invoiceService service.InvoiceService) *JobHandler {
	return &JobHandler{invoiceService: invoiceService}
}

// Submit handles POST /api/v1/jobs
// @Summary Submit an extraction job
// @Description Archive the uploaded document and queue it for background extraction
// @Tags jobs
// @Accept multipart/form-data
// @Produce json
// @Param X-User-ID header string true "Caller user ID"
// @Param invoice formData file true "Invoice document (pdf, jpg, png)"
// @Success 202 {object} APIResponse{data=domain.ExtractionJob} "Job queued"
// @Failure 400 {object} APIResponse{error=APIError} "Missing user, missing file or unsupported file type"
// @Failure 413 {object} APIResponse{error=APIError} "File too large"
// @Failure 503 {object} APIResponse{error=APIError} "Object storage not configured"
// @Router /jobs [post]
func (h *JobHandler) Submit(c *gin.Context) {
	input, closeFile, ok := uploadInput(c)
	if !ok {
		return
	}
	defer closeFile()

	job, err := h.invoiceService.Submit(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, job)
}

// GetByID handles GET /api/v1/jobs/:id
// @Summary Get extraction job status
// @Tags jobs
// @Produce json
// @Param X-User-ID header string true "Caller user ID"
// @Param id path string true "Job ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.ExtractionJob} "Job"
// @Failure 400 {object} APIResponse{error=APIError} "Invalid ID"
// @Failure 404 {object} APIResponse{error=APIError} "Job not found"
// @Router /jobs/{id} [get]
func (h *JobHandler) GetByID(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return
	}

	job, err := h.invoiceService.GetJob(c.Request.Context(), userID, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, job)
}

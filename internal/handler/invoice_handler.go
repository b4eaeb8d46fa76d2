package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoxtract/internal/domain"
	"invoxtract/internal/export"
	"invoxtract/internal/middleware"
	"invoxtract/internal/service"
)

// UploadField is the multipart form field carrying the invoice document.
const UploadField = "invoice"

// InvoiceHandler handles invoice extraction and retrieval endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// uploadInput reads the multipart document into a service.UploadInput. The
// returned close func must be called once the service is done with the file.
func uploadInput(c *gin.Context) (service.UploadInput, func(), bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		HandleError(c, err)
		return service.UploadInput{}, nil, false
	}

	file, header, err := c.Request.FormFile(UploadField)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "invoice field is required")
		return service.UploadInput{}, nil, false
	}

	input := service.UploadInput{
		UserID:   userID,
		FileName: header.Filename,
		Size:     header.Size,
		File:     file,
	}
	return input, func() { _ = file.Close() }, true
}

// Process handles POST /api/v1/invoices/process
// @Summary Extract invoices from a document
// @Description Run layout analysis and LLM extraction on an uploaded PDF or image and persist every invoice found
// @Tags invoices
// @Accept multipart/form-data
// @Produce json
// @Param X-User-ID header string true "Caller user ID"
// @Param invoice formData file true "Invoice document (pdf, jpg, png)"
// @Success 200 {object} APIResponse{data=service.ProcessResult} "Invoices extracted"
// @Failure 400 {object} APIResponse{error=APIError} "Missing user, missing file or unsupported file type"
// @Failure 413 {object} APIResponse{error=APIError} "File too large"
// @Failure 422 {object} APIResponse{error=APIError} "Document unreadable or no invoices parsed"
// @Failure 500 {object} APIResponse{error=APIError} "Internal error"
// @Router /invoices/process [post]
func (h *InvoiceHandler) Process(c *gin.Context) {
	input, closeFile, ok := uploadInput(c)
	if !ok {
		return
	}
	defer closeFile()

	result, err := h.invoiceService.Process(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	if len(result.InvoiceNumbers) == 0 {
		HandleError(c, domain.ErrNoInvoicesParsed)
		return
	}

	RespondOK(c, result)
}

// List handles GET /api/v1/invoices
// @Summary List invoices
// @Description List the caller's extracted invoices, newest first
// @Tags invoices
// @Produce json
// @Param X-User-ID header string true "Caller user ID"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]domain.StoredInvoice,meta=PagMeta} "List of invoices"
// @Failure 400 {object} APIResponse{error=APIError} "Missing user"
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	offset, limit := parsePagination(c)
	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), userID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, invoices, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/invoices/:id
// @Summary Get invoice by ID
// @Tags invoices
// @Produce json
// @Param X-User-ID header string true "Caller user ID"
// @Param id path string true "Invoice ID (UUID)"
// @Success 200 {object} APIResponse{data=domain.StoredInvoice} "Invoice"
// @Failure 400 {object} APIResponse{error=APIError} "Invalid ID"
// @Failure 404 {object} APIResponse{error=APIError} "Invoice not found"
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), userID, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, inv)
}

// Export handles GET /api/v1/invoices/export?format=csv|xlsx
// @Summary Export invoices
// @Description Download the caller's invoices as one row per line item
// @Tags invoices
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param X-User-ID header string true "Caller user ID"
// @Param format query string false "Export format" Enums(csv, xlsx) default(csv)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} APIResponse{error=APIError} "Invalid export format"
// @Router /invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		HandleError(c, err)
		return
	}

	format := domain.ExportFormat(c.DefaultQuery("format", string(domain.ExportFormatCSV)))
	if !format.IsValid() {
		HandleError(c, domain.ErrInvalidExportFormat)
		return
	}

	var buf bytes.Buffer
	if err := h.invoiceService.Export(c.Request.Context(), userID, format, &buf); err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("invoices", format, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
	"github.com/tesseract-hub/agency-service/internal/services"
)

type InvoiceHandler struct {
	invoiceService services.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// warningOf unwraps the partial-failure case where the invoice mutation
// committed but the revenue recompute did not.
func warningOf(err error) (string, bool) {
	if partial, ok := services.IsPartialError(err); ok {
		return partial.Message, true
	}
	return "", false
}

// ListInvoices returns invoices with filtering and pagination
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Param projectId query string false "Filter by project"
// @Param status query string false "Filter by status"
// @Param issuedFrom query string false "Issued on or after (RFC 3339 date)"
// @Param issuedTo query string false "Issued on or before (RFC 3339 date)"
// @Success 200 {object} models.InvoiceListResponse
// @Router /api/v1/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filters repository.InvoiceFilters
	if pid := c.Query("projectId"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid projectId filter"})
			return
		}
		filters.ProjectID = &id
	}
	if s := c.Query("status"); s != "" {
		status := models.InvoiceStatus(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid status filter"})
			return
		}
		filters.Status = &status
	}
	if from := c.Query("issuedFrom"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid issuedFrom date, expected YYYY-MM-DD"})
			return
		}
		filters.IssuedFrom = &t
	}
	if to := c.Query("issuedTo"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid issuedTo date, expected YYYY-MM-DD"})
			return
		}
		filters.IssuedTo = &t
	}
	filters.SortOrder = c.Query("sortOrder")
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	invoices, total, err := h.invoiceService.List(filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InvoiceListResponse{
		Success:    true,
		Data:       invoices,
		Pagination: models.NewPagination(filters.Page, filters.Limit, total),
	})
}

// GetInvoice returns a single invoice
// @Summary Get an invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} models.InvoiceResponse
// @Failure 404 {object} models.InvoiceResponse
// @Router /api/v1/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InvoiceResponse{Success: true, Data: invoice})
}

// CreateInvoice creates an invoice and rederives the project's revenue
// @Summary Create an invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param invoice body models.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} models.InvoiceResponse
// @Failure 400 {object} models.InvoiceResponse
// @Router /api/v1/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	invoice, err := h.invoiceService.Create(c.Request.Context(), &req)
	if err != nil {
		if warning, ok := warningOf(err); ok {
			c.JSON(http.StatusCreated, models.InvoiceResponse{Success: true, Data: invoice, Warning: warning})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.InvoiceResponse{Success: true, Data: invoice})
}

// UpdateInvoice edits an invoice; amount changes rederive revenue
// @Summary Update an invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param invoice body models.UpdateInvoiceRequest true "Fields to update"
// @Success 200 {object} models.InvoiceResponse
// @Router /api/v1/invoices/{id} [put]
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	invoice, err := h.invoiceService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if warning, ok := warningOf(err); ok {
			c.JSON(http.StatusOK, models.InvoiceResponse{Success: true, Data: invoice, Warning: warning})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InvoiceResponse{Success: true, Data: invoice})
}

// DeleteInvoice removes an invoice and rederives the project's revenue
// @Summary Delete an invoice
// @Tags invoices
// @Param id path string true "Invoice ID"
// @Success 200 {object} models.InvoiceResponse
// @Router /api/v1/invoices/{id} [delete]
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		if warning, ok := warningOf(err); ok {
			c.JSON(http.StatusOK, models.InvoiceResponse{Success: true, Message: "invoice deleted", Warning: warning})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InvoiceResponse{Success: true, Message: "invoice deleted"})
}

// BulkDeleteInvoices removes a batch of invoices and rederives revenue
// for every project they touched
// @Summary Bulk delete invoices
// @Tags invoices
// @Accept json
// @Produce json
// @Param request body models.BulkDeleteInvoicesRequest true "Invoice IDs"
// @Success 200 {object} models.InvoiceResponse
// @Router /api/v1/invoices/bulk-delete [post]
func (h *InvoiceHandler) BulkDeleteInvoices(c *gin.Context) {
	var req models.BulkDeleteInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "ids must not be empty"})
		return
	}
	deleted, err := h.invoiceService.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		if warning, ok := warningOf(err); ok {
			c.JSON(http.StatusOK, models.InvoiceResponse{
				Success: true,
				Message: "deleted " + strconv.FormatInt(deleted, 10) + " invoices",
				Warning: warning,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.InvoiceResponse{
		Success: true,
		Message: "deleted " + strconv.FormatInt(deleted, 10) + " invoices",
	})
}

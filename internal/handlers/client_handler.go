package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
	"github.com/tesseract-hub/agency-service/internal/services"
)

type ClientHandler struct {
	clientService     services.ClientService
	assignmentService services.AssignmentService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService services.ClientService, assignmentService services.AssignmentService) *ClientHandler {
	return &ClientHandler{
		clientService:     clientService,
		assignmentService: assignmentService,
	}
}

// ListClients returns client companies with search and pagination
// @Summary List clients
// @Tags clients
// @Produce json
// @Param search query string false "Search by company name"
// @Success 200 {object} models.ClientListResponse
// @Router /api/v1/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	filters := repository.ClientFilters{
		Search:    c.Query("search"),
		SortOrder: c.Query("sortOrder"),
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	clients, total, err := h.clientService.List(filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ClientListResponse{
		Success:    true,
		Data:       clients,
		Pagination: models.NewPagination(filters.Page, filters.Limit, total),
	})
}

// GetClient returns a client with its contacts
// @Summary Get a client
// @Tags clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} models.ClientResponse
// @Failure 404 {object} models.ClientResponse
// @Router /api/v1/clients/{id} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ClientResponse{Success: true, Data: client})
}

// CreateClient creates a client company
// @Summary Create a client
// @Tags clients
// @Accept json
// @Produce json
// @Param client body models.CreateClientRequest true "Client data"
// @Success 201 {object} models.ClientResponse
// @Failure 400 {object} models.ClientResponse
// @Router /api/v1/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	client, err := h.clientService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ClientResponse{Success: true, Data: client})
}

// UpdateClient edits client fields and refreshes cached names on
// projects where this client is primary
// @Summary Update a client
// @Tags clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param client body models.UpdateClientRequest true "Fields to update"
// @Success 200 {object} models.ClientResponse
// @Router /api/v1/clients/{id} [put]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	client, err := h.clientService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ClientResponse{Success: true, Data: client})
}

// DeleteClient removes a client, its assignments and contacts. Projects
// survive with their primary pointer repaired.
// @Summary Delete a client
// @Tags clients
// @Param id path string true "Client ID"
// @Success 200 {object} models.ClientResponse
// @Router /api/v1/clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.assignmentService.DeleteClient(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ClientResponse{Success: true, Message: "client deleted"})
}

// ListClientProjects returns every project a client is assigned to
// @Summary List a client's projects
// @Tags clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} models.ProjectListResponse
// @Router /api/v1/clients/{id}/projects [get]
func (h *ClientHandler) ListClientProjects(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	projects, err := h.assignmentService.ListProjectsForClient(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{Success: true, Data: projects})
}

// ==========================================
// CONTACT HANDLERS
// ==========================================

// ListContacts returns a client's contacts, primary first
// @Summary List a client's contacts
// @Tags contacts
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} models.ContactListResponse
// @Router /api/v1/clients/{id}/contacts [get]
func (h *ClientHandler) ListContacts(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	contacts, err := h.clientService.ListContacts(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ContactListResponse{Success: true, Data: contacts})
}

// CreateContact adds a contact person to a client
// @Summary Create a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param contact body models.CreateContactRequest true "Contact data"
// @Success 201 {object} models.ContactResponse
// @Router /api/v1/clients/{id}/contacts [post]
func (h *ClientHandler) CreateContact(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req models.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	contact, err := h.clientService.CreateContact(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ContactResponse{Success: true, Data: contact})
}

// UpdateContact edits a contact
// @Summary Update a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param contactId path string true "Contact ID"
// @Param contact body models.UpdateContactRequest true "Fields to update"
// @Success 200 {object} models.ContactResponse
// @Router /api/v1/clients/{id}/contacts/{contactId} [put]
func (h *ClientHandler) UpdateContact(c *gin.Context) {
	contactID, ok := parseUUIDParam(c, "contactId")
	if !ok {
		return
	}
	var req models.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	contact, err := h.clientService.UpdateContact(c.Request.Context(), contactID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ContactResponse{Success: true, Data: contact})
}

// DeleteContact removes a contact
// @Summary Delete a contact
// @Tags contacts
// @Param id path string true "Client ID"
// @Param contactId path string true "Contact ID"
// @Success 200 {object} models.ContactResponse
// @Router /api/v1/clients/{id}/contacts/{contactId} [delete]
func (h *ClientHandler) DeleteContact(c *gin.Context) {
	contactID, ok := parseUUIDParam(c, "contactId")
	if !ok {
		return
	}
	if err := h.clientService.DeleteContact(c.Request.Context(), contactID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ContactResponse{Success: true, Message: "contact deleted"})
}

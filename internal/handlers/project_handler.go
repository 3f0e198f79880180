package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tesseract-hub/agency-service/internal/health"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
	"github.com/tesseract-hub/agency-service/internal/services"
)

type ProjectHandler struct {
	projectService    services.ProjectService
	assignmentService services.AssignmentService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService services.ProjectService, assignmentService services.AssignmentService) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		assignmentService: assignmentService,
	}
}

// ListProjects returns projects with filtering, sorting and pagination
// @Summary List projects
// @Tags projects
// @Produce json
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param clientId query string false "Filter by primary client"
// @Param search query string false "Search by name"
// @Param sortBy query string false "Sort column"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} models.ProjectListResponse
// @Router /api/v1/projects [get]
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	filters := repository.ProjectFilters{
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	if s := c.Query("status"); s != "" {
		status := models.ProjectStatus(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid status filter"})
			return
		}
		filters.Status = &status
	}
	if p := c.Query("priority"); p != "" {
		priority := models.ProjectPriority(p)
		if !priority.Valid() {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid priority filter"})
			return
		}
		filters.Priority = &priority
	}
	if cid := c.Query("clientId"); cid != "" {
		id, err := uuid.Parse(cid)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "invalid clientId filter"})
			return
		}
		filters.ClientID = &id
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	projects, total, err := h.projectService.List(filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectListResponse{
		Success:    true,
		Data:       projects,
		Pagination: models.NewPagination(filters.Page, filters.Limit, total),
	})
}

// GetProject returns a single project
// @Summary Get a project
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} models.ProjectResponse
// @Failure 404 {object} models.ProjectResponse
// @Router /api/v1/projects/{id} [get]
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	project, err := h.projectService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectResponse{Success: true, Data: project})
}

// CreateProject creates a project, optionally with an initial client and
// seed revenue
// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Param project body models.CreateProjectRequest true "Project data"
// @Success 201 {object} models.ProjectResponse
// @Failure 400 {object} models.ProjectResponse
// @Router /api/v1/projects [post]
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	project, err := h.projectService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ProjectResponse{Success: true, Data: project})
}

// UpdateProject edits project fields
// @Summary Update a project
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param project body models.UpdateProjectRequest true "Fields to update"
// @Success 200 {object} models.ProjectResponse
// @Router /api/v1/projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectResponse{Success: true, Data: project})
}

// DeleteProject deletes a project with its assignments and invoices
// @Summary Delete a project
// @Tags projects
// @Param id path string true "Project ID"
// @Success 200 {object} models.ProjectResponse
// @Router /api/v1/projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.projectService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProjectResponse{Success: true, Message: "project deleted"})
}

// ==========================================
// ASSIGNMENT HANDLERS
// ==========================================

// ListAssignedClients returns the clients assigned to a project
// @Summary List a project's assigned clients
// @Tags assignments
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} models.AssignedClientsResponse
// @Router /api/v1/projects/{id}/clients [get]
func (h *ProjectHandler) ListAssignedClients(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	clients, err := h.assignmentService.ListAssignedClients(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AssignedClientsResponse{Success: true, Data: clients})
}

// ListAvailableClients returns clients not yet assigned to a project
// @Summary List clients available for assignment
// @Tags assignments
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} models.AssignedClientsResponse
// @Router /api/v1/projects/{id}/available-clients [get]
func (h *ProjectHandler) ListAvailableClients(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	clients, err := h.assignmentService.ListAvailableClients(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AssignedClientsResponse{Success: true, Data: clients})
}

// AssignClient attaches a client to a project
// @Summary Assign a client to a project
// @Tags assignments
// @Produce json
// @Param id path string true "Project ID"
// @Param clientId path string true "Client ID"
// @Success 201 {object} models.ProjectResponse
// @Failure 409 {object} models.ProjectResponse
// @Router /api/v1/projects/{id}/clients/{clientId} [post]
func (h *ProjectHandler) AssignClient(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	clientID, ok := parseUUIDParam(c, "clientId")
	if !ok {
		return
	}
	project, err := h.assignmentService.Assign(c.Request.Context(), clientID, projectID)
	if err != nil {
		health.RecordAssignmentOperation("assign", false)
		respondError(c, err)
		return
	}
	health.RecordAssignmentOperation("assign", true)
	c.JSON(http.StatusCreated, models.ProjectResponse{Success: true, Data: project})
}

// UnassignClient detaches a client from a project, promoting a
// replacement primary when needed
// @Summary Unassign a client from a project
// @Tags assignments
// @Produce json
// @Param id path string true "Project ID"
// @Param clientId path string true "Client ID"
// @Success 200 {object} models.ProjectResponse
// @Router /api/v1/projects/{id}/clients/{clientId} [delete]
func (h *ProjectHandler) UnassignClient(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	clientID, ok := parseUUIDParam(c, "clientId")
	if !ok {
		return
	}
	project, err := h.assignmentService.Unassign(c.Request.Context(), clientID, projectID)
	if err != nil {
		health.RecordAssignmentOperation("unassign", false)
		respondError(c, err)
		return
	}
	health.RecordAssignmentOperation("unassign", true)
	c.JSON(http.StatusOK, models.ProjectResponse{Success: true, Data: project})
}

// SetPrimaryClient overrides a project's primary client
// @Summary Set a project's primary client
// @Tags assignments
// @Produce json
// @Param id path string true "Project ID"
// @Param clientId path string true "Client ID"
// @Success 200 {object} models.ProjectResponse
// @Failure 409 {object} models.ProjectResponse
// @Router /api/v1/projects/{id}/primary-client/{clientId} [put]
func (h *ProjectHandler) SetPrimaryClient(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	clientID, ok := parseUUIDParam(c, "clientId")
	if !ok {
		return
	}
	project, err := h.assignmentService.SetPrimary(c.Request.Context(), clientID, projectID)
	if err != nil {
		health.RecordAssignmentOperation("set_primary", false)
		respondError(c, err)
		return
	}
	health.RecordAssignmentOperation("set_primary", true)
	c.JSON(http.StatusOK, models.ProjectResponse{Success: true, Data: project})
}

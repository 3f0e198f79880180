package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tesseract-hub/agency-service/internal/health"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/services"
)

type PortalHandler struct {
	portalService services.PortalService
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(portalService services.PortalService) *PortalHandler {
	return &PortalHandler{portalService: portalService}
}

// VerifyAccess checks a portal password and issues a scoped token
// @Summary Verify portal access
// @Tags portal
// @Accept json
// @Produce json
// @Param slug path string true "Portal slug"
// @Param request body models.PortalVerifyRequest true "Portal password"
// @Success 200 {object} models.PortalVerifyResponse
// @Failure 401 {object} models.PortalVerifyResponse
// @Router /api/v1/portal/{slug}/verify [post]
func (h *PortalHandler) VerifyAccess(c *gin.Context) {
	slug := c.Param("slug")

	var req models.PortalVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Success: false, Message: "Invalid request body: " + err.Error()})
		return
	}

	token, err := h.portalService.Verify(c.Request.Context(), slug, req.Password)
	if err != nil {
		health.RecordPortalAccess(false)
		if errors.Is(err, services.ErrPortalAccessDenied) {
			c.JSON(http.StatusUnauthorized, models.PortalVerifyResponse{Success: false, Message: "access denied"})
			return
		}
		respondError(c, err)
		return
	}
	health.RecordPortalAccess(true)
	c.JSON(http.StatusOK, models.PortalVerifyResponse{Success: true, Token: token})
}

// GetProject returns the client-facing project view for a valid token
// @Summary Get the portal project view
// @Tags portal
// @Produce json
// @Param slug path string true "Portal slug"
// @Param X-Portal-Token header string true "Portal token"
// @Success 200 {object} models.PortalProjectResponse
// @Failure 401 {object} models.PortalProjectResponse
// @Router /api/v1/portal/{slug} [get]
func (h *PortalHandler) GetProject(c *gin.Context) {
	slug := c.Param("slug")
	token := c.GetString("portal_token")

	view, err := h.portalService.GetProject(c.Request.Context(), slug, token)
	if err != nil {
		if errors.Is(err, services.ErrPortalAccessDenied) {
			health.RecordPortalAccess(false)
			c.JSON(http.StatusUnauthorized, models.PortalProjectResponse{Success: false, Message: "access denied"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PortalProjectResponse{Success: true, Data: view})
}

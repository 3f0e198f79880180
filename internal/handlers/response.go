package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tesseract-hub/agency-service/internal/services"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// respondError maps service-layer errors onto HTTP statuses: validation
// failures and conflicts are user-correctable, ErrNotFound is a 404,
// anything else is a store failure.
func respondError(c *gin.Context, err error) {
	if validationErr, ok := services.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, errorResponse{
			Success: false,
			Message: validationErr.Message,
			Field:   validationErr.Field,
		})
		return
	}
	if conflictErr, ok := services.IsConflictError(err); ok {
		c.JSON(http.StatusConflict, errorResponse{
			Success: false,
			Message: conflictErr.Message,
		})
		return
	}
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}
	if errors.Is(err, services.ErrPortalAccessDenied) {
		c.JSON(http.StatusUnauthorized, errorResponse{
			Success: false,
			Message: "access denied",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, errorResponse{
		Success: false,
		Message: err.Error(),
	})
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Success: false,
			Message: "invalid " + name + ": must be a UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/services"
	"github.com/tesseract-hub/agency-service/internal/workers"
)

type DashboardHandler struct {
	dashboardService services.DashboardService
	reconciler       *workers.Reconciler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService services.DashboardService, reconciler *workers.Reconciler) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		reconciler:       reconciler,
	}
}

// GetSummary returns the dashboard roll-up
// @Summary Dashboard summary
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.DashboardSummaryResponse
// @Router /api/v1/dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	summary, err := h.dashboardService.Summary()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DashboardSummaryResponse{Success: true, Data: summary})
}

// GetReconcilerStatus reports the consistency sweeper's last run
// @Summary Reconciler status
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/dashboard/reconciler [get]
func (h *DashboardHandler) GetReconcilerStatus(c *gin.Context) {
	status := gin.H{
		"success":   true,
		"running":   h.reconciler.IsRunning(),
		"lastStats": h.reconciler.LastStats(),
	}
	if last := h.reconciler.LastSweep(); !last.IsZero() {
		status["lastSweep"] = last.Format(time.RFC3339)
	}
	if err := h.reconciler.LastError(); err != nil {
		status["lastError"] = err.Error()
	}
	c.JSON(http.StatusOK, status)
}

// TriggerSweep runs a consistency sweep immediately
// @Summary Trigger a consistency sweep
// @Tags dashboard
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/dashboard/reconciler/sweep [post]
func (h *DashboardHandler) TriggerSweep(c *gin.Context) {
	stats, err := h.reconciler.ForceSweep()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "sweep failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   stats,
	})
}

package services

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

type DashboardService interface {
	Summary() (*models.DashboardSummary, error)
}

type dashboardService struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(db *gorm.DB, logger *logrus.Logger) DashboardService {
	return &dashboardService{
		db:     db,
		logger: logger.WithField("component", "services.dashboard"),
	}
}

// Summary is the dashboard roll-up: revenue totals from the denormalized
// project field, outstanding amounts from pending and overdue invoices,
// and entity counts by status.
func (s *dashboardService) Summary() (*models.DashboardSummary, error) {
	projectRepo := repository.NewProjectRepository(s.db)
	clientRepo := repository.NewClientRepository(s.db)
	invoiceRepo := repository.NewInvoiceRepository(s.db)

	totalRevenue, err := projectRepo.SumRevenue()
	if err != nil {
		return nil, err
	}
	outstanding, err := invoiceRepo.SumByStatuses([]models.InvoiceStatus{
		models.InvoiceStatusPending,
		models.InvoiceStatusOverdue,
	})
	if err != nil {
		return nil, err
	}
	projectCount, err := projectRepo.Count()
	if err != nil {
		return nil, err
	}
	projectsByStatus, err := projectRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	clientCount, err := clientRepo.Count()
	if err != nil {
		return nil, err
	}
	invoiceCount, err := invoiceRepo.Count()
	if err != nil {
		return nil, err
	}
	invoicesByStatus, err := invoiceRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	completion := 0.0
	if projectCount > 0 {
		completion = float64(projectsByStatus[models.ProjectStatusCompleted]) / float64(projectCount) * 100
	}

	return &models.DashboardSummary{
		TotalRevenue:         totalRevenue,
		OutstandingAmount:    outstanding,
		ProjectCount:         projectCount,
		ProjectsByStatus:     projectsByStatus,
		CompletionPercentage: completion,
		ClientCount:          clientCount,
		InvoiceCount:         invoiceCount,
		InvoicesByStatus:     invoicesByStatus,
	}, nil
}

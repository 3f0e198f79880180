package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/health"
	"github.com/tesseract-hub/agency-service/internal/money"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

// RevenueService keeps each project's stored revenue equal to the
// status-independent sum of its invoice amounts.
type RevenueService interface {
	// Recompute rederives the project's revenue from its invoices and
	// writes it back. An empty invoice set yields zero. Idempotent.
	Recompute(ctx context.Context, projectID uuid.UUID) (money.Cents, error)
}

type revenueService struct {
	db     *gorm.DB
	logger *logrus.Entry
}

// NewRevenueService creates a new revenue service
func NewRevenueService(db *gorm.DB, logger *logrus.Logger) RevenueService {
	return &revenueService{
		db:     db,
		logger: logger.WithField("component", "services.revenue"),
	}
}

func (s *revenueService) Recompute(ctx context.Context, projectID uuid.UUID) (money.Cents, error) {
	db := s.db.WithContext(ctx)
	invoiceRepo := repository.NewInvoiceRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	total, err := invoiceRepo.SumByProject(projectID)
	if err != nil {
		health.RecordRevenueRecompute(false)
		return 0, fmt.Errorf("failed to sum invoices: %w", err)
	}

	if err := projectRepo.SetRevenue(projectID, total); err != nil {
		health.RecordRevenueRecompute(false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("project: %w", ErrNotFound)
		}
		return 0, fmt.Errorf("failed to write revenue: %w", err)
	}
	health.RecordRevenueRecompute(true)

	events.GetPublisher().BillingChanged(ctx, projectID.String())

	s.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"revenue":    total.String(),
	}).Debug("Project revenue recomputed")

	return total, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

// InvoiceService is the revenue recompute trigger surface: create, delete
// and amount edits rederive the owning project's revenue. A recompute
// failure never rolls the invoice mutation back; it surfaces as a
// PartialError so callers can warn instead of fail.
type InvoiceService interface {
	Create(ctx context.Context, req *models.CreateInvoiceRequest) (*models.Invoice, error)
	Get(id uuid.UUID) (*models.Invoice, error)
	List(filters repository.InvoiceFilters) ([]models.Invoice, int64, error)
	ListByProject(projectID uuid.UUID) ([]models.Invoice, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateInvoiceRequest) (*models.Invoice, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type invoiceService struct {
	db          *gorm.DB
	revenue     RevenueService
	portalCache *cache.PortalCache
	logger      *logrus.Entry
}

// NewInvoiceService creates a new invoice service. A nil portal cache
// disables portal view invalidation.
func NewInvoiceService(db *gorm.DB, revenue RevenueService, portalCache *cache.PortalCache, logger *logrus.Logger) InvoiceService {
	return &invoiceService{
		db:          db,
		revenue:     revenue,
		portalCache: portalCache,
		logger:      logger.WithField("component", "services.invoice"),
	}
}

func (s *invoiceService) Create(ctx context.Context, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	if req.Amount < 0 {
		return nil, NewValidationError("amount", "must not be negative")
	}
	status := models.InvoiceStatusPending
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, NewValidationError("status", "must be one of pending, paid, overdue, cancelled")
		}
		status = *req.Status
	}
	issueDate := time.Now().UTC()
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}

	db := s.db.WithContext(ctx)
	if _, err := repository.NewProjectRepository(db).GetByID(req.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", ErrNotFound)
		}
		return nil, err
	}

	invoice := &models.Invoice{
		ProjectID:   req.ProjectID,
		AmountCents: req.Amount,
		Status:      status,
		IssueDate:   issueDate,
		DueDate:     req.DueDate,
		Description: req.Description,
	}
	if err := repository.NewInvoiceRepository(db).Create(invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	// Deferred so the cached portal view is dropped after the recompute
	// below has settled the stored revenue.
	defer invalidatePortalView(ctx, db, s.portalCache, req.ProjectID)

	events.GetPublisher().BillingChanged(ctx, req.ProjectID.String())

	if _, err := s.revenue.Recompute(ctx, req.ProjectID); err != nil {
		s.logger.WithError(err).WithField("project_id", req.ProjectID).
			Warn("Invoice created but revenue recompute failed")
		return invoice, &PartialError{Message: "invoice created but revenue not updated", Err: err}
	}
	return invoice, nil
}

func (s *invoiceService) Get(id uuid.UUID) (*models.Invoice, error) {
	invoice, err := repository.NewInvoiceRepository(s.db).GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invoice: %w", ErrNotFound)
		}
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) List(filters repository.InvoiceFilters) ([]models.Invoice, int64, error) {
	return repository.NewInvoiceRepository(s.db).List(filters)
}

func (s *invoiceService) ListByProject(projectID uuid.UUID) ([]models.Invoice, error) {
	return repository.NewInvoiceRepository(s.db).ListByProject(projectID)
}

func (s *invoiceService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateInvoiceRequest) (*models.Invoice, error) {
	db := s.db.WithContext(ctx)
	invoiceRepo := repository.NewInvoiceRepository(db)

	invoice, err := invoiceRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invoice: %w", ErrNotFound)
		}
		return nil, err
	}

	amountChanged := false
	if req.Amount != nil {
		if *req.Amount < 0 {
			return nil, NewValidationError("amount", "must not be negative")
		}
		amountChanged = *req.Amount != invoice.AmountCents
		invoice.AmountCents = *req.Amount
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, NewValidationError("status", "must be one of pending, paid, overdue, cancelled")
		}
		invoice.Status = *req.Status
	}
	if req.IssueDate != nil {
		invoice.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		invoice.DueDate = req.DueDate
	}
	if req.Description != nil {
		invoice.Description = *req.Description
	}

	if err := invoiceRepo.Update(invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}
	defer invalidatePortalView(ctx, db, s.portalCache, invoice.ProjectID)

	events.GetPublisher().BillingChanged(ctx, invoice.ProjectID.String())

	// Status-only edits leave the sum unchanged, so only amount edits
	// trigger the recompute.
	if amountChanged {
		if _, err := s.revenue.Recompute(ctx, invoice.ProjectID); err != nil {
			s.logger.WithError(err).WithField("project_id", invoice.ProjectID).
				Warn("Invoice updated but revenue recompute failed")
			return invoice, &PartialError{Message: "invoice updated but revenue not updated", Err: err}
		}
	}
	return invoice, nil
}

func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	invoiceRepo := repository.NewInvoiceRepository(db)

	invoice, err := invoiceRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("invoice: %w", ErrNotFound)
		}
		return err
	}
	if err := invoiceRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	defer invalidatePortalView(ctx, db, s.portalCache, invoice.ProjectID)

	events.GetPublisher().BillingChanged(ctx, invoice.ProjectID.String())

	if _, err := s.revenue.Recompute(ctx, invoice.ProjectID); err != nil {
		s.logger.WithError(err).WithField("project_id", invoice.ProjectID).
			Warn("Invoice deleted but revenue recompute failed")
		return &PartialError{Message: "invoice deleted but revenue not updated", Err: err}
	}
	return nil
}

// BulkDelete removes the given invoices and recomputes each affected
// project once.
func (s *invoiceService) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, NewValidationError("ids", "must not be empty")
	}

	db := s.db.WithContext(ctx)
	invoiceRepo := repository.NewInvoiceRepository(db)

	invoices, err := invoiceRepo.GetMany(ids)
	if err != nil {
		return 0, fmt.Errorf("failed to load invoices: %w", err)
	}
	if len(invoices) == 0 {
		return 0, fmt.Errorf("invoices: %w", ErrNotFound)
	}

	affected, err := invoiceRepo.DeleteMany(ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete invoices: %w", err)
	}

	projectIDs := make([]uuid.UUID, 0, len(invoices))
	for _, invoice := range invoices {
		projectIDs = append(projectIDs, invoice.ProjectID)
	}

	pub := events.GetPublisher()
	var recomputeErr error
	for _, projectID := range dedupe(projectIDs) {
		pub.BillingChanged(ctx, projectID.String())
		if _, err := s.revenue.Recompute(ctx, projectID); err != nil {
			s.logger.WithError(err).WithField("project_id", projectID).
				Warn("Invoices deleted but revenue recompute failed")
			recomputeErr = err
		}
		invalidatePortalView(ctx, db, s.portalCache, projectID)
	}
	if recomputeErr != nil {
		return affected, &PartialError{Message: "invoices deleted but revenue not updated", Err: recomputeErr}
	}
	return affected, nil
}

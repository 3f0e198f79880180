package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/money"
)

type InvoiceRepository interface {
	Create(invoice *models.Invoice) error
	GetByID(id uuid.UUID) (*models.Invoice, error)
	List(filters InvoiceFilters) ([]models.Invoice, int64, error)
	ListByProject(projectID uuid.UUID) ([]models.Invoice, error)
	Update(invoice *models.Invoice) error
	Delete(id uuid.UUID) error
	DeleteByProject(projectID uuid.UUID) error
	// GetMany loads the given invoices; used by bulk delete to learn
	// which projects need a recompute afterwards.
	GetMany(ids []uuid.UUID) ([]models.Invoice, error)
	DeleteMany(ids []uuid.UUID) (int64, error)

	// SumByProject is the revenue source of truth: the status-independent
	// sum of a project's invoice amounts. Empty set sums to zero.
	SumByProject(projectID uuid.UUID) (money.Cents, error)
	SumByStatuses(statuses []models.InvoiceStatus) (money.Cents, error)
	Count() (int64, error)
	CountByStatus() (map[models.InvoiceStatus]int64, error)
	MarkOverdue(asOf time.Time) (int64, error)
}

type InvoiceFilters struct {
	ProjectID  *uuid.UUID
	Status     *models.InvoiceStatus
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	Page       int
	Limit      int
	SortOrder  string
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Create(invoice).Error
}

func (r *invoiceRepository) GetByID(id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(filters InvoiceFilters) ([]models.Invoice, int64, error) {
	var invoices []models.Invoice
	var total int64

	query := r.db.Model(&models.Invoice{})
	if filters.ProjectID != nil {
		query = query.Where("project_id = ?", *filters.ProjectID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filters.IssuedFrom)
	}
	if filters.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filters.IssuedTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = 20
	}
	offset := (filters.Page - 1) * filters.Limit

	order := "issue_date DESC"
	if filters.SortOrder == "asc" || filters.SortOrder == "ASC" {
		order = "issue_date ASC"
	}

	err := query.Order(order).Offset(offset).Limit(filters.Limit).Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepository) ListByProject(projectID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("project_id = ?", projectID).
		Order("issue_date DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) Update(invoice *models.Invoice) error {
	return r.db.Save(invoice).Error
}

func (r *invoiceRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Invoice{}, "id = ?", id).Error
}

func (r *invoiceRepository) DeleteByProject(projectID uuid.UUID) error {
	return r.db.Delete(&models.Invoice{}, "project_id = ?", projectID).Error
}

func (r *invoiceRepository) GetMany(ids []uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.Where("id IN ?", ids).Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) DeleteMany(ids []uuid.UUID) (int64, error) {
	result := r.db.Delete(&models.Invoice{}, "id IN ?", ids)
	return result.RowsAffected, result.Error
}

func (r *invoiceRepository) SumByProject(projectID uuid.UUID) (money.Cents, error) {
	var total int64
	err := r.db.Model(&models.Invoice{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	return money.Cents(total), err
}

func (r *invoiceRepository) SumByStatuses(statuses []models.InvoiceStatus) (money.Cents, error) {
	var total int64
	err := r.db.Model(&models.Invoice{}).
		Where("status IN ?", statuses).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	return money.Cents(total), err
}

func (r *invoiceRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).Count(&count).Error
	return count, err
}

func (r *invoiceRepository) CountByStatus() (map[models.InvoiceStatus]int64, error) {
	var rows []struct {
		Status models.InvoiceStatus
		Count  int64
	}
	err := r.db.Model(&models.Invoice{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.InvoiceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *invoiceRepository) MarkOverdue(asOf time.Time) (int64, error) {
	result := r.db.Model(&models.Invoice{}).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.InvoiceStatusPending, asOf).
		Update("status", models.InvoiceStatusOverdue)
	return result.RowsAffected, result.Error
}

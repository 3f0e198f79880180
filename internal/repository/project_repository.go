package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/money"
)

type ProjectRepository interface {
	Create(project *models.Project) error
	GetByID(id uuid.UUID) (*models.Project, error)
	GetByPortalSlug(slug string) (*models.Project, error)
	List(filters ProjectFilters) ([]models.Project, int64, error)
	Update(project *models.Project) error
	UpdateFields(id uuid.UUID, updates map[string]interface{}) error
	SetPrimaryClient(id uuid.UUID, clientID *uuid.UUID, clientName string) error
	SetRevenue(id uuid.UUID, revenue money.Cents) error
	Delete(id uuid.UUID) error
	SlugExists(slug string) (bool, error)

	// Aggregates for the dashboard roll-up.
	Count() (int64, error)
	CountByStatus() (map[models.ProjectStatus]int64, error)
	SumRevenue() (money.Cents, error)

	// ListIDs returns every project id; used by the reconciler sweep.
	ListIDs() ([]uuid.UUID, error)
	ListByPrimaryClient(clientID uuid.UUID) ([]models.Project, error)
}

type ProjectFilters struct {
	Status    *models.ProjectStatus
	Priority  *models.ProjectPriority
	ClientID  *uuid.UUID
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

func (r *projectRepository) GetByID(id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) GetByPortalSlug(slug string) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, "portal_slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// sortColumns whitelists user-supplied sort keys to avoid SQL injection
// through the order clause.
var sortColumns = map[string]string{
	"name":      "name",
	"status":    "status",
	"priority":  "priority",
	"startDate": "start_date",
	"dueDate":   "due_date",
	"revenue":   "revenue_cents",
	"createdAt": "created_at",
}

func (r *projectRepository) List(filters ProjectFilters) ([]models.Project, int64, error) {
	var projects []models.Project
	var total int64

	query := r.db.Model(&models.Project{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Priority != nil {
		query = query.Where("priority = ?", *filters.Priority)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.Search != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+filters.Search+"%")
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

	sortBy := "created_at"
	if col, ok := sortColumns[filters.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" || filters.SortOrder == "ASC" {
		sortOrder = "ASC"
	}
	orderClause := fmt.Sprintf("%s %s", sortBy, sortOrder)

	err := query.Order(orderClause).Offset(offset).Limit(filters.Limit).Find(&projects).Error
	return projects, total, err
}

func (r *projectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

func (r *projectRepository) UpdateFields(id uuid.UUID, updates map[string]interface{}) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error
}

func (r *projectRepository) SetPrimaryClient(id uuid.UUID, clientID *uuid.UUID, clientName string) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).Updates(map[string]interface{}{
		"client_id":   clientID,
		"client_name": clientName,
	}).Error
}

func (r *projectRepository) SetRevenue(id uuid.UUID, revenue money.Cents) error {
	return r.db.Model(&models.Project{}).Where("id = ?", id).
		Update("revenue_cents", int64(revenue)).Error
}

func (r *projectRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Project{}, "id = ?", id).Error
}

func (r *projectRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Project{}).Where("portal_slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *projectRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Project{}).Count(&count).Error
	return count, err
}

func (r *projectRepository) CountByStatus() (map[models.ProjectStatus]int64, error) {
	var rows []struct {
		Status models.ProjectStatus
		Count  int64
	}
	err := r.db.Model(&models.Project{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[models.ProjectStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *projectRepository) SumRevenue() (money.Cents, error) {
	var total int64
	err := r.db.Model(&models.Project{}).
		Select("COALESCE(SUM(revenue_cents), 0)").
		Scan(&total).Error
	return money.Cents(total), err
}

func (r *projectRepository) ListIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&models.Project{}).Pluck("id", &ids).Error
	return ids, err
}

func (r *projectRepository) ListByPrimaryClient(clientID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Where("client_id = ?", clientID).Find(&projects).Error
	return projects, err
}

package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/models"
)

type AssignmentRepository interface {
	Create(assignment *models.Assignment) error
	Delete(clientID, projectID uuid.UUID) (int64, error)
	DeleteByClient(clientID uuid.UUID) error
	DeleteByProject(projectID uuid.UUID) error
	Exists(clientID, projectID uuid.UUID) (bool, error)
	ListByProject(projectID uuid.UUID) ([]models.Assignment, error)
	// FirstRemainingForProject returns the oldest surviving assignment
	// for a project, the deterministic candidate when a primary client
	// has to be replaced. Ordered by created_at then id so concurrent
	// callers agree on the pick.
	FirstRemainingForProject(projectID uuid.UUID) (*models.Assignment, error)

	// Join reads through the assignment relation.
	ListClientsForProject(projectID uuid.UUID) ([]models.Client, error)
	ListProjectsForClient(clientID uuid.UUID) ([]models.Project, error)
	ListUnassignedClients(projectID uuid.UUID) ([]models.Client, error)
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) Create(assignment *models.Assignment) error {
	return r.db.Create(assignment).Error
}

func (r *assignmentRepository) Delete(clientID, projectID uuid.UUID) (int64, error) {
	result := r.db.Delete(&models.Assignment{}, "client_id = ? AND project_id = ?", clientID, projectID)
	return result.RowsAffected, result.Error
}

func (r *assignmentRepository) DeleteByClient(clientID uuid.UUID) error {
	return r.db.Delete(&models.Assignment{}, "client_id = ?", clientID).Error
}

func (r *assignmentRepository) DeleteByProject(projectID uuid.UUID) error {
	return r.db.Delete(&models.Assignment{}, "project_id = ?", projectID).Error
}

func (r *assignmentRepository) Exists(clientID, projectID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Assignment{}).
		Where("client_id = ? AND project_id = ?", clientID, projectID).
		Count(&count).Error
	return count > 0, err
}

func (r *assignmentRepository) ListByProject(projectID uuid.UUID) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *assignmentRepository) FirstRemainingForProject(projectID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *assignmentRepository) ListClientsForProject(projectID uuid.UUID) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.Model(&models.Client{}).
		Joins("JOIN assignments ON assignments.client_id = clients.id").
		Where("assignments.project_id = ?", projectID).
		Order("assignments.created_at ASC").
		Find(&clients).Error
	return clients, err
}

func (r *assignmentRepository) ListProjectsForClient(clientID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.Model(&models.Project{}).
		Joins("JOIN assignments ON assignments.project_id = projects.id").
		Where("assignments.client_id = ?", clientID).
		Order("assignments.created_at ASC").
		Find(&projects).Error
	return projects, err
}

func (r *assignmentRepository) ListUnassignedClients(projectID uuid.UUID) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.Model(&models.Client{}).
		Where("id NOT IN (?)",
			r.db.Model(&models.Assignment{}).Select("client_id").Where("project_id = ?", projectID)).
		Order("company_name ASC").
		Find(&clients).Error
	return clients, err
}

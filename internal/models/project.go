package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/money"
)

// NoClient is the sentinel cached on a project whose primary-client
// pointer is empty.
const NoClient = "No Client"

type ProjectStatus string

const (
	ProjectStatusOnboarding ProjectStatus = "onboarding"
	ProjectStatusActive     ProjectStatus = "active"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusOnboarding, ProjectStatusActive, ProjectStatusCompleted:
		return true
	}
	return false
}

type ProjectPriority string

const (
	ProjectPriorityLow    ProjectPriority = "low"
	ProjectPriorityMedium ProjectPriority = "medium"
	ProjectPriorityHigh   ProjectPriority = "high"
)

func (p ProjectPriority) Valid() bool {
	switch p {
	case ProjectPriorityLow, ProjectPriorityMedium, ProjectPriorityHigh:
		return true
	}
	return false
}

// Project carries two denormalized fields kept consistent by the
// assignment and revenue services: the primary-client pair
// (ClientID/ClientName) and RevenueCents.
type Project struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	Name           string          `json:"name" gorm:"type:varchar(255);not null"`
	Status         ProjectStatus   `json:"status" gorm:"type:varchar(20);not null;default:'onboarding';index"`
	Priority       ProjectPriority `json:"priority" gorm:"type:varchar(20);not null;default:'medium';index"`
	StartDate      *time.Time      `json:"startDate,omitempty"`
	DueDate        *time.Time      `json:"dueDate,omitempty"`
	ClientID       *uuid.UUID      `json:"clientId,omitempty" gorm:"type:uuid;index"`
	ClientName     string          `json:"clientName" gorm:"type:varchar(255);not null;default:'No Client'"`
	RevenueCents   money.Cents     `json:"revenue" gorm:"type:bigint;not null;default:0"`
	PortalSlug     string          `json:"portalSlug" gorm:"type:varchar(255);not null;uniqueIndex"`
	PortalPassword string          `json:"-" gorm:"type:varchar(255);not null;default:''"`
	CreatedAt      time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Assignment is the many-to-many join between clients and projects.
// CreatedAt doubles as the deterministic promotion tie-break when a
// primary client is unassigned.
type Assignment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ClientID  uuid.UUID `json:"clientId" gorm:"type:uuid;not null;uniqueIndex:idx_client_project;index"`
	ProjectID uuid.UUID `json:"projectId" gorm:"type:uuid;not null;uniqueIndex:idx_client_project;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// IDs are generated application-side so the models stay portable across
// postgres and the sqlite used in tests.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ==========================================
// REQUEST/RESPONSE MODELS
// ==========================================

type CreateProjectRequest struct {
	Name           string           `json:"name" binding:"required"`
	Status         *ProjectStatus   `json:"status,omitempty"`
	Priority       *ProjectPriority `json:"priority,omitempty"`
	StartDate      *time.Time       `json:"startDate,omitempty"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	ClientID       *uuid.UUID       `json:"clientId,omitempty"`
	InitialRevenue *money.Cents     `json:"initialRevenue,omitempty"`
	PortalPassword *string          `json:"portalPassword,omitempty"`
}

type UpdateProjectRequest struct {
	Name           *string          `json:"name,omitempty"`
	Status         *ProjectStatus   `json:"status,omitempty"`
	Priority       *ProjectPriority `json:"priority,omitempty"`
	StartDate      *time.Time       `json:"startDate,omitempty"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	PortalPassword *string          `json:"portalPassword,omitempty"`
}

type ProjectResponse struct {
	Success bool     `json:"success"`
	Data    *Project `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Warning string   `json:"warning,omitempty"`
}

type ProjectListResponse struct {
	Success    bool        `json:"success"`
	Data       []Project   `json:"data"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type AssignedClientsResponse struct {
	Success bool     `json:"success"`
	Data    []Client `json:"data"`
	Message string   `json:"message,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrevious"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit int, total int64) *Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

type ProjectService interface {
	Create(ctx context.Context, req *models.CreateProjectRequest) (*models.Project, error)
	Get(id uuid.UUID) (*models.Project, error)
	List(filters repository.ProjectFilters) ([]models.Project, int64, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateProjectRequest) (*models.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectService struct {
	db          *gorm.DB
	portalCache *cache.PortalCache
	logger      *logrus.Entry
}

// NewProjectService creates a new project service. A nil portal cache
// disables portal view invalidation.
func NewProjectService(db *gorm.DB, portalCache *cache.PortalCache, logger *logrus.Logger) ProjectService {
	return &projectService{
		db:          db,
		portalCache: portalCache,
		logger:      logger.WithField("component", "services.project"),
	}
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func makeSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "project"
	}
	return s
}

// uniqueSlug appends a numeric suffix until the slug is free.
func uniqueSlug(repo repository.ProjectRepository, base string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		exists, err := repo.SlugExists(slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// Create builds the project and, in the same transaction, applies the
// optional initial client selection (assignment + primary promotion) and
// the optional seed revenue (first pending invoice + revenue write).
func (s *projectService) Create(ctx context.Context, req *models.CreateProjectRequest) (*models.Project, error) {
	status := models.ProjectStatusOnboarding
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, NewValidationError("status", "must be one of onboarding, active, completed")
		}
		status = *req.Status
	}
	priority := models.ProjectPriorityMedium
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, NewValidationError("priority", "must be one of low, medium, high")
		}
		priority = *req.Priority
	}
	if req.InitialRevenue != nil && *req.InitialRevenue < 0 {
		return nil, NewValidationError("initialRevenue", "must not be negative")
	}

	var project *models.Project
	seeded := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projectRepo := repository.NewProjectRepository(tx)
		clientRepo := repository.NewClientRepository(tx)
		assignmentRepo := repository.NewAssignmentRepository(tx)
		invoiceRepo := repository.NewInvoiceRepository(tx)

		slug, err := uniqueSlug(projectRepo, makeSlug(req.Name))
		if err != nil {
			return fmt.Errorf("failed to generate portal slug: %w", err)
		}

		project = &models.Project{
			Name:       req.Name,
			Status:     status,
			Priority:   priority,
			StartDate:  req.StartDate,
			DueDate:    req.DueDate,
			ClientName: models.NoClient,
			PortalSlug: slug,
		}
		if req.PortalPassword != nil {
			project.PortalPassword = *req.PortalPassword
		}

		if err := projectRepo.Create(project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		if req.ClientID != nil {
			client, err := clientRepo.GetByID(*req.ClientID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("client: %w", ErrNotFound)
				}
				return err
			}
			if err := assignmentRepo.Create(&models.Assignment{
				ClientID:  client.ID,
				ProjectID: project.ID,
			}); err != nil {
				return fmt.Errorf("failed to create initial assignment: %w", err)
			}
			if err := projectRepo.SetPrimaryClient(project.ID, &client.ID, client.CompanyName); err != nil {
				return fmt.Errorf("failed to set initial primary client: %w", err)
			}
			project.ClientID = &client.ID
			project.ClientName = client.CompanyName
		}

		if req.InitialRevenue != nil && *req.InitialRevenue > 0 {
			invoice := &models.Invoice{
				ProjectID:   project.ID,
				AmountCents: *req.InitialRevenue,
				Status:      models.InvoiceStatusPending,
				IssueDate:   time.Now().UTC(),
				Description: "Initial project revenue",
			}
			if err := invoiceRepo.Create(invoice); err != nil {
				return fmt.Errorf("failed to create seed invoice: %w", err)
			}
			if err := projectRepo.SetRevenue(project.ID, *req.InitialRevenue); err != nil {
				return fmt.Errorf("failed to write seed revenue: %w", err)
			}
			project.RevenueCents = *req.InitialRevenue
			seeded = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pub := events.GetPublisher()
	pub.ProjectsChanged(ctx, project.ID.String())
	if req.ClientID != nil {
		pub.AssignmentsChanged(ctx, project.ID.String())
	}
	if seeded {
		pub.BillingChanged(ctx, project.ID.String())
	}

	s.logger.WithFields(logrus.Fields{
		"project_id": project.ID,
		"slug":       project.PortalSlug,
	}).Info("Project created")

	return project, nil
}

func (s *projectService) Get(id uuid.UUID) (*models.Project, error) {
	project, err := repository.NewProjectRepository(s.db).GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", ErrNotFound)
		}
		return nil, err
	}
	return project, nil
}

func (s *projectService) List(filters repository.ProjectFilters) ([]models.Project, int64, error) {
	return repository.NewProjectRepository(s.db).List(filters)
}

func (s *projectService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateProjectRequest) (*models.Project, error) {
	projectRepo := repository.NewProjectRepository(s.db.WithContext(ctx))

	project, err := projectRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", ErrNotFound)
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, NewValidationError("name", "must not be empty")
		}
		updates["name"] = *req.Name
		project.Name = *req.Name
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, NewValidationError("status", "must be one of onboarding, active, completed")
		}
		updates["status"] = *req.Status
		project.Status = *req.Status
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, NewValidationError("priority", "must be one of low, medium, high")
		}
		updates["priority"] = *req.Priority
		project.Priority = *req.Priority
	}
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
		project.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
		project.DueDate = req.DueDate
	}
	if req.PortalPassword != nil {
		updates["portal_password"] = *req.PortalPassword
		project.PortalPassword = *req.PortalPassword
	}
	if len(updates) == 0 {
		return project, nil
	}

	if err := projectRepo.UpdateFields(id, updates); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	events.GetPublisher().ProjectsChanged(ctx, id.String())
	if s.portalCache != nil {
		s.portalCache.Invalidate(ctx, project.PortalSlug)
	}
	return project, nil
}

// Delete removes the project with its assignments and invoices in one
// transaction. Clients are never touched.
func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	var slug string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		projectRepo := repository.NewProjectRepository(tx)
		assignmentRepo := repository.NewAssignmentRepository(tx)
		invoiceRepo := repository.NewInvoiceRepository(tx)

		project, err := projectRepo.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("project: %w", ErrNotFound)
			}
			return err
		}
		// The slug is gone with the row, so capture it for invalidation.
		slug = project.PortalSlug
		if err := assignmentRepo.DeleteByProject(id); err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		if err := invoiceRepo.DeleteByProject(id); err != nil {
			return fmt.Errorf("failed to delete invoices: %w", err)
		}
		if err := projectRepo.Delete(id); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	pub := events.GetPublisher()
	pub.ProjectsChanged(ctx, id.String())
	pub.BillingChanged(ctx, id.String())

	if s.portalCache != nil {
		s.portalCache.Invalidate(ctx, slug)
	}

	s.logger.WithField("project_id", id).Info("Project deleted")
	return nil
}

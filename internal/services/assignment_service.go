package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

// AssignmentService keeps the client/project assignment relation and each
// project's denormalized primary-client pointer mutually consistent.
//
// Per-project primary pointer state machine:
//
//	Unassigned   -> HasPrimary(c)  on first Assign or explicit SetPrimary
//	HasPrimary(c) -> HasPrimary(c') on SetPrimary(c'), or on Unassign(c)
//	                                with a remaining candidate
//	HasPrimary(c) -> Unassigned    on Unassign(c) with no candidates left,
//	                                or on DeleteClient(c)
type AssignmentService interface {
	Assign(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error)
	Unassign(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error)
	SetPrimary(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error)
	DeleteClient(ctx context.Context, clientID uuid.UUID) error

	ListAssignedClients(projectID uuid.UUID) ([]models.Client, error)
	ListAvailableClients(projectID uuid.UUID) ([]models.Client, error)
	ListProjectsForClient(clientID uuid.UUID) ([]models.Project, error)
}

type assignmentService struct {
	db          *gorm.DB
	portalCache *cache.PortalCache
	logger      *logrus.Entry
}

// NewAssignmentService creates a new assignment service. A nil portal
// cache disables portal view invalidation.
func NewAssignmentService(db *gorm.DB, portalCache *cache.PortalCache, logger *logrus.Logger) AssignmentService {
	return &assignmentService{
		db:          db,
		portalCache: portalCache,
		logger:      logger.WithField("component", "services.assignment"),
	}
}

// Assign inserts the assignment row and, when the project has no primary
// client yet, promotes the newly assigned client. Both writes run in one
// transaction so the promotion can never be lost after the insert commits.
func (s *assignmentService) Assign(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error) {
	var project *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignmentRepo := repository.NewAssignmentRepository(tx)
		projectRepo := repository.NewProjectRepository(tx)
		clientRepo := repository.NewClientRepository(tx)

		client, err := clientRepo.GetByID(clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client: %w", ErrNotFound)
			}
			return err
		}

		project, err = projectRepo.GetByID(projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("project: %w", ErrNotFound)
			}
			return err
		}

		exists, err := assignmentRepo.Exists(clientID, projectID)
		if err != nil {
			return err
		}
		if exists {
			return NewConflictError("assignment", "client is already assigned to this project")
		}

		if err := assignmentRepo.Create(&models.Assignment{
			ClientID:  clientID,
			ProjectID: projectID,
		}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return NewConflictError("assignment", "client is already assigned to this project")
			}
			return fmt.Errorf("failed to create assignment: %w", err)
		}

		// First assignment on an unassigned project promotes the client.
		// Later assignments leave the primary untouched.
		if project.ClientID == nil {
			if err := projectRepo.SetPrimaryClient(projectID, &clientID, client.CompanyName); err != nil {
				return fmt.Errorf("failed to promote primary client: %w", err)
			}
			project.ClientID = &clientID
			project.ClientName = client.CompanyName
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pub := events.GetPublisher()
	pub.AssignmentsChanged(ctx, projectID.String())
	pub.ClientsChanged(ctx, clientID.String())
	pub.ProjectsChanged(ctx, projectID.String())

	if s.portalCache != nil {
		s.portalCache.Invalidate(ctx, project.PortalSlug)
	}

	s.logger.WithFields(logrus.Fields{
		"client_id":  clientID,
		"project_id": projectID,
	}).Info("Client assigned to project")

	return project, nil
}

// Unassign deletes the assignment row. When the removed client was the
// project's primary, the oldest remaining assignee is promoted; with none
// left the pointer resets to the No Client sentinel.
func (s *assignmentService) Unassign(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error) {
	var project *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignmentRepo := repository.NewAssignmentRepository(tx)
		projectRepo := repository.NewProjectRepository(tx)
		clientRepo := repository.NewClientRepository(tx)

		var err error
		project, err = projectRepo.GetByID(projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("project: %w", ErrNotFound)
			}
			return err
		}

		affected, err := assignmentRepo.Delete(clientID, projectID)
		if err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("assignment: %w", ErrNotFound)
		}

		if project.ClientID == nil || *project.ClientID != clientID {
			return nil
		}

		// The primary client just lost its assignment; find a replacement.
		replacement, err := assignmentRepo.FirstRemainingForProject(projectID)
		switch {
		case err == nil:
			client, err := clientRepo.GetByID(replacement.ClientID)
			if err != nil {
				return fmt.Errorf("failed to load replacement client: %w", err)
			}
			if err := projectRepo.SetPrimaryClient(projectID, &replacement.ClientID, client.CompanyName); err != nil {
				return fmt.Errorf("failed to promote replacement primary: %w", err)
			}
			project.ClientID = &replacement.ClientID
			project.ClientName = client.CompanyName
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := projectRepo.SetPrimaryClient(projectID, nil, models.NoClient); err != nil {
				return fmt.Errorf("failed to reset primary client: %w", err)
			}
			project.ClientID = nil
			project.ClientName = models.NoClient
		default:
			return fmt.Errorf("failed to query remaining assignments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pub := events.GetPublisher()
	pub.AssignmentsChanged(ctx, projectID.String())
	pub.ClientsChanged(ctx, clientID.String())
	pub.ProjectsChanged(ctx, projectID.String())

	if s.portalCache != nil {
		s.portalCache.Invalidate(ctx, project.PortalSlug)
	}

	s.logger.WithFields(logrus.Fields{
		"client_id":  clientID,
		"project_id": projectID,
	}).Info("Client unassigned from project")

	return project, nil
}

// SetPrimary is the explicit user override. The client must already be
// assigned; the assignment relation itself is not altered.
func (s *assignmentService) SetPrimary(ctx context.Context, clientID, projectID uuid.UUID) (*models.Project, error) {
	var project *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignmentRepo := repository.NewAssignmentRepository(tx)
		projectRepo := repository.NewProjectRepository(tx)
		clientRepo := repository.NewClientRepository(tx)

		var err error
		project, err = projectRepo.GetByID(projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("project: %w", ErrNotFound)
			}
			return err
		}

		assigned, err := assignmentRepo.Exists(clientID, projectID)
		if err != nil {
			return err
		}
		if !assigned {
			return NewConflictError("assignment", "client is not assigned to this project")
		}

		client, err := clientRepo.GetByID(clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client: %w", ErrNotFound)
			}
			return err
		}

		if err := projectRepo.SetPrimaryClient(projectID, &clientID, client.CompanyName); err != nil {
			return fmt.Errorf("failed to set primary client: %w", err)
		}
		project.ClientID = &clientID
		project.ClientName = client.CompanyName
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.GetPublisher().ProjectsChanged(ctx, projectID.String())

	if s.portalCache != nil {
		s.portalCache.Invalidate(ctx, project.PortalSlug)
	}

	return project, nil
}

// DeleteClient resets the primary pointer on every project that has this
// client as primary, then deletes the client with its contacts and
// assignments. The ordering keeps the pointer from ever dangling; the
// projects themselves survive.
func (s *assignmentService) DeleteClient(ctx context.Context, clientID uuid.UUID) error {
	var touchedProjects []uuid.UUID

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignmentRepo := repository.NewAssignmentRepository(tx)
		projectRepo := repository.NewProjectRepository(tx)
		clientRepo := repository.NewClientRepository(tx)

		if _, err := clientRepo.GetByID(clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client: %w", ErrNotFound)
			}
			return err
		}

		primaries, err := projectRepo.ListByPrimaryClient(clientID)
		if err != nil {
			return fmt.Errorf("failed to list projects with this primary client: %w", err)
		}
		for _, project := range primaries {
			if err := projectRepo.SetPrimaryClient(project.ID, nil, models.NoClient); err != nil {
				return fmt.Errorf("failed to reset primary client on project %s: %w", project.ID, err)
			}
			touchedProjects = append(touchedProjects, project.ID)
		}

		// Track projects that only lose an assignment, for invalidation.
		assigned, err := assignmentRepo.ListProjectsForClient(clientID)
		if err != nil {
			return fmt.Errorf("failed to list assigned projects: %w", err)
		}
		for _, project := range assigned {
			touchedProjects = append(touchedProjects, project.ID)
		}

		if err := assignmentRepo.DeleteByClient(clientID); err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		if err := clientRepo.DeleteContactsByClient(clientID); err != nil {
			return fmt.Errorf("failed to delete contacts: %w", err)
		}
		if err := clientRepo.Delete(clientID); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	pub := events.GetPublisher()
	pub.ClientsChanged(ctx, clientID.String())
	pub.ProjectsChanged(ctx, "")
	for _, id := range dedupe(touchedProjects) {
		pub.AssignmentsChanged(ctx, id.String())
		invalidatePortalView(ctx, s.db.WithContext(ctx), s.portalCache, id)
	}

	s.logger.WithField("client_id", clientID).Info("Client deleted")
	return nil
}

func (s *assignmentService) ListAssignedClients(projectID uuid.UUID) ([]models.Client, error) {
	return repository.NewAssignmentRepository(s.db).ListClientsForProject(projectID)
}

func (s *assignmentService) ListAvailableClients(projectID uuid.UUID) ([]models.Client, error) {
	return repository.NewAssignmentRepository(s.db).ListUnassignedClients(projectID)
}

func (s *assignmentService) ListProjectsForClient(clientID uuid.UUID) ([]models.Project, error) {
	return repository.NewAssignmentRepository(s.db).ListProjectsForClient(clientID)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

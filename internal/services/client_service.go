package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/cache"
	"github.com/tesseract-hub/agency-service/internal/events"
	"github.com/tesseract-hub/agency-service/internal/models"
	"github.com/tesseract-hub/agency-service/internal/repository"
)

// ClientService covers client company and contact CRUD. Client deletion
// lives on AssignmentService because of its primary-pointer side effects.
type ClientService interface {
	Create(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error)
	Get(id uuid.UUID) (*models.Client, error)
	List(filters repository.ClientFilters) ([]models.Client, int64, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateClientRequest) (*models.Client, error)

	CreateContact(ctx context.Context, clientID uuid.UUID, req *models.CreateContactRequest) (*models.Contact, error)
	ListContacts(clientID uuid.UUID) ([]models.Contact, error)
	UpdateContact(ctx context.Context, contactID uuid.UUID, req *models.UpdateContactRequest) (*models.Contact, error)
	DeleteContact(ctx context.Context, contactID uuid.UUID) error
}

type clientService struct {
	db          *gorm.DB
	portalCache *cache.PortalCache
	logger      *logrus.Entry
}

// NewClientService creates a new client service. A nil portal cache
// disables portal view invalidation.
func NewClientService(db *gorm.DB, portalCache *cache.PortalCache, logger *logrus.Logger) ClientService {
	return &clientService{
		db:          db,
		portalCache: portalCache,
		logger:      logger.WithField("component", "services.client"),
	}
}

func mapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func (s *clientService) Create(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error) {
	metadata, err := mapToJSON(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	client := &models.Client{
		CompanyName: req.CompanyName,
		Website:     req.Website,
		Address:     req.Address,
		Notes:       req.Notes,
		Metadata:    metadata,
	}
	if err := repository.NewClientRepository(s.db.WithContext(ctx)).Create(client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	events.GetPublisher().ClientsChanged(ctx, client.ID.String())

	s.logger.WithField("client_id", client.ID).Info("Client created")
	return client, nil
}

func (s *clientService) Get(id uuid.UUID) (*models.Client, error) {
	client, err := repository.NewClientRepository(s.db).GetByIDWithContacts(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("client: %w", ErrNotFound)
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) List(filters repository.ClientFilters) ([]models.Client, int64, error) {
	return repository.NewClientRepository(s.db).List(filters)
}

// Update edits company fields. When the company name changes, the cached
// client_name on every project that has this client as primary is
// rewritten in the same transaction so the denormalized pair stays true.
func (s *clientService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateClientRequest) (*models.Client, error) {
	var client *models.Client
	var touchedSlugs []string
	nameChanged := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientRepo := repository.NewClientRepository(tx)
		projectRepo := repository.NewProjectRepository(tx)

		var err error
		client, err = clientRepo.GetByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client: %w", ErrNotFound)
			}
			return err
		}

		if req.CompanyName != nil && *req.CompanyName != client.CompanyName {
			client.CompanyName = *req.CompanyName
			nameChanged = true
		}
		if req.Website != nil {
			client.Website = req.Website
		}
		if req.Address != nil {
			client.Address = req.Address
		}
		if req.Notes != nil {
			client.Notes = req.Notes
		}
		if req.Metadata != nil {
			metadata, err := mapToJSON(req.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata: %w", err)
			}
			client.Metadata = metadata
		}

		if err := clientRepo.Update(client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		if nameChanged {
			primaries, err := projectRepo.ListByPrimaryClient(id)
			if err != nil {
				return fmt.Errorf("failed to list projects with this primary client: %w", err)
			}
			for _, project := range primaries {
				if err := projectRepo.SetPrimaryClient(project.ID, &id, client.CompanyName); err != nil {
					return fmt.Errorf("failed to refresh cached client name: %w", err)
				}
				touchedSlugs = append(touchedSlugs, project.PortalSlug)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pub := events.GetPublisher()
	pub.ClientsChanged(ctx, id.String())
	if nameChanged {
		pub.ProjectsChanged(ctx, "")
	}
	if s.portalCache != nil {
		for _, slug := range touchedSlugs {
			s.portalCache.Invalidate(ctx, slug)
		}
	}
	return client, nil
}

// ==========================================
// CONTACT OPERATIONS
// ==========================================

func (s *clientService) CreateContact(ctx context.Context, clientID uuid.UUID, req *models.CreateContactRequest) (*models.Contact, error) {
	var contact *models.Contact

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientRepo := repository.NewClientRepository(tx)

		if _, err := clientRepo.GetByID(clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client: %w", ErrNotFound)
			}
			return err
		}

		// A new primary demotes any existing one.
		if req.IsPrimary {
			if err := clientRepo.ClearPrimaryContact(clientID); err != nil {
				return fmt.Errorf("failed to clear previous primary contact: %w", err)
			}
		}

		contact = &models.Contact{
			ClientID:  clientID,
			Name:      req.Name,
			Role:      req.Role,
			Email:     req.Email,
			Phone:     req.Phone,
			IsPrimary: req.IsPrimary,
		}
		if err := clientRepo.CreateContact(contact); err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.GetPublisher().ContactsChanged(ctx, clientID.String())
	return contact, nil
}

func (s *clientService) ListContacts(clientID uuid.UUID) ([]models.Contact, error) {
	return repository.NewClientRepository(s.db).ListContacts(clientID)
}

func (s *clientService) UpdateContact(ctx context.Context, contactID uuid.UUID, req *models.UpdateContactRequest) (*models.Contact, error) {
	var contact *models.Contact

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientRepo := repository.NewClientRepository(tx)

		var err error
		contact, err = clientRepo.GetContactByID(contactID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("contact: %w", ErrNotFound)
			}
			return err
		}

		if req.Name != nil {
			contact.Name = *req.Name
		}
		if req.Role != nil {
			contact.Role = req.Role
		}
		if req.Email != nil {
			contact.Email = req.Email
		}
		if req.Phone != nil {
			contact.Phone = req.Phone
		}
		if req.IsPrimary != nil {
			if *req.IsPrimary && !contact.IsPrimary {
				if err := clientRepo.ClearPrimaryContact(contact.ClientID); err != nil {
					return fmt.Errorf("failed to clear previous primary contact: %w", err)
				}
			}
			contact.IsPrimary = *req.IsPrimary
		}

		if err := clientRepo.UpdateContact(contact); err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.GetPublisher().ContactsChanged(ctx, contact.ClientID.String())
	return contact, nil
}

func (s *clientService) DeleteContact(ctx context.Context, contactID uuid.UUID) error {
	clientRepo := repository.NewClientRepository(s.db.WithContext(ctx))

	contact, err := clientRepo.GetContactByID(contactID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("contact: %w", ErrNotFound)
		}
		return err
	}
	if err := clientRepo.DeleteContact(contactID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}

	events.GetPublisher().ContactsChanged(ctx, contact.ClientID.String())
	return nil
}

package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/models"
)

type ClientRepository interface {
	Create(client *models.Client) error
	GetByID(id uuid.UUID) (*models.Client, error)
	GetByIDWithContacts(id uuid.UUID) (*models.Client, error)
	List(filters ClientFilters) ([]models.Client, int64, error)
	Update(client *models.Client) error
	Delete(id uuid.UUID) error
	Count() (int64, error)

	// Contact operations
	CreateContact(contact *models.Contact) error
	GetContactByID(id uuid.UUID) (*models.Contact, error)
	ListContacts(clientID uuid.UUID) ([]models.Contact, error)
	UpdateContact(contact *models.Contact) error
	DeleteContact(id uuid.UUID) error
	DeleteContactsByClient(clientID uuid.UUID) error
	ClearPrimaryContact(clientID uuid.UUID) error
}

type ClientFilters struct {
	Search    string
	Page      int
	Limit     int
	SortOrder string
}

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(client *models.Client) error {
	return r.db.Create(client).Error
}

func (r *clientRepository) GetByID(id uuid.UUID) (*models.Client, error) {
	var client models.Client
	if err := r.db.First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) GetByIDWithContacts(id uuid.UUID) (*models.Client, error) {
	var client models.Client
	err := r.db.Preload("Contacts", func(db *gorm.DB) *gorm.DB {
		return db.Order("contacts.is_primary DESC, contacts.created_at ASC")
	}).First(&client, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(filters ClientFilters) ([]models.Client, int64, error) {
	var clients []models.Client
	var total int64

	query := r.db.Model(&models.Client{})
	if filters.Search != "" {
		query = query.Where("LOWER(company_name) LIKE LOWER(?)", "%"+filters.Search+"%")
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

	order := "company_name ASC"
	if filters.SortOrder == "desc" || filters.SortOrder == "DESC" {
		order = "company_name DESC"
	}

	err := query.Order(order).Offset(offset).Limit(filters.Limit).Find(&clients).Error
	return clients, total, err
}

func (r *clientRepository) Update(client *models.Client) error {
	return r.db.Save(client).Error
}

func (r *clientRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.Client{}, "id = ?", id).Error
}

func (r *clientRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Client{}).Count(&count).Error
	return count, err
}

// ==========================================
// CONTACT OPERATIONS
// ==========================================

func (r *clientRepository) CreateContact(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

func (r *clientRepository) GetContactByID(id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.First(&contact, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *clientRepository) ListContacts(clientID uuid.UUID) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.Where("client_id = ?", clientID).
		Order("is_primary DESC, created_at ASC").
		Find(&contacts).Error
	return contacts, err
}

func (r *clientRepository) UpdateContact(contact *models.Contact) error {
	return r.db.Save(contact).Error
}

func (r *clientRepository) DeleteContact(id uuid.UUID) error {
	return r.db.Delete(&models.Contact{}, "id = ?", id).Error
}

func (r *clientRepository) DeleteContactsByClient(clientID uuid.UUID) error {
	return r.db.Delete(&models.Contact{}, "client_id = ?", clientID).Error
}

func (r *clientRepository) ClearPrimaryContact(clientID uuid.UUID) error {
	return r.db.Model(&models.Contact{}).
		Where("client_id = ? AND is_primary = ?", clientID, true).
		Update("is_primary", false).Error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Client is a company the agency works with. Deleting a client cascades
// its contacts and assignments but never its projects; those fall back
// to the NoClient sentinel.
type Client struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CompanyName string         `json:"companyName" gorm:"type:varchar(255);not null;index"`
	Website     *string        `json:"website,omitempty" gorm:"type:varchar(500)"`
	Address     *string        `json:"address,omitempty" gorm:"type:text"`
	Notes       *string        `json:"notes,omitempty" gorm:"type:text"`
	Metadata    datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`
	Contacts    []Contact      `json:"contacts,omitempty" gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

// Contact belongs to exactly one client. The service layer keeps at most
// one IsPrimary contact per client.
type Contact struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ClientID  uuid.UUID `json:"clientId" gorm:"type:uuid;not null;index"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Role      *string   `json:"role,omitempty" gorm:"type:varchar(100)"`
	Email     *string   `json:"email,omitempty" gorm:"type:varchar(255)"`
	Phone     *string   `json:"phone,omitempty" gorm:"type:varchar(50)"`
	IsPrimary bool      `json:"isPrimary" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ==========================================
// REQUEST/RESPONSE MODELS
// ==========================================

type CreateClientRequest struct {
	CompanyName string                 `json:"companyName" binding:"required"`
	Website     *string                `json:"website,omitempty"`
	Address     *string                `json:"address,omitempty"`
	Notes       *string                `json:"notes,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateClientRequest struct {
	CompanyName *string                `json:"companyName,omitempty"`
	Website     *string                `json:"website,omitempty"`
	Address     *string                `json:"address,omitempty"`
	Notes       *string                `json:"notes,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type CreateContactRequest struct {
	Name      string  `json:"name" binding:"required"`
	Role      *string `json:"role,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	IsPrimary bool    `json:"isPrimary"`
}

type UpdateContactRequest struct {
	Name      *string `json:"name,omitempty"`
	Role      *string `json:"role,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	IsPrimary *bool   `json:"isPrimary,omitempty"`
}

type ClientResponse struct {
	Success bool    `json:"success"`
	Data    *Client `json:"data,omitempty"`
	Message string  `json:"message,omitempty"`
}

type ClientListResponse struct {
	Success    bool        `json:"success"`
	Data       []Client    `json:"data"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ContactResponse struct {
	Success bool     `json:"success"`
	Data    *Contact `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
}

type ContactListResponse struct {
	Success bool      `json:"success"`
	Data    []Contact `json:"data"`
	Message string    `json:"message,omitempty"`
}

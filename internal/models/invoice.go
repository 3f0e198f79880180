package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tesseract-hub/agency-service/internal/money"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice belongs to exactly one project. Every amount-affecting mutation
// triggers a revenue recompute on the owning project; the project's
// stored revenue is the status-independent sum of its invoice amounts.
type Invoice struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primary_key"`
	ProjectID   uuid.UUID     `json:"projectId" gorm:"type:uuid;not null;index"`
	AmountCents money.Cents   `json:"amount" gorm:"type:bigint;not null"`
	Status      InvoiceStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	IssueDate   time.Time     `json:"issueDate" gorm:"not null"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Description string        `json:"description" gorm:"type:text"`
	CreatedAt   time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ==========================================
// REQUEST/RESPONSE MODELS
// ==========================================

type CreateInvoiceRequest struct {
	ProjectID   uuid.UUID      `json:"projectId" binding:"required"`
	Amount      money.Cents    `json:"amount"`
	Status      *InvoiceStatus `json:"status,omitempty"`
	IssueDate   *time.Time     `json:"issueDate,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Description string         `json:"description"`
}

type UpdateInvoiceRequest struct {
	Amount      *money.Cents   `json:"amount,omitempty"`
	Status      *InvoiceStatus `json:"status,omitempty"`
	IssueDate   *time.Time     `json:"issueDate,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Description *string        `json:"description,omitempty"`
}

type BulkDeleteInvoicesRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

type InvoiceResponse struct {
	Success bool     `json:"success"`
	Data    *Invoice `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	// Warning carries the non-fatal "created but revenue not updated"
	// case: the invoice mutation committed but the recompute failed.
	Warning string `json:"warning,omitempty"`
}

type InvoiceListResponse struct {
	Success    bool        `json:"success"`
	Data       []Invoice   `json:"data"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// DashboardSummary is the roll-up the admin dashboard renders.
type DashboardSummary struct {
	TotalRevenue         money.Cents             `json:"totalRevenue"`
	OutstandingAmount    money.Cents             `json:"outstandingAmount"`
	ProjectCount         int64                   `json:"projectCount"`
	ProjectsByStatus     map[ProjectStatus]int64 `json:"projectsByStatus"`
	CompletionPercentage float64                 `json:"completionPercentage"`
	ClientCount          int64                   `json:"clientCount"`
	InvoiceCount         int64                   `json:"invoiceCount"`
	InvoicesByStatus     map[InvoiceStatus]int64 `json:"invoicesByStatus"`
}

type DashboardSummaryResponse struct {
	Success bool              `json:"success"`
	Data    *DashboardSummary `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
}

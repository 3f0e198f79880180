package models

import "github.com/tesseract-hub/agency-service/internal/money"

// PortalProject is the client-facing slice of a project exposed behind
// the portal password gate. No internal fields (portal password, client
// pointer internals) leak through it.
type PortalProject struct {
	Name         string          `json:"name"`
	Status       ProjectStatus   `json:"status"`
	Priority     ProjectPriority `json:"priority"`
	ClientName   string          `json:"clientName"`
	Revenue      money.Cents     `json:"revenue"`
	StartDate    *string         `json:"startDate,omitempty"`
	DueDate      *string         `json:"dueDate,omitempty"`
	Invoices     []PortalInvoice `json:"invoices"`
	InvoiceTotal money.Cents     `json:"invoiceTotal"`
}

type PortalInvoice struct {
	Amount      money.Cents   `json:"amount"`
	Status      InvoiceStatus `json:"status"`
	IssueDate   string        `json:"issueDate"`
	DueDate     *string       `json:"dueDate,omitempty"`
	Description string        `json:"description"`
}

type PortalVerifyRequest struct {
	Password string `json:"password" binding:"required"`
}

type PortalVerifyResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}

type PortalProjectResponse struct {
	Success bool           `json:"success"`
	Data    *PortalProject `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
}

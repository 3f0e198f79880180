package services

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested resource does not exist.
var ErrNotFound = errors.New("resource not found")

// ValidationError represents a user-correctable input failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr, true
	}
	return nil, false
}

// ConflictError represents a resource conflict, e.g. assigning an
// already-assigned client/project pair.
type ConflictError struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{Resource: resource, Message: message}
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) (*ConflictError, bool) {
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr, true
	}
	return nil, false
}

// PartialError marks an operation whose primary write committed but whose
// dependent write failed, e.g. an invoice created while the revenue
// recompute errored. Handlers surface it as a warning, not a failure.
type PartialError struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *PartialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

// IsPartialError checks if an error is a PartialError
func IsPartialError(err error) (*PartialError, bool) {
	var partialErr *PartialError
	if errors.As(err, &partialErr) {
		return partialErr, true
	}
	return nil, false
}

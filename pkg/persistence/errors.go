// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard error types all implementations should return, so callers can
// branch on errors.Is instead of string matching.
var (
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrPersonaNotFound   = errors.New("persona not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrSettingNotFound   = errors.New("integration setting not found")
)

// StorageError wraps a storage failure with the operation and entity involved.
type StorageError struct {
	Op     string // Operation being performed (e.g. "GetByID", "Save")
	Entity string // Entity kind (e.g. "workflow", "lead")
	ID     string // Entity id if applicable
	Err    error
}

func (e *StorageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a storage error with context.
func NewStorageError(op, entity, id string, err error) *StorageError {
	return &StorageError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrLeadNotFound) ||
		errors.Is(err, ErrPersonaNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrSettingNotFound)
}

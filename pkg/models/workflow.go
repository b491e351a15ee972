package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft  WorkflowStatus = "draft"
	WorkflowStatusActive WorkflowStatus = "active"
	WorkflowStatusPaused WorkflowStatus = "paused"
)

// Workflow is a user-authored automation graph definition. PersonaID is empty
// when no persona is attached; AI nodes then skip generation.
type Workflow struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"        validate:"required,min=3"`
	Description    string         `json:"description"`
	Status         WorkflowStatus `json:"status"      validate:"required"`
	PersonaID      string         `json:"persona_id,omitempty"`
	ExecutionCount int            `json:"execution_count"`
	SuccessCount   int            `json:"success_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

package models

import "time"

// ExecutionStatus is the durable state of a run. Transitions are monotonic
// except the running/paused pair; completed and failed are terminal.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused"
)

// IsTerminal reports whether no further status transition is allowed.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// WorkflowExecution tracks one traversal of a workflow graph for one lead.
// CurrentNodeID is the last node entered and serves as the observability
// checkpoint while the run is in flight.
type WorkflowExecution struct {
	ID            string          `json:"id"          validate:"required"`
	WorkflowID    string          `json:"workflow_id" validate:"required"`
	LeadID        string          `json:"lead_id"     validate:"required"`
	Status        ExecutionStatus `json:"status"`
	CurrentNodeID string          `json:"current_node_id,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Package models defines the core domain models for lead outreach workflow automation.
package models

import "time"

// NodeType identifies the behavior of a workflow node.
type NodeType string

const (
	NodeTypeAI       NodeType = "ai"       // Generate a message with the configured persona
	NodeTypeEmail    NodeType = "email"    // Send an email to the lead
	NodeTypeSMS      NodeType = "sms"      // Send an SMS to the lead
	NodeTypeWait     NodeType = "wait"     // Delay marker between steps
	NodeTypeDecision NodeType = "decision" // Branch on a lead condition
)

// WorkflowNode is one step in a workflow graph. Config is an open key-value
// map interpreted per node type (e.g. waitMinutes, subject, condition).
type WorkflowNode struct {
	ID         string         `json:"id"          validate:"required"`
	WorkflowID string         `json:"workflow_id" validate:"required"`
	NodeType   NodeType       `json:"node_type"   validate:"required"`
	Label      string         `json:"label"`
	PositionX  int            `json:"position_x"`
	PositionY  int            `json:"position_y"`
	Config     map[string]any `json:"config,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ConfigString returns a string config value, or the empty string when the
// key is absent or holds a non-string value.
func (n *WorkflowNode) ConfigString(key string) string {
	if n.Config == nil {
		return ""
	}

	if s, ok := n.Config[key].(string); ok {
		return s
	}

	return ""
}

// ConfigInt returns an integer config value. JSON decoding produces float64
// for numbers, so both forms are accepted.
func (n *WorkflowNode) ConfigInt(key string) int {
	if n.Config == nil {
		return 0
	}

	switch v := n.Config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}

	return 0
}

// WorkflowEdge is a directed connection between two nodes. The optional label
// is matched by decision nodes to pick a branch.
type WorkflowEdge struct {
	ID           string    `json:"id"             validate:"required"`
	WorkflowID   string    `json:"workflow_id"    validate:"required"`
	SourceNodeID string    `json:"source_node_id" validate:"required"`
	TargetNodeID string    `json:"target_node_id" validate:"required"`
	Label        string    `json:"label,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

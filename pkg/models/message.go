package models

import "time"

// MessageStatus follows a send through its delivery lifecycle. Everything past
// "sent" is written by channel-tracking webhook processing, not by the engine.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// Metadata keys correlating provider webhooks back to a message.
const (
	MetadataSendGridMessageID = "sendgridMessageId"
	MetadataTwilioMessageSid  = "twilioMessageSid"
)

// Message records one attempted channel send for an execution.
type Message struct {
	ID          string         `json:"id"`
	ExecutionID string         `json:"execution_id" validate:"required"`
	LeadID      string         `json:"lead_id"      validate:"required"`
	PersonaID   string         `json:"persona_id,omitempty"`
	Channel     string         `json:"channel"      validate:"required"`
	Content     string         `json:"content"`
	Status      MessageStatus  `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	SentAt      *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	OpenedAt    *time.Time     `json:"opened_at,omitempty"`
	ClickedAt   *time.Time     `json:"clicked_at,omitempty"`
	RepliedAt   *time.Time     `json:"replied_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IntegrationSetting holds per-provider credentials and switches. Providers in
// use: sendgrid, twilio, linkedin, calendly, openrouter.
type IntegrationSetting struct {
	ID        string         `json:"id"`
	Provider  string         `json:"provider" validate:"required"`
	Config    map[string]any `json:"config"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ConfigString returns a string config value, or the empty string when absent.
func (s *IntegrationSetting) ConfigString(key string) string {
	if s.Config == nil {
		return ""
	}

	if v, ok := s.Config[key].(string); ok {
		return v
	}

	return ""
}

package models

import "time"

// Lead is a prospect record. Email and Phone may be empty; node executors that
// need them fail the run when the field is missing.
type Lead struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"  validate:"required"`
	Email           string         `json:"email" validate:"omitempty,email"`
	Company         string         `json:"company,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	Status          string         `json:"status"`
	Channel         string         `json:"channel"`
	Score           int            `json:"score"`
	CustomFields    map[string]any `json:"custom_fields,omitempty"`
	LastContactedAt *time.Time     `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Persona is a named tone/industry profile supplying the system prompt for
// AI-generated messages.
type Persona struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"          validate:"required"`
	Tone         string    `json:"tone"`
	Industry     string    `json:"industry"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt" validate:"required"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

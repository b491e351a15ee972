// Package ai abstracts text generation behind a narrow collaborator contract.
package ai

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates the AI integration is missing or disabled.
var ErrNotConfigured = errors.New("ai integration not configured")

// ErrEmptyGeneration indicates the provider returned no usable text.
var ErrEmptyGeneration = errors.New("no message generated from AI")

// Generator produces text from a persona system prompt and a user prompt.
// Sampling parameters are fixed by policy in the implementation, not
// user-configurable from workflow nodes.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Package channels abstracts "send this content somewhere" over multiple
// provider-backed delivery channels with graceful degradation.
package channels

import "context"

// Message carries the destination and content for one send. Subject is only
// meaningful for channels that have one; email rejects messages without it.
type Message struct {
	To         string
	Subject    string
	Content    string
	FromName   string
	FromEmail  string
	FromNumber string
}

// SendResult reports the outcome of a successful send.
type SendResult struct {
	Channel   string
	MessageID string
}

// Adapter is one delivery channel. Available reports whether the provider is
// configured and enabled; Send attempts delivery and returns the provider
// message id when one is issued.
type Adapter interface {
	Name() string
	Available(ctx context.Context) bool
	Send(ctx context.Context, message Message) (*SendResult, error)
}

package executors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omnireach/omnireach/pkg/channels"
	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
)

const (
	defaultSubject = "Message from OmniReach"
	defaultContent = "Hello!"
)

// EmailExecutor sends an email to the lead through channel dispatch and
// records the resulting Message. AI-generated subject/content take precedence
// over the node's own config; both fall back to fixed defaults.
type EmailExecutor struct {
	dispatcher *channels.Dispatcher
	messages   persistence.MessageRepository
	logger     *slog.Logger
}

func NewEmailExecutor(dispatcher *channels.Dispatcher, messages persistence.MessageRepository, logger *slog.Logger) *EmailExecutor {
	return &EmailExecutor{
		dispatcher: dispatcher,
		messages:   messages,
		logger:     logger.With("module", "email_executor"),
	}
}

func (e *EmailExecutor) Type() models.NodeType {
	return models.NodeTypeEmail
}

func (e *EmailExecutor) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		},
		"additionalProperties": true,
	}
}

func (e *EmailExecutor) Execute(ctx context.Context, node *models.WorkflowNode, _ *graph.Graph, execCtx *models.ExecutionContext) (*Result, error) {
	if execCtx.Lead == nil || execCtx.Lead.Email == "" {
		return nil, errors.New("lead has no email address")
	}

	subject := execCtx.StringVar(models.VarAIGeneratedSubject)
	if subject == "" {
		subject = node.ConfigString("subject")
	}

	if subject == "" {
		subject = defaultSubject
	}

	content := execCtx.StringVar(models.VarAIGeneratedMessage)
	if content == "" {
		content = node.ConfigString("content")
	}

	if content == "" {
		content = defaultContent
	}

	result, err := e.dispatcher.Send(ctx, "email", channels.Message{
		To:      execCtx.Lead.Email,
		Subject: subject,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	var metadata map[string]any
	if result.MessageID != "" {
		metadata = map[string]any{models.MetadataSendGridMessageID: result.MessageID}
	}

	now := time.Now()

	err = e.messages.Create(ctx, &models.Message{
		ID:          uuid.New().String(),
		ExecutionID: execCtx.ExecutionID,
		LeadID:      execCtx.LeadID,
		PersonaID:   execCtx.PersonaID,
		Channel:     result.Channel,
		Content:     content,
		Status:      models.MessageStatusSent,
		Metadata:    metadata,
		SentAt:      &now,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record sent email: %w", err)
	}

	e.logger.InfoContext(ctx, "Email sent",
		"to", execCtx.Lead.Email,
		"channel", result.Channel,
		"message_id", result.MessageID,
	)

	return &Result{}, nil
}

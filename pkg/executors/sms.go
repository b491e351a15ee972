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

// SMSExecutor is the email executor's sibling keyed on the lead's phone
// number; SMS has no subject.
type SMSExecutor struct {
	dispatcher *channels.Dispatcher
	messages   persistence.MessageRepository
	logger     *slog.Logger
}

func NewSMSExecutor(dispatcher *channels.Dispatcher, messages persistence.MessageRepository, logger *slog.Logger) *SMSExecutor {
	return &SMSExecutor{
		dispatcher: dispatcher,
		messages:   messages,
		logger:     logger.With("module", "sms_executor"),
	}
}

func (e *SMSExecutor) Type() models.NodeType {
	return models.NodeTypeSMS
}

func (e *SMSExecutor) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{"type": "string"},
		},
		"additionalProperties": true,
	}
}

func (e *SMSExecutor) Execute(ctx context.Context, node *models.WorkflowNode, _ *graph.Graph, execCtx *models.ExecutionContext) (*Result, error) {
	if execCtx.Lead == nil || execCtx.Lead.Phone == "" {
		return nil, errors.New("lead has no phone number")
	}

	content := execCtx.StringVar(models.VarAIGeneratedMessage)
	if content == "" {
		content = node.ConfigString("content")
	}

	if content == "" {
		content = defaultContent
	}

	result, err := e.dispatcher.Send(ctx, "sms", channels.Message{
		To:      execCtx.Lead.Phone,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send SMS: %w", err)
	}

	var metadata map[string]any
	if result.MessageID != "" {
		metadata = map[string]any{models.MetadataTwilioMessageSid: result.MessageID}
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
		return nil, fmt.Errorf("failed to record sent SMS: %w", err)
	}

	e.logger.InfoContext(ctx, "SMS sent",
		"to", execCtx.Lead.Phone,
		"channel", result.Channel,
		"message_id", result.MessageID,
	)

	return &Result{}, nil
}

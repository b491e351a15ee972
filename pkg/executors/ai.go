package executors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omnireach/omnireach/pkg/ai"
	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
)

// AIExecutor drafts a personalized message with the workflow's persona and
// stores it in the variable bag for downstream send nodes.
type AIExecutor struct {
	generator ai.Generator
	logger    *slog.Logger
}

func NewAIExecutor(generator ai.Generator, logger *slog.Logger) *AIExecutor {
	return &AIExecutor{
		generator: generator,
		logger:    logger.With("module", "ai_executor"),
	}
}

func (e *AIExecutor) Type() models.NodeType {
	return models.NodeTypeAI
}

func (e *AIExecutor) ConfigSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
	}
}

// Execute builds the prompt from the lead snapshot and the persona's system
// prompt. A workflow without a persona skips generation entirely; that is an
// authoring gap, not a run failure.
func (e *AIExecutor) Execute(ctx context.Context, _ *models.WorkflowNode, _ *graph.Graph, execCtx *models.ExecutionContext) (*Result, error) {
	if execCtx.Persona == nil {
		e.logger.WarnContext(ctx, "No persona configured for AI node", "execution_id", execCtx.ExecutionID)

		return &Result{}, nil
	}

	name := "Prospect"
	company := "their company"
	email := ""

	if execCtx.Lead != nil {
		if execCtx.Lead.Name != "" {
			name = execCtx.Lead.Name
		}

		if execCtx.Lead.Company != "" {
			company = execCtx.Lead.Company
		}

		email = execCtx.Lead.Email
	}

	userPrompt := fmt.Sprintf(`Generate a personalized sales message for the following prospect:

Name: %s
Company: %s
Email: %s

The message should be professional, concise, and include a clear call-to-action.`, name, company, email)

	generated, err := e.generator.Generate(ctx, execCtx.Persona.SystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("ai generation failed: %w", err)
	}

	execCtx.Variables[models.VarAIGeneratedMessage] = generated
	execCtx.Variables[models.VarAIGeneratedSubject] = "Message from " + execCtx.Persona.Name

	preview := generated
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}

	e.logger.InfoContext(ctx, "AI generated message", "execution_id", execCtx.ExecutionID, "preview", preview)

	return &Result{}, nil
}

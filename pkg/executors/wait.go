package executors

import (
	"context"
	"log/slog"

	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
)

// WaitExecutor is a non-blocking placeholder: it logs the intended delay and
// proceeds immediately. Suspending the run and re-enqueueing it after the
// delay needs mid-graph resumption in the engine, which is not supported yet.
type WaitExecutor struct {
	logger *slog.Logger
}

func NewWaitExecutor(logger *slog.Logger) *WaitExecutor {
	return &WaitExecutor{logger: logger.With("module", "wait_executor")}
}

func (e *WaitExecutor) Type() models.NodeType {
	return models.NodeTypeWait
}

func (e *WaitExecutor) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"waitMinutes": map[string]any{"type": "number", "minimum": 0},
		},
		"additionalProperties": true,
	}
}

func (e *WaitExecutor) Execute(ctx context.Context, node *models.WorkflowNode, _ *graph.Graph, execCtx *models.ExecutionContext) (*Result, error) {
	waitMinutes := node.ConfigInt("waitMinutes")
	if waitMinutes > 0 {
		e.logger.InfoContext(ctx, "Would wait before continuing (skipping for now)",
			"execution_id", execCtx.ExecutionID,
			"wait_minutes", waitMinutes,
		)
	}

	return &Result{}, nil
}

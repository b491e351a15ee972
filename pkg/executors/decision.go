package executors

import (
	"context"
	"log/slog"
	"strings"

	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
)

// Conditions a decision node can evaluate against the lead snapshot.
const (
	ConditionHasEmail = "has_email"
	ConditionHasPhone = "has_phone"
)

// DecisionExecutor picks exactly one outgoing edge. When the configured
// condition holds it prefers the edge whose label contains "yes"
// (case-insensitive); in every other case the first outgoing edge in listing
// order wins. A decision node without outgoing edges ends the path.
type DecisionExecutor struct {
	logger *slog.Logger
}

func NewDecisionExecutor(logger *slog.Logger) *DecisionExecutor {
	return &DecisionExecutor{logger: logger.With("module", "decision_executor")}
}

func (e *DecisionExecutor) Type() models.NodeType {
	return models.NodeTypeDecision
}

func (e *DecisionExecutor) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{"type": "string"},
		},
		"additionalProperties": true,
	}
}

func (e *DecisionExecutor) Execute(ctx context.Context, node *models.WorkflowNode, g *graph.Graph, execCtx *models.ExecutionContext) (*Result, error) {
	outgoing := g.OutgoingEdges(node.ID)
	if len(outgoing) == 0 {
		return &Result{}, nil
	}

	condition := node.ConfigString("condition")
	target := outgoing[0].TargetNodeID

	if e.conditionHolds(condition, execCtx.Lead) {
		if yes := findYesEdge(outgoing); yes != nil {
			target = yes.TargetNodeID
		}
	}

	e.logger.DebugContext(ctx, "Decision branch selected",
		"node_id", node.ID,
		"condition", condition,
		"next_node_id", target,
	)

	return &Result{NextNodeID: target}, nil
}

func (e *DecisionExecutor) conditionHolds(condition string, lead *models.Lead) bool {
	if lead == nil {
		return false
	}

	switch condition {
	case ConditionHasEmail:
		return lead.Email != ""
	case ConditionHasPhone:
		return lead.Phone != ""
	}

	return false
}

func findYesEdge(edges []*models.WorkflowEdge) *models.WorkflowEdge {
	for _, edge := range edges {
		if strings.Contains(strings.ToLower(edge.Label), "yes") {
			return edge
		}
	}

	return nil
}

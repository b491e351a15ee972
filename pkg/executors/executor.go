// Package executors implements one handler per workflow node type. Executors
// mutate the run's variable bag, talk to channel/AI collaborators, and record
// sent messages; any error aborts the current traversal path.
package executors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
)

// Result is the outcome of one node execution. NextNodeID is set only by
// decision executors; an empty value on a decision node ends the path.
type Result struct {
	NextNodeID string
}

// Executor handles one node type. ConfigSchema describes the node's expected
// config as a JSON schema; nil means no constraints.
type Executor interface {
	Type() models.NodeType
	ConfigSchema() map[string]any
	Execute(ctx context.Context, node *models.WorkflowNode, g *graph.Graph, execCtx *models.ExecutionContext) (*Result, error)
}

// Registry is the lookup table from node type to executor. Adding a node type
// means registering a new executor, not editing a conditional.
type Registry struct {
	executors map[models.NodeType]Executor
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		executors: make(map[models.NodeType]Executor),
		logger:    logger.With("module", "executor_registry"),
	}
}

func (r *Registry) Register(executor Executor) {
	r.executors[executor.Type()] = executor
}

func (r *Registry) Get(nodeType models.NodeType) (Executor, bool) {
	executor, ok := r.executors[nodeType]

	return executor, ok
}

// ValidateConfig checks a node's config against its executor's schema.
// Unknown node types pass: they execute as no-ops, so any config is inert.
func (r *Registry) ValidateConfig(node *models.WorkflowNode) error {
	executor, ok := r.executors[node.NodeType]
	if !ok {
		return nil
	}

	schema := executor.ConfigSchema()
	if schema == nil {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config for node %s: %w", node.ID, err)
	}

	if !result.Valid() {
		return fmt.Errorf("invalid config for node %s: %s", node.ID, result.Errors()[0].String())
	}

	return nil
}

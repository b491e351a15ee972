// Package engine runs workflow executions over their node graphs. It owns the
// traversal semantics: depth-first from the start node, one branch for
// decision nodes, fan-out over every outgoing edge otherwise, with a per-path
// cycle guard so shared downstream nodes still run once per arriving path.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/omnireach/omnireach/pkg/eventbus"
	"github.com/omnireach/omnireach/pkg/events"
	"github.com/omnireach/omnireach/pkg/executors"
	"github.com/omnireach/omnireach/pkg/graph"
	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/otelhelper"
	"github.com/omnireach/omnireach/pkg/persistence"
)

// ErrExecutionPaused is returned when Run is asked to process an execution
// that a user paused. The queue keeps the job parked; no state is touched.
var ErrExecutionPaused = errors.New("workflow is paused")

type Engine struct {
	persistence persistence.Persistence
	registry    *executors.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	workerID    string
	logger      *slog.Logger
}

type Option func(*Engine)

// WithEventPublisher enables lifecycle event publishing. Publishing is
// best-effort; a bus failure never fails the execution.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

func WithWorkerID(workerID string) Option {
	return func(e *Engine) {
		e.workerID = workerID
	}
}

func New(persist persistence.Persistence, registry *executors.Registry, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		persistence: persist,
		registry:    registry,
		logger:      logger.With("module", "engine"),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// frame is one unit of traversal work. Enter frames execute a node and push
// its successors; leave frames undo the path-visited mark once the subtree
// under the node has been fully walked.
type frame struct {
	nodeID string
	leave  bool
}

// Run executes one workflow execution to a terminal state. It is the queue
// worker's job handler: a returned error marks the execution failed and lets
// the queue apply its retry policy.
func (e *Engine) Run(ctx context.Context, executionID string) error {
	logger := e.logger.With("execution_id", executionID)

	execution, err := e.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	logger = logger.With("workflow_id", execution.WorkflowID, "lead_id", execution.LeadID)

	if execution.Status == models.ExecutionStatusPaused {
		logger.InfoContext(ctx, "Execution is paused, skipping")

		return ErrExecutionPaused
	}

	if execution.Status == models.ExecutionStatusCompleted {
		logger.WarnContext(ctx, "Execution already completed, nothing to do")

		return nil
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.execution",
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.WorkflowIDKey, execution.WorkflowID),
			attribute.String(otelhelper.LeadIDKey, execution.LeadID),
			attribute.String(otelhelper.WorkerIDKey, e.workerID),
		)
		defer span.End()
	}

	workflow, err := e.persistence.Workflows().GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return e.fail(ctx, logger, execution, fmt.Errorf("failed to fetch workflow %s: %w", execution.WorkflowID, err), 0)
	}

	lead, err := e.persistence.Leads().GetByID(ctx, execution.LeadID)
	if err != nil {
		return e.fail(ctx, logger, execution, fmt.Errorf("failed to fetch lead %s: %w", execution.LeadID, err), 0)
	}

	persona := e.loadPersona(ctx, logger, workflow)

	g, err := e.loadGraph(ctx, workflow.ID)
	if err != nil {
		return e.fail(ctx, logger, execution, err, 0)
	}

	startNode, err := g.FindStartNode()
	if err != nil {
		return e.fail(ctx, logger, execution, errors.New("no start node found"), 0)
	}

	execution.Status = models.ExecutionStatusRunning
	execution.Error = ""

	err = e.persistence.Executions().Update(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to mark execution running: %w", err)
	}

	execCtx := models.NewExecutionContext(execution, lead, persona)

	started := time.Now()

	logger.InfoContext(ctx, "Starting workflow execution",
		"workflow_name", workflow.Name,
		"start_node_id", startNode.ID,
	)

	e.publish(ctx, logger, workflow.ID, events.ExecutionStarted{
		BaseEvent:    e.baseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID:  execution.ID,
		LeadID:       execution.LeadID,
		WorkflowName: workflow.Name,
		StartNodeID:  startNode.ID,
	})

	nodesExecuted, err := e.traverse(ctx, logger, g, startNode.ID, execution, execCtx)
	if err != nil {
		return e.fail(ctx, logger, execution, err, nodesExecuted)
	}

	now := time.Now()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now

	err = e.persistence.Executions().Update(ctx, execution)
	if err != nil {
		return fmt.Errorf("failed to mark execution completed: %w", err)
	}

	workflow.ExecutionCount++
	workflow.SuccessCount++

	err = e.persistence.Workflows().Save(ctx, workflow)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to update workflow stats", "error", err)
	}

	e.publish(ctx, logger, workflow.ID, events.ExecutionCompleted{
		BaseEvent:     e.baseEvent(events.ExecutionCompletedEvent, workflow.ID),
		ExecutionID:   execution.ID,
		LeadID:        execution.LeadID,
		DurationMs:    time.Since(started).Milliseconds(),
		NodesExecuted: nodesExecuted,
	})

	logger.InfoContext(ctx, "Workflow execution completed",
		"nodes_executed", nodesExecuted,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return nil
}

// traverse walks the graph depth-first from startNodeID. The visited set
// tracks only the current path: a node's mark is removed when its subtree
// finishes, so diamonds execute shared nodes once per arriving path while
// cycles terminate.
func (e *Engine) traverse(ctx context.Context, logger *slog.Logger, g *graph.Graph, startNodeID string, execution *models.WorkflowExecution, execCtx *models.ExecutionContext) (int, error) {
	visited := make(map[string]bool)
	stack := []frame{{nodeID: startNodeID}}
	nodesExecuted := 0

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current.leave {
			delete(visited, current.nodeID)

			continue
		}

		if visited[current.nodeID] {
			logger.WarnContext(ctx, "Cycle detected, stopping this path", "node_id", current.nodeID)

			continue
		}

		node, ok := g.NodeByID(current.nodeID)
		if !ok {
			logger.WarnContext(ctx, "Edge points to unknown node, skipping", "node_id", current.nodeID)

			continue
		}

		visited[current.nodeID] = true
		stack = append(stack, frame{nodeID: current.nodeID, leave: true})

		// Checkpoint before the node runs so a crash is observable at
		// the node that was in flight.
		execution.CurrentNodeID = node.ID

		err := e.persistence.Executions().Update(ctx, execution)
		if err != nil {
			return nodesExecuted, fmt.Errorf("failed to checkpoint execution at node %s: %w", node.ID, err)
		}

		result, err := e.executeNode(ctx, logger, node, g, execCtx)
		if err != nil {
			return nodesExecuted, fmt.Errorf("node %s failed: %w", node.ID, err)
		}

		nodesExecuted++

		if result.NextNodeID != "" {
			stack = append(stack, frame{nodeID: result.NextNodeID})

			continue
		}

		// Fan out over every outgoing edge, pushed in reverse so the
		// first edge in listing order is walked first.
		outgoing := g.OutgoingEdges(node.ID)
		for i := len(outgoing) - 1; i >= 0; i-- {
			stack = append(stack, frame{nodeID: outgoing[i].TargetNodeID})
		}
	}

	return nodesExecuted, nil
}

func (e *Engine) executeNode(ctx context.Context, logger *slog.Logger, node *models.WorkflowNode, g *graph.Graph, execCtx *models.ExecutionContext) (*executors.Result, error) {
	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
			attribute.String(otelhelper.NodeIDKey, node.ID),
			attribute.String(otelhelper.NodeTypeKey, string(node.NodeType)),
		)
		defer span.End()
	}

	executor, ok := e.registry.Get(node.NodeType)
	if !ok {
		logger.WarnContext(ctx, "Unknown node type, continuing to successors",
			"node_id", node.ID,
			"node_type", node.NodeType,
		)

		return &executors.Result{}, nil
	}

	logger.InfoContext(ctx, "Executing node",
		"node_id", node.ID,
		"node_type", node.NodeType,
		"label", node.Label,
	)

	result, err := executor.Execute(ctx, node, g, execCtx)
	if err != nil {
		return nil, err
	}

	if result == nil {
		result = &executors.Result{}
	}

	return result, nil
}

// fail records the terminal failed state and reports the original error back
// to the queue for retry handling. Workflow counters are untouched: they
// advance only when a run completes, so retries cannot skew the success ratio.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution, cause error, nodesExecuted int) error {
	logger.ErrorContext(ctx, "Workflow execution failed",
		"error", cause,
		"current_node_id", execution.CurrentNodeID,
	)

	if e.tracer != nil {
		otelhelper.SetError(trace.SpanFromContext(ctx), cause,
			attribute.String(otelhelper.ExecutionIDKey, execution.ID),
			attribute.String(otelhelper.NodeIDKey, execution.CurrentNodeID),
		)
	}

	now := time.Now()
	execution.Status = models.ExecutionStatusFailed
	execution.Error = cause.Error()
	execution.CompletedAt = &now

	err := e.persistence.Executions().Update(ctx, execution)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to persist failed execution state", "error", err)
	}

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:     e.baseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID:   execution.ID,
		LeadID:        execution.LeadID,
		NodeID:        execution.CurrentNodeID,
		Error:         cause.Error(),
		NodesExecuted: nodesExecuted,
	})

	return cause
}

// loadPersona is tolerant: a workflow without a persona, or whose persona row
// is gone, still runs. Only the ai node cares, and it skips itself.
func (e *Engine) loadPersona(ctx context.Context, logger *slog.Logger, workflow *models.Workflow) *models.Persona {
	if workflow.PersonaID == "" {
		return nil
	}

	persona, err := e.persistence.Personas().GetByID(ctx, workflow.PersonaID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load workflow persona",
			"persona_id", workflow.PersonaID,
			"error", err,
		)

		return nil
	}

	return persona
}

func (e *Engine) loadGraph(ctx context.Context, workflowID string) (*graph.Graph, error) {
	nodes, err := e.persistence.Workflows().NodesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow nodes: %w", err)
	}

	edges, err := e.persistence.Workflows().EdgesByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow edges: %w", err)
	}

	g := graph.New(nodes, edges)

	err = g.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid workflow graph: %w", err)
	}

	for _, node := range g.Nodes() {
		err = e.registry.ValidateConfig(node)
		if err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (e *Engine) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, workflowID)
	base.WorkerID = e.workerID

	return base
}

// publish fans lifecycle events onto the bus keyed by workflow id so every
// event for one workflow lands on the same partition.
func (e *Engine) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
)

// WorkflowRepository handles workflow, node and edge database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , status
		  , persona_id
		  , execution_count
		  , success_count
		  , created_at
		  , updated_at
		FROM workflows
		WHERE id = $1
	`

	var (
		workflow  models.Workflow
		personaID sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&personaID,
		&workflow.ExecutionCount,
		&workflow.SuccessCount,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, persistence.NewStorageError("GetByID", "workflow", id, err)
	}

	workflow.PersonaID = personaID.String

	return &workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	query := `
		INSERT INTO workflows (id, name, description, status, persona_id, execution_count, success_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			persona_id = EXCLUDED.persona_id,
			execution_count = EXCLUDED.execution_count,
			success_count = EXCLUDED.success_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		nullString(workflow.PersonaID),
		workflow.ExecutionCount,
		workflow.SuccessCount,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) NodesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , node_type
		  , label
		  , position_x
		  , position_y
		  , config
		  , created_at
		FROM workflow_nodes
		WHERE workflow_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewStorageError("NodesByWorkflow", "workflow", workflowID, err)
	}
	defer r.closeRows(ctx, rows)

	nodes := make([]*models.WorkflowNode, 0)

	for rows.Next() {
		var (
			node      models.WorkflowNode
			label     sql.NullString
			configRaw []byte
		)

		err = rows.Scan(
			&node.ID,
			&node.WorkflowID,
			&node.NodeType,
			&label,
			&node.PositionX,
			&node.PositionY,
			&configRaw,
			&node.CreatedAt,
		)
		if err != nil {
			return nil, persistence.NewStorageError("NodesByWorkflow", "workflow", workflowID, err)
		}

		node.Label = label.String

		if len(configRaw) > 0 {
			err = json.Unmarshal(configRaw, &node.Config)
			if err != nil {
				return nil, fmt.Errorf("failed to decode node config: %w", err)
			}
		}

		nodes = append(nodes, &node)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStorageError("NodesByWorkflow", "workflow", workflowID, err)
	}

	return nodes, nil
}

func (r *WorkflowRepository) EdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , source_node_id
		  , target_node_id
		  , label
		  , created_at
		FROM workflow_edges
		WHERE workflow_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewStorageError("EdgesByWorkflow", "workflow", workflowID, err)
	}
	defer r.closeRows(ctx, rows)

	edges := make([]*models.WorkflowEdge, 0)

	for rows.Next() {
		var (
			edge  models.WorkflowEdge
			label sql.NullString
		)

		err = rows.Scan(
			&edge.ID,
			&edge.WorkflowID,
			&edge.SourceNodeID,
			&edge.TargetNodeID,
			&label,
			&edge.CreatedAt,
		)
		if err != nil {
			return nil, persistence.NewStorageError("EdgesByWorkflow", "workflow", workflowID, err)
		}

		edge.Label = label.String
		edges = append(edges, &edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStorageError("EdgesByWorkflow", "workflow", workflowID, err)
	}

	return edges, nil
}

func (r *WorkflowRepository) SaveNode(ctx context.Context, node *models.WorkflowNode) error {
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}

	configRaw, err := json.Marshal(node.Config)
	if err != nil {
		return fmt.Errorf("failed to encode node config: %w", err)
	}

	query := `
		INSERT INTO workflow_nodes (workflow_id, id, node_type, label, position_x, position_y, config, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workflow_id, id) DO UPDATE SET
			node_type = EXCLUDED.node_type,
			label = EXCLUDED.label,
			position_x = EXCLUDED.position_x,
			position_y = EXCLUDED.position_y,
			config = EXCLUDED.config
	`

	_, err = r.db.ExecContext(ctx, query,
		node.WorkflowID,
		node.ID,
		node.NodeType,
		nullString(node.Label),
		node.PositionX,
		node.PositionY,
		configRaw,
		node.CreatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("SaveNode", "node", node.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) SaveEdge(ctx context.Context, edge *models.WorkflowEdge) error {
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO workflow_edges (workflow_id, id, source_node_id, target_node_id, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (workflow_id, id) DO UPDATE SET
			source_node_id = EXCLUDED.source_node_id,
			target_node_id = EXCLUDED.target_node_id,
			label = EXCLUDED.label
	`

	_, err := r.db.ExecContext(ctx, query,
		edge.WorkflowID,
		edge.ID,
		edge.SourceNodeID,
		edge.TargetNodeID,
		nullString(edge.Label),
		edge.CreatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("SaveEdge", "edge", edge.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

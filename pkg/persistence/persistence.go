// Package persistence provides the data storage abstraction used by the
// workflow engine. The engine only needs read/write access by id plus
// list-by-parent queries; everything richer lives outside this core.
package persistence

import (
	"context"

	"github.com/omnireach/omnireach/pkg/models"
)

// Persistence aggregates the per-entity repositories behind one handle.
type Persistence interface {
	Workflows() WorkflowRepository
	Leads() LeadRepository
	Personas() PersonaRepository
	Executions() ExecutionRepository
	Messages() MessageRepository
	IntegrationSettings() IntegrationSettingRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions together with their graphs.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error

	NodesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error)
	EdgesByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error)
	SaveNode(ctx context.Context, node *models.WorkflowNode) error
	SaveEdge(ctx context.Context, edge *models.WorkflowEdge) error
}

type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lead, error)
	Save(ctx context.Context, lead *models.Lead) error
}

type PersonaRepository interface {
	GetByID(ctx context.Context, id string) (*models.Persona, error)
	Save(ctx context.Context, persona *models.Persona) error
}

// ExecutionRepository stores the durable state of runs. The engine mutates
// rows with at-least-once Update semantics; rows are never deleted here.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	Update(ctx context.Context, execution *models.WorkflowExecution) error
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByExecution(ctx context.Context, executionID string) ([]*models.Message, error)
}

type IntegrationSettingRepository interface {
	GetByProvider(ctx context.Context, provider string) (*models.IntegrationSetting, error)
	Save(ctx context.Context, setting *models.IntegrationSetting) error
}

package file

import (
	"context"
	"errors"
	"io/fs"
	"sort"

	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
)

type LeadRepository struct {
	store store
}

func (r *LeadRepository) GetByID(_ context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := r.store.read(id, &lead); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrLeadNotFound
		}

		return nil, err
	}

	return &lead, nil
}

func (r *LeadRepository) Save(_ context.Context, lead *models.Lead) error {
	return r.store.write(lead.ID, lead)
}

type PersonaRepository struct {
	store store
}

func (r *PersonaRepository) GetByID(_ context.Context, id string) (*models.Persona, error) {
	var persona models.Persona
	if err := r.store.read(id, &persona); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrPersonaNotFound
		}

		return nil, err
	}

	return &persona, nil
}

func (r *PersonaRepository) Save(_ context.Context, persona *models.Persona) error {
	return r.store.write(persona.ID, persona)
}

type ExecutionRepository struct {
	store store
}

func (r *ExecutionRepository) Create(_ context.Context, execution *models.WorkflowExecution) error {
	return r.store.write(execution.ID, execution)
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution
	if err := r.store.read(id, &execution); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, err
	}

	return &execution, nil
}

func (r *ExecutionRepository) Update(_ context.Context, execution *models.WorkflowExecution) error {
	return r.store.write(execution.ID, execution)
}

// ListByWorkflow returns all executions for a workflow, most recent first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, err
	}

	executions := make([]*models.WorkflowExecution, 0)

	for _, id := range ids {
		execution, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if execution.WorkflowID == workflowID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

type MessageRepository struct {
	store store
}

func (r *MessageRepository) Create(_ context.Context, message *models.Message) error {
	return r.store.write(message.ID, message)
}

func (r *MessageRepository) ListByExecution(_ context.Context, executionID string) ([]*models.Message, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, err
	}

	messages := make([]*models.Message, 0)

	for _, id := range ids {
		var message models.Message
		if err := r.store.read(id, &message); err != nil {
			return nil, err
		}

		if message.ExecutionID == executionID {
			messages = append(messages, &message)
		}
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	return messages, nil
}

type IntegrationSettingRepository struct {
	store store
}

// GetByProvider looks a setting up by provider name; the provider is the
// natural key, so it doubles as the file name.
func (r *IntegrationSettingRepository) GetByProvider(_ context.Context, provider string) (*models.IntegrationSetting, error) {
	var setting models.IntegrationSetting
	if err := r.store.read(provider, &setting); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrSettingNotFound
		}

		return nil, err
	}

	return &setting, nil
}

func (r *IntegrationSettingRepository) Save(_ context.Context, setting *models.IntegrationSetting) error {
	return r.store.write(setting.Provider, setting)
}

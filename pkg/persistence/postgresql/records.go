package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
)

type LeadRepository struct {
	db *sql.DB
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `
		SELECT
			id
		  , name
		  , email
		  , company
		  , phone
		  , status
		  , channel
		  , score
		  , custom_fields
		  , last_contacted_at
		  , created_at
		  , updated_at
		FROM leads
		WHERE id = $1
	`

	var (
		lead            models.Lead
		email           sql.NullString
		company         sql.NullString
		phone           sql.NullString
		channel         sql.NullString
		customFieldsRaw []byte
		lastContactedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.Name,
		&email,
		&company,
		&phone,
		&lead.Status,
		&channel,
		&lead.Score,
		&customFieldsRaw,
		&lastContactedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrLeadNotFound
	}

	if err != nil {
		return nil, persistence.NewStorageError("GetByID", "lead", id, err)
	}

	lead.Email = email.String
	lead.Company = company.String
	lead.Phone = phone.String
	lead.Channel = channel.String

	if len(customFieldsRaw) > 0 {
		err = json.Unmarshal(customFieldsRaw, &lead.CustomFields)
		if err != nil {
			return nil, fmt.Errorf("failed to decode lead custom fields: %w", err)
		}
	}

	if lastContactedAt.Valid {
		lead.LastContactedAt = &lastContactedAt.Time
	}

	return &lead, nil
}

func (r *LeadRepository) Save(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()

	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}

	lead.UpdatedAt = now

	customFieldsRaw, err := json.Marshal(lead.CustomFields)
	if err != nil {
		return fmt.Errorf("failed to encode lead custom fields: %w", err)
	}

	query := `
		INSERT INTO leads (id, name, email, company, phone, status, channel, score, custom_fields, last_contacted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			company = EXCLUDED.company,
			phone = EXCLUDED.phone,
			status = EXCLUDED.status,
			channel = EXCLUDED.channel,
			score = EXCLUDED.score,
			custom_fields = EXCLUDED.custom_fields,
			last_contacted_at = EXCLUDED.last_contacted_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Company),
		nullString(lead.Phone),
		lead.Status,
		nullString(lead.Channel),
		lead.Score,
		customFieldsRaw,
		lead.LastContactedAt,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Save", "lead", lead.ID, err)
	}

	return nil
}

type PersonaRepository struct {
	db *sql.DB
}

func (r *PersonaRepository) GetByID(ctx context.Context, id string) (*models.Persona, error) {
	query := `
		SELECT
			id
		  , name
		  , tone
		  , industry
		  , description
		  , system_prompt
		  , message_count
		  , created_at
		  , updated_at
		FROM personas
		WHERE id = $1
	`

	var (
		persona     models.Persona
		tone        sql.NullString
		industry    sql.NullString
		description sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&persona.ID,
		&persona.Name,
		&tone,
		&industry,
		&description,
		&persona.SystemPrompt,
		&persona.MessageCount,
		&persona.CreatedAt,
		&persona.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrPersonaNotFound
	}

	if err != nil {
		return nil, persistence.NewStorageError("GetByID", "persona", id, err)
	}

	persona.Tone = tone.String
	persona.Industry = industry.String
	persona.Description = description.String

	return &persona, nil
}

func (r *PersonaRepository) Save(ctx context.Context, persona *models.Persona) error {
	now := time.Now().UTC()

	if persona.CreatedAt.IsZero() {
		persona.CreatedAt = now
	}

	persona.UpdatedAt = now

	query := `
		INSERT INTO personas (id, name, tone, industry, description, system_prompt, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tone = EXCLUDED.tone,
			industry = EXCLUDED.industry,
			description = EXCLUDED.description,
			system_prompt = EXCLUDED.system_prompt,
			message_count = EXCLUDED.message_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		persona.ID,
		persona.Name,
		nullString(persona.Tone),
		nullString(persona.Industry),
		nullString(persona.Description),
		persona.SystemPrompt,
		persona.MessageCount,
		persona.CreatedAt,
		persona.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Save", "persona", persona.ID, err)
	}

	return nil
}

type ExecutionRepository struct {
	db *sql.DB
}

func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	if execution.StartedAt.IsZero() {
		execution.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO workflow_executions (id, workflow_id, lead_id, status, current_node_id, started_at, completed_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.LeadID,
		execution.Status,
		nullString(execution.CurrentNodeID),
		execution.StartedAt,
		execution.CompletedAt,
		nullString(execution.Error),
	)
	if err != nil {
		return persistence.NewStorageError("Create", "execution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , lead_id
		  , status
		  , current_node_id
		  , started_at
		  , completed_at
		  , error
		FROM workflow_executions
		WHERE id = $1
	`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, persistence.NewStorageError("GetByID", "execution", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	query := `
		UPDATE workflow_executions SET
			status = $2,
			current_node_id = $3,
			completed_at = $4,
			error = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		nullString(execution.CurrentNodeID),
		execution.CompletedAt,
		nullString(execution.Error),
	)
	if err != nil {
		return persistence.NewStorageError("Update", "execution", execution.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , lead_id
		  , status
		  , current_node_id
		  , started_at
		  , completed_at
		  , error
		FROM workflow_executions
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, persistence.NewStorageError("ListByWorkflow", "execution", workflowID, err)
	}

	defer func() { _ = rows.Close() }()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, persistence.NewStorageError("ListByWorkflow", "execution", workflowID, err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStorageError("ListByWorkflow", "execution", workflowID, err)
	}

	return executions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution     models.WorkflowExecution
		currentNodeID sql.NullString
		completedAt   sql.NullTime
		errorText     sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.LeadID,
		&execution.Status,
		&currentNodeID,
		&execution.StartedAt,
		&completedAt,
		&errorText,
	)
	if err != nil {
		return nil, err
	}

	execution.CurrentNodeID = currentNodeID.String
	execution.Error = errorText.String

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	return &execution, nil
}

type MessageRepository struct {
	db *sql.DB
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	metadataRaw, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode message metadata: %w", err)
	}

	query := `
		INSERT INTO messages (id, execution_id, lead_id, persona_id, channel, content, status, metadata, sent_at, delivered_at, opened_at, clicked_at, replied_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		message.ID,
		message.ExecutionID,
		message.LeadID,
		nullString(message.PersonaID),
		message.Channel,
		message.Content,
		message.Status,
		metadataRaw,
		message.SentAt,
		message.DeliveredAt,
		message.OpenedAt,
		message.ClickedAt,
		message.RepliedAt,
		message.CreatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Create", "message", message.ID, err)
	}

	return nil
}

func (r *MessageRepository) ListByExecution(ctx context.Context, executionID string) ([]*models.Message, error) {
	query := `
		SELECT
			id
		  , execution_id
		  , lead_id
		  , persona_id
		  , channel
		  , content
		  , status
		  , metadata
		  , sent_at
		  , delivered_at
		  , opened_at
		  , clicked_at
		  , replied_at
		  , created_at
		FROM messages
		WHERE execution_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, executionID)
	if err != nil {
		return nil, persistence.NewStorageError("ListByExecution", "message", executionID, err)
	}

	defer func() { _ = rows.Close() }()

	messages := make([]*models.Message, 0)

	for rows.Next() {
		var (
			message     models.Message
			personaID   sql.NullString
			content     sql.NullString
			metadataRaw []byte
			sentAt      sql.NullTime
			deliveredAt sql.NullTime
			openedAt    sql.NullTime
			clickedAt   sql.NullTime
			repliedAt   sql.NullTime
		)

		err = rows.Scan(
			&message.ID,
			&message.ExecutionID,
			&message.LeadID,
			&personaID,
			&message.Channel,
			&content,
			&message.Status,
			&metadataRaw,
			&sentAt,
			&deliveredAt,
			&openedAt,
			&clickedAt,
			&repliedAt,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, persistence.NewStorageError("ListByExecution", "message", executionID, err)
		}

		message.PersonaID = personaID.String
		message.Content = content.String

		if len(metadataRaw) > 0 {
			err = json.Unmarshal(metadataRaw, &message.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to decode message metadata: %w", err)
			}
		}

		for target, source := range map[**time.Time]sql.NullTime{
			&message.SentAt:      sentAt,
			&message.DeliveredAt: deliveredAt,
			&message.OpenedAt:    openedAt,
			&message.ClickedAt:   clickedAt,
			&message.RepliedAt:   repliedAt,
		} {
			if source.Valid {
				t := source.Time
				*target = &t
			}
		}

		messages = append(messages, &message)
	}

	err = rows.Err()
	if err != nil {
		return nil, persistence.NewStorageError("ListByExecution", "message", executionID, err)
	}

	return messages, nil
}

type IntegrationSettingRepository struct {
	db *sql.DB
}

func (r *IntegrationSettingRepository) GetByProvider(ctx context.Context, provider string) (*models.IntegrationSetting, error) {
	query := `
		SELECT
			id
		  , provider
		  , config
		  , is_active
		  , created_at
		  , updated_at
		FROM integration_settings
		WHERE provider = $1
	`

	var (
		setting   models.IntegrationSetting
		configRaw []byte
	)

	err := r.db.QueryRowContext(ctx, query, provider).Scan(
		&setting.ID,
		&setting.Provider,
		&configRaw,
		&setting.IsActive,
		&setting.CreatedAt,
		&setting.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrSettingNotFound
	}

	if err != nil {
		return nil, persistence.NewStorageError("GetByProvider", "integration_setting", provider, err)
	}

	if len(configRaw) > 0 {
		err = json.Unmarshal(configRaw, &setting.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to decode integration setting config: %w", err)
		}
	}

	return &setting, nil
}

func (r *IntegrationSettingRepository) Save(ctx context.Context, setting *models.IntegrationSetting) error {
	now := time.Now().UTC()

	if setting.CreatedAt.IsZero() {
		setting.CreatedAt = now
	}

	setting.UpdatedAt = now

	configRaw, err := json.Marshal(setting.Config)
	if err != nil {
		return fmt.Errorf("failed to encode integration setting config: %w", err)
	}

	query := `
		INSERT INTO integration_settings (id, provider, config, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider) DO UPDATE SET
			config = EXCLUDED.config,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		setting.ID,
		setting.Provider,
		configRaw,
		setting.IsActive,
		setting.CreatedAt,
		setting.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStorageError("Save", "integration_setting", setting.Provider, err)
	}

	return nil
}

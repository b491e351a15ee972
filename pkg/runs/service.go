// Package runs is the narrow outward surface for managing workflow
// executions: start, pause, resume and status queries. It owns the execution
// row lifecycle around the queue; the engine owns everything inside a run.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omnireach/omnireach/pkg/eventbus"
	"github.com/omnireach/omnireach/pkg/events"
	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence"
	"github.com/omnireach/omnireach/pkg/scheduler"
)

type Service struct {
	persistence persistence.Persistence
	queue       scheduler.Queue
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewService(persist persistence.Persistence, queue scheduler.Queue, publisher eventbus.EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		persistence: persist,
		queue:       queue,
		publisher:   publisher,
		logger:      logger.With("module", "runs"),
	}
}

// Status combines the queue's view of a job with the persisted execution row.
// QueueState is empty when the queue no longer knows the job.
type Status struct {
	Execution  *models.WorkflowExecution `json:"execution"`
	QueueState scheduler.JobState        `json:"queue_state,omitempty"`
	Attempts   int                       `json:"attempts,omitempty"`
	LastError  string                    `json:"last_error,omitempty"`
}

// Start creates a pending execution for the workflow and lead and enqueues
// it. The returned execution id doubles as the queue job id.
func (s *Service) Start(ctx context.Context, workflowID, leadID string) (*models.WorkflowExecution, error) {
	_, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	_, err = s.persistence.Leads().GetByID(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead %s: %w", leadID, err)
	}

	execution := &models.WorkflowExecution{
		ID:         "exec-" + uuid.New().String()[:8],
		WorkflowID: workflowID,
		LeadID:     leadID,
		Status:     models.ExecutionStatusPending,
		StartedAt:  time.Now(),
	}

	err = s.persistence.Executions().Create(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	_, err = s.queue.Enqueue(ctx, execution.ID, workflowID, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue execution: %w", err)
	}

	s.logger.InfoContext(ctx, "Execution enqueued",
		"execution_id", execution.ID,
		"workflow_id", workflowID,
		"lead_id", leadID,
	)

	return execution, nil
}

// Pause parks a queued or delayed run. Terminal executions are immutable:
// pausing one returns false without touching any state.
func (s *Service) Pause(ctx context.Context, executionID string) (bool, error) {
	execution, err := s.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	if execution.Status.IsTerminal() {
		return false, nil
	}

	paused, err := s.queue.Pause(ctx, executionID)
	if err != nil {
		return false, fmt.Errorf("failed to pause job: %w", err)
	}

	if !paused {
		return false, nil
	}

	execution.Status = models.ExecutionStatusPaused

	err = s.persistence.Executions().Update(ctx, execution)
	if err != nil {
		return false, fmt.Errorf("failed to persist paused status: %w", err)
	}

	s.publish(ctx, execution.WorkflowID, events.ExecutionPaused{
		BaseEvent:    events.NewBaseEvent(events.ExecutionPausedEvent, execution.WorkflowID),
		ExecutionID:  executionID,
		PausedAtNode: execution.CurrentNodeID,
	})

	s.logger.InfoContext(ctx, "Execution paused", "execution_id", executionID)

	return true, nil
}

// Resume makes a paused or failed run eligible again. Completed executions
// stay completed; resuming one returns false.
func (s *Service) Resume(ctx context.Context, executionID string) (bool, error) {
	execution, err := s.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		if persistence.IsNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	if execution.Status == models.ExecutionStatusCompleted {
		return false, nil
	}

	resumed, err := s.queue.Resume(ctx, executionID)
	if err != nil {
		return false, fmt.Errorf("failed to resume job: %w", err)
	}

	if !resumed {
		return false, nil
	}

	execution.Status = models.ExecutionStatusRunning
	execution.Error = ""
	execution.CompletedAt = nil

	err = s.persistence.Executions().Update(ctx, execution)
	if err != nil {
		return false, fmt.Errorf("failed to persist resumed status: %w", err)
	}

	s.publish(ctx, execution.WorkflowID, events.ExecutionResumed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, execution.WorkflowID),
		ExecutionID: executionID,
	})

	s.logger.InfoContext(ctx, "Execution resumed", "execution_id", executionID)

	return true, nil
}

// Status reports the queue state when the job is still known to the queue,
// falling back to the persisted execution row alone after the queue record
// has been garbage collected.
func (s *Service) Status(ctx context.Context, executionID string) (*Status, error) {
	execution, err := s.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch execution %s: %w", executionID, err)
	}

	status := &Status{Execution: execution}

	jobStatus, err := s.queue.Status(ctx, executionID)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			return status, nil
		}

		return nil, fmt.Errorf("failed to fetch job status: %w", err)
	}

	status.QueueState = jobStatus.State
	status.Attempts = jobStatus.Attempts
	status.LastError = jobStatus.LastError

	return status, nil
}

// ListByWorkflow returns every persisted execution for a workflow,
// most-recent-first.
func (s *Service) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	return s.persistence.Executions().ListByWorkflow(ctx, workflowID)
}

func (s *Service) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

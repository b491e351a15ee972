package runs

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/omnireach/omnireach/pkg/models"
	"github.com/omnireach/omnireach/pkg/persistence/file"
	"github.com/omnireach/omnireach/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *file.Persistence, *scheduler.MemoryQueue) {
	t.Helper()

	ctx := context.Background()
	persist := file.NewPersistence(t.TempDir())
	queue := scheduler.NewMemoryQueue()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	require.NoError(t, persist.Workflows().Save(ctx, &models.Workflow{
		ID:     "wf-1",
		Name:   "Welcome sequence",
		Status: models.WorkflowStatusActive,
	}))
	require.NoError(t, persist.Leads().Save(ctx, &models.Lead{
		ID:    "lead-1",
		Name:  "Ada",
		Email: "ada@babbage.io",
	}))

	return NewService(persist, queue, nil, logger), persist, queue
}

func TestService_StartCreatesAndEnqueues(t *testing.T) {
	ctx := context.Background()
	service, persist, queue := newService(t)

	execution, err := service.Start(ctx, "wf-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPending, execution.Status)
	assert.Contains(t, execution.ID, "exec-")

	stored, err := persist.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", stored.WorkflowID)
	assert.Equal(t, "lead-1", stored.LeadID)

	status, err := queue.Status(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateWaiting, status.State)
}

func TestService_StartUnknownWorkflowFails(t *testing.T) {
	service, _, _ := newService(t)

	_, err := service.Start(context.Background(), "ghost", "lead-1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to fetch workflow")
}

func TestService_PauseAndResumeRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, persist, queue := newService(t)

	execution, err := service.Start(ctx, "wf-1", "lead-1")
	require.NoError(t, err)

	paused, err := service.Pause(ctx, execution.ID)
	require.NoError(t, err)
	assert.True(t, paused)

	stored, err := persist.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusPaused, stored.Status)

	jobStatus, err := queue.Status(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateDelayed, jobStatus.State)

	resumed, err := service.Resume(ctx, execution.ID)
	require.NoError(t, err)
	assert.True(t, resumed)

	stored, err = persist.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusRunning, stored.Status)

	jobStatus, err = queue.Status(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateWaiting, jobStatus.State)
}

func TestService_TerminalExecutionCannotBePausedOrResumed(t *testing.T) {
	ctx := context.Background()
	service, persist, _ := newService(t)

	execution, err := service.Start(ctx, "wf-1", "lead-1")
	require.NoError(t, err)

	now := time.Now()
	execution.Status = models.ExecutionStatusCompleted
	execution.CompletedAt = &now
	require.NoError(t, persist.Executions().Update(ctx, execution))

	paused, err := service.Pause(ctx, execution.ID)
	require.NoError(t, err)
	assert.False(t, paused)

	resumed, err := service.Resume(ctx, execution.ID)
	require.NoError(t, err)
	assert.False(t, resumed)

	stored, err := persist.Executions().GetByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, stored.Status)
}

func TestService_PauseUnknownExecutionReturnsFalse(t *testing.T) {
	service, _, _ := newService(t)

	paused, err := service.Pause(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestService_StatusFallsBackToPersistedExecution(t *testing.T) {
	ctx := context.Background()
	service, persist, _ := newService(t)

	// An execution the queue has never seen, e.g. after GC.
	execution := &models.WorkflowExecution{
		ID:         "exec-old",
		WorkflowID: "wf-1",
		LeadID:     "lead-1",
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, persist.Executions().Create(ctx, execution))

	status, err := service.Status(ctx, "exec-old")
	require.NoError(t, err)
	assert.Empty(t, status.QueueState)
	assert.Equal(t, models.ExecutionStatusCompleted, status.Execution.Status)
}

func TestService_StatusReportsQueueState(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newService(t)

	execution, err := service.Start(ctx, "wf-1", "lead-1")
	require.NoError(t, err)

	status, err := service.Status(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, scheduler.StateWaiting, status.QueueState)
	assert.Equal(t, models.ExecutionStatusPending, status.Execution.Status)
}

func TestService_ListByWorkflow(t *testing.T) {
	ctx := context.Background()
	service, _, _ := newService(t)

	first, err := service.Start(ctx, "wf-1", "lead-1")
	require.NoError(t, err)

	second, err := service.Start(ctx, "wf-1", "lead-1")
	require.NoError(t, err)

	executions, err := service.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, executions, 2)

	ids := []string{executions[0].ID, executions[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/omnireach/omnireach/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueueAt(now *time.Time) *MemoryQueue {
	queue := NewMemoryQueue()
	queue.now = func() time.Time { return *now }

	return queue
}

func TestMemoryQueue_EnqueueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue()

	first, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	second, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)
	assert.Equal(t, first.ExecutionID, second.ExecutionID)

	job, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "exec-1", job.ExecutionID)
	assert.Equal(t, 1, job.Attempts)

	// The duplicate enqueue must not have produced a second runnable job.
	job, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestMemoryQueue_RetryWithExponentialBackoff(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	queue := testQueueAt(&now)

	_, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	job, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	retried, err := queue.Fail(ctx, job, errors.New("transient"))
	require.NoError(t, err)
	assert.True(t, retried)

	status, err := queue.Status(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StateDelayed, status.State)
	assert.Equal(t, "transient", status.LastError)

	// Not due yet.
	job, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)

	// First retry is due after the 2s base backoff.
	now = now.Add(2*time.Second + time.Millisecond)

	job, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 2, job.Attempts)

	retried, err = queue.Fail(ctx, job, errors.New("transient"))
	require.NoError(t, err)
	assert.True(t, retried)

	// Second retry backs off for 4s.
	now = now.Add(2 * time.Second)

	job, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)

	now = now.Add(2*time.Second + time.Millisecond)

	job, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 3, job.Attempts)

	// Third failure exhausts the attempt budget.
	retried, err = queue.Fail(ctx, job, errors.New("permanent"))
	require.NoError(t, err)
	assert.False(t, retried)

	status, err = queue.Status(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, 3, status.Attempts)
	assert.Equal(t, "permanent", status.LastError)
}

func TestMemoryQueue_PauseParksWaitingJob(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	queue := testQueueAt(&now)

	_, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	paused, err := queue.Pause(ctx, "exec-1")
	require.NoError(t, err)
	assert.True(t, paused)

	job, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Nil(t, job, "a paused job must not be picked up")

	resumed, err := queue.Resume(ctx, "exec-1")
	require.NoError(t, err)
	assert.True(t, resumed)

	job, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "exec-1", job.ExecutionID)
}

func TestMemoryQueue_PauseAndResumeOnTerminalJobReturnFalse(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue()

	_, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	job, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, queue.Complete(ctx, job))

	paused, err := queue.Pause(ctx, "exec-1")
	require.NoError(t, err)
	assert.False(t, paused)

	resumed, err := queue.Resume(ctx, "exec-1")
	require.NoError(t, err)
	assert.False(t, resumed)

	status, err := queue.Status(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
}

func TestMemoryQueue_PauseUnknownJobReturnsFalse(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue()

	paused, err := queue.Pause(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, paused)

	_, err = queue.Status(ctx, "ghost")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryQueue_ResumeFailedJobResetsAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	queue := testQueueAt(&now)

	_, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	for i := 0; i < MaxAttempts; i++ {
		job, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		require.NotNil(t, job)

		_, err = queue.Fail(ctx, job, errors.New("boom"))
		require.NoError(t, err)

		now = now.Add(time.Minute)
	}

	status, err := queue.Status(ctx, "exec-1")
	require.NoError(t, err)
	require.Equal(t, StateFailed, status.State)

	resumed, err := queue.Resume(ctx, "exec-1")
	require.NoError(t, err)
	assert.True(t, resumed)

	job, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.Attempts, "a resumed job starts a fresh attempt budget")
}

type fakeRunner struct {
	mu   sync.Mutex
	runs map[string]int
	errs map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{runs: make(map[string]int), errs: make(map[string]error)}
}

func (r *fakeRunner) Run(_ context.Context, executionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[executionID]++

	return r.errs[executionID]
}

func (r *fakeRunner) runCount(executionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.runs[executionID]
}

func TestWorker_ProcessesJobsToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewMemoryQueue()
	runner := newFakeRunner()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	for _, id := range []string{"exec-1", "exec-2", "exec-3"} {
		_, err := queue.Enqueue(ctx, id, "wf-1", "lead-1")
		require.NoError(t, err)
	}

	worker := NewWorker(queue, runner, logger,
		WithConcurrency(2),
		WithPollInterval(5*time.Millisecond),
	)

	done := make(chan struct{})

	go func() {
		_ = worker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		for _, id := range []string{"exec-1", "exec-2", "exec-3"} {
			status, err := queue.Status(context.Background(), id)
			if err != nil || status.State != StateCompleted {
				return false
			}
		}

		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, 1, runner.runCount("exec-1"))
	assert.Equal(t, 1, runner.runCount("exec-2"))
	assert.Equal(t, 1, runner.runCount("exec-3"))
}

func TestWorker_PausedExecutionParksJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewMemoryQueue()
	runner := newFakeRunner()
	runner.errs["exec-1"] = engine.ErrExecutionPaused
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	worker := NewWorker(queue, runner, logger,
		WithConcurrency(1),
		WithPollInterval(5*time.Millisecond),
	)

	done := make(chan struct{})

	go func() {
		_ = worker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		status, err := queue.Status(context.Background(), "exec-1")

		return err == nil && status.State == StateDelayed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, 1, runner.runCount("exec-1"), "a parked job is not retried until resumed")
}

func TestWorker_FailedRunIsMarkedForRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewMemoryQueue()
	runner := newFakeRunner()
	runner.errs["exec-1"] = errors.New("node b failed")
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	_, err := queue.Enqueue(ctx, "exec-1", "wf-1", "lead-1")
	require.NoError(t, err)

	worker := NewWorker(queue, runner, logger,
		WithConcurrency(1),
		WithPollInterval(5*time.Millisecond),
	)

	done := make(chan struct{})

	go func() {
		_ = worker.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		status, err := queue.Status(context.Background(), "exec-1")

		return err == nil && status.State == StateDelayed && status.LastError == "node b failed"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

// Package scheduler decouples run requests from run execution. A durable
// queue admits one job per execution id, a bounded worker pool drains it, and
// failed runs are retried with exponential backoff.
package scheduler

import (
	"context"
	"errors"
	"time"
)

// JobState is the queue-level lifecycle of a job, independent of the
// execution row's own status.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateActive    JobState = "active"
	StateDelayed   JobState = "delayed"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Queue policy. Completed and failed job records are capacity bounds for the
// transport, not correctness-relevant state.
const (
	DefaultConcurrency = 5
	MaxAttempts        = 3
	BackoffBase        = 2 * time.Second
	CompletedRetention = 24 * time.Hour
	FailedRetention    = 7 * 24 * time.Hour

	// PauseDelay parks a paused job far enough in the future that it will
	// not run until explicitly resumed.
	PauseDelay = 24 * time.Hour
)

var ErrJobNotFound = errors.New("job not found")

// Job is one unit of queue work. Jobs are keyed by execution id, which makes
// enqueueing idempotent.
type Job struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	LeadID      string `json:"lead_id"`
	Attempts    int    `json:"attempts"`
}

// JobStatus is the observable queue state for one job.
type JobStatus struct {
	State     JobState `json:"state"`
	Attempts  int      `json:"attempts"`
	LastError string   `json:"last_error,omitempty"`
}

// Queue is the durable job transport. Implementations must keep Enqueue
// idempotent per execution id and must never resurrect completed jobs.
type Queue interface {
	// Enqueue admits a job keyed by execution id. A second enqueue for the
	// same id returns the existing job untouched.
	Enqueue(ctx context.Context, executionID, workflowID, leadID string) (*Job, error)

	// Dequeue pops the next ready job, promoting due delayed jobs first.
	// It returns nil with no error when nothing is ready.
	Dequeue(ctx context.Context) (*Job, error)

	Complete(ctx context.Context, job *Job) error

	// Fail records a failed attempt. Below MaxAttempts the job is delayed
	// for its backoff and true is returned; otherwise the job is marked
	// failed and false is returned.
	Fail(ctx context.Context, job *Job, cause error) (bool, error)

	// Pause parks a waiting, delayed or active job far in the future.
	// Returns false when the job is terminal or unknown.
	Pause(ctx context.Context, executionID string) (bool, error)

	// Resume makes a delayed or failed job immediately eligible again.
	// Resuming a failed job resets its attempt count. Returns false when
	// the job is completed, active, waiting or unknown.
	Resume(ctx context.Context, executionID string) (bool, error)

	Status(ctx context.Context, executionID string) (*JobStatus, error)

	Close() error
}

// backoffDelay grows exponentially from BackoffBase: 2s, 4s, 8s, ...
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	return BackoffBase << (attempt - 1)
}

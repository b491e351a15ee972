package scheduler

import (
	"context"
	"sync"
	"time"
)

type memoryJob struct {
	job        Job
	state      JobState
	notBefore  time.Time
	lastError  string
	finishedAt time.Time
}

// MemoryQueue is the in-process queue used for development and tests. It
// mirrors the redis queue's semantics without any external dependency.
type MemoryQueue struct {
	mu    sync.Mutex
	jobs  map[string]*memoryJob
	ready []string
	now   func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		jobs: make(map[string]*memoryJob),
		now:  time.Now,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, executionID, workflowID, leadID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.jobs[executionID]; ok {
		job := existing.job

		return &job, nil
	}

	entry := &memoryJob{
		job:   Job{ExecutionID: executionID, WorkflowID: workflowID, LeadID: leadID},
		state: StateWaiting,
	}
	q.jobs[executionID] = entry
	q.ready = append(q.ready, executionID)

	job := entry.job

	return &job, nil
}

func (q *MemoryQueue) Dequeue(_ context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	q.promoteDue(now)
	q.collectGarbage(now)

	for len(q.ready) > 0 {
		id := q.ready[0]
		q.ready = q.ready[1:]

		entry, ok := q.jobs[id]
		if !ok || entry.state != StateWaiting {
			continue
		}

		entry.state = StateActive
		entry.job.Attempts++

		job := entry.job

		return &job, nil
	}

	return nil, nil
}

func (q *MemoryQueue) Complete(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[job.ExecutionID]
	if !ok {
		return ErrJobNotFound
	}

	entry.state = StateCompleted
	entry.finishedAt = q.now()

	return nil
}

func (q *MemoryQueue) Fail(_ context.Context, job *Job, cause error) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[job.ExecutionID]
	if !ok {
		return false, ErrJobNotFound
	}

	entry.lastError = cause.Error()

	if entry.job.Attempts < MaxAttempts {
		entry.state = StateDelayed
		entry.notBefore = q.now().Add(backoffDelay(entry.job.Attempts))

		return true, nil
	}

	entry.state = StateFailed
	entry.finishedAt = q.now()

	return false, nil
}

func (q *MemoryQueue) Pause(_ context.Context, executionID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[executionID]
	if !ok {
		return false, nil
	}

	switch entry.state {
	case StateWaiting, StateDelayed, StateActive:
		entry.state = StateDelayed
		entry.notBefore = q.now().Add(PauseDelay)

		return true, nil
	default:
		return false, nil
	}
}

func (q *MemoryQueue) Resume(_ context.Context, executionID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[executionID]
	if !ok {
		return false, nil
	}

	switch entry.state {
	case StateDelayed:
		entry.state = StateWaiting
		entry.notBefore = time.Time{}
		q.ready = append(q.ready, executionID)

		return true, nil
	case StateFailed:
		entry.state = StateWaiting
		entry.job.Attempts = 0
		entry.lastError = ""
		q.ready = append(q.ready, executionID)

		return true, nil
	default:
		return false, nil
	}
}

func (q *MemoryQueue) Status(_ context.Context, executionID string) (*JobStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.jobs[executionID]
	if !ok {
		return nil, ErrJobNotFound
	}

	return &JobStatus{
		State:     entry.state,
		Attempts:  entry.job.Attempts,
		LastError: entry.lastError,
	}, nil
}

func (q *MemoryQueue) Close() error {
	return nil
}

// promoteDue moves delayed jobs whose hold expired back to the ready list.
// Callers hold the lock.
func (q *MemoryQueue) promoteDue(now time.Time) {
	for id, entry := range q.jobs {
		if entry.state == StateDelayed && !entry.notBefore.After(now) {
			entry.state = StateWaiting
			entry.notBefore = time.Time{}
			q.ready = append(q.ready, id)
		}
	}
}

// collectGarbage drops finished job records past their retention window.
// Callers hold the lock.
func (q *MemoryQueue) collectGarbage(now time.Time) {
	for id, entry := range q.jobs {
		switch entry.state {
		case StateCompleted:
			if now.Sub(entry.finishedAt) > CompletedRetention {
				delete(q.jobs, id)
			}
		case StateFailed:
			if now.Sub(entry.finishedAt) > FailedRetention {
				delete(q.jobs, id)
			}
		}
	}
}

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/omnireach/omnireach/pkg/engine"
)

// Runner processes one execution to a terminal state.
type Runner interface {
	Run(ctx context.Context, executionID string) error
}

// Worker drains the queue with a bounded pool. Each goroutine processes one
// job at a time to completion before taking the next.
type Worker struct {
	queue        Queue
	runner       Runner
	concurrency  int
	pollInterval time.Duration
	logger       *slog.Logger
}

type WorkerOption func(*Worker)

func WithConcurrency(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

func NewWorker(queue Queue, runner Runner, logger *slog.Logger, opts ...WorkerOption) *Worker {
	worker := &Worker{
		queue:        queue,
		runner:       runner,
		concurrency:  DefaultConcurrency,
		pollInterval: time.Second,
		logger:       logger.With("module", "scheduler_worker"),
	}

	for _, opt := range opts {
		opt(worker)
	}

	return worker
}

// Start runs the pool until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker pool", "concurrency", w.concurrency)

	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	w.logger.Info("Worker pool stopped")

	return nil
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to dequeue job", "error", err)
		}

		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollInterval):
			}

			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	logger := w.logger.With(
		"execution_id", job.ExecutionID,
		"workflow_id", job.WorkflowID,
		"attempt", job.Attempts,
	)

	logger.InfoContext(ctx, "Processing job")

	err := w.runner.Run(ctx, job.ExecutionID)

	switch {
	case err == nil:
		completeErr := w.queue.Complete(ctx, job)
		if completeErr != nil {
			logger.ErrorContext(ctx, "Failed to mark job completed", "error", completeErr)
		}

	case errors.Is(err, engine.ErrExecutionPaused):
		// The user paused the run between enqueue and pickup. Park the
		// job; resume will bring it back.
		_, pauseErr := w.queue.Pause(ctx, job.ExecutionID)
		if pauseErr != nil {
			logger.ErrorContext(ctx, "Failed to park paused job", "error", pauseErr)
		}

	default:
		retried, failErr := w.queue.Fail(ctx, job, err)
		if failErr != nil {
			logger.ErrorContext(ctx, "Failed to record job failure", "error", failErr)

			return
		}

		if retried {
			logger.WarnContext(ctx, "Job failed, retry scheduled", "error", err)
		} else {
			logger.ErrorContext(ctx, "Job failed permanently", "error", err)
		}
	}
}

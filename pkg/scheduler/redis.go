package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobKeyPrefix = "omnireach:jobs:"
	readyKey     = "omnireach:queue:ready"
	delayedKey   = "omnireach:queue:delayed"
	completedKey = "omnireach:queue:completed"
	failedKey    = "omnireach:queue:failed"
)

// RedisQueue is the production queue. Job records live in hashes keyed by
// execution id, ready jobs in a list, delayed jobs in a sorted set scored by
// their due time, and finished jobs in retention sorted sets scored by finish
// time so garbage collection is a range query.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(ctx context.Context, redisURL string) (*RedisQueue, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisQueue{client: client}, nil
}

func jobKey(executionID string) string {
	return jobKeyPrefix + executionID
}

func (q *RedisQueue) Enqueue(ctx context.Context, executionID, workflowID, leadID string) (*Job, error) {
	// HSetNX is the idempotency gate: only the first enqueue for an
	// execution id creates the record and a ready entry.
	created, err := q.client.HSetNX(ctx, jobKey(executionID), "execution_id", executionID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	if !created {
		return q.loadJob(ctx, executionID)
	}

	err = q.client.HSet(ctx, jobKey(executionID),
		"workflow_id", workflowID,
		"lead_id", leadID,
		"attempts", 0,
		"state", string(StateWaiting),
	).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store job record: %w", err)
	}

	err = q.client.RPush(ctx, readyKey, executionID).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to push job to ready list: %w", err)
	}

	return &Job{ExecutionID: executionID, WorkflowID: workflowID, LeadID: leadID}, nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	err := q.promoteDue(ctx)
	if err != nil {
		return nil, err
	}

	err = q.collectGarbage(ctx)
	if err != nil {
		return nil, err
	}

	for {
		executionID, err := q.client.LPop(ctx, readyKey).Result()
		if err == redis.Nil {
			return nil, nil
		}

		if err != nil {
			return nil, fmt.Errorf("failed to pop ready job: %w", err)
		}

		state, err := q.client.HGet(ctx, jobKey(executionID), "state").Result()
		if err == redis.Nil || (err == nil && JobState(state) != StateWaiting) {
			// Stale list entry, the job moved on. Skip it.
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read job state: %w", err)
		}

		attempts, err := q.client.HIncrBy(ctx, jobKey(executionID), "attempts", 1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to bump attempt count: %w", err)
		}

		err = q.client.HSet(ctx, jobKey(executionID), "state", string(StateActive)).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to mark job active: %w", err)
		}

		job, err := q.loadJob(ctx, executionID)
		if err != nil {
			return nil, err
		}

		job.Attempts = int(attempts)

		return job, nil
	}
}

func (q *RedisQueue) Complete(ctx context.Context, job *Job) error {
	err := q.client.HSet(ctx, jobKey(job.ExecutionID), "state", string(StateCompleted)).Err()
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	return q.client.ZAdd(ctx, completedKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: job.ExecutionID,
	}).Err()
}

func (q *RedisQueue) Fail(ctx context.Context, job *Job, cause error) (bool, error) {
	err := q.client.HSet(ctx, jobKey(job.ExecutionID), "last_error", cause.Error()).Err()
	if err != nil {
		return false, fmt.Errorf("failed to record job error: %w", err)
	}

	if job.Attempts < MaxAttempts {
		due := time.Now().Add(backoffDelay(job.Attempts))

		err = q.delay(ctx, job.ExecutionID, due)
		if err != nil {
			return false, err
		}

		return true, nil
	}

	err = q.client.HSet(ctx, jobKey(job.ExecutionID), "state", string(StateFailed)).Err()
	if err != nil {
		return false, fmt.Errorf("failed to mark job failed: %w", err)
	}

	err = q.client.ZAdd(ctx, failedKey, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: job.ExecutionID,
	}).Err()
	if err != nil {
		return false, err
	}

	return false, nil
}

func (q *RedisQueue) Pause(ctx context.Context, executionID string) (bool, error) {
	state, err := q.client.HGet(ctx, jobKey(executionID), "state").Result()
	if err == redis.Nil {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read job state: %w", err)
	}

	switch JobState(state) {
	case StateWaiting, StateDelayed, StateActive:
		err = q.delay(ctx, executionID, time.Now().Add(PauseDelay))
		if err != nil {
			return false, err
		}

		return true, nil
	default:
		return false, nil
	}
}

func (q *RedisQueue) Resume(ctx context.Context, executionID string) (bool, error) {
	state, err := q.client.HGet(ctx, jobKey(executionID), "state").Result()
	if err == redis.Nil {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to read job state: %w", err)
	}

	switch JobState(state) {
	case StateDelayed:
		err = q.client.ZRem(ctx, delayedKey, executionID).Err()
		if err != nil {
			return false, err
		}
	case StateFailed:
		err = q.client.ZRem(ctx, failedKey, executionID).Err()
		if err != nil {
			return false, err
		}

		err = q.client.HSet(ctx, jobKey(executionID), "attempts", 0, "last_error", "").Err()
		if err != nil {
			return false, err
		}
	default:
		return false, nil
	}

	err = q.client.HSet(ctx, jobKey(executionID), "state", string(StateWaiting)).Err()
	if err != nil {
		return false, err
	}

	err = q.client.RPush(ctx, readyKey, executionID).Err()
	if err != nil {
		return false, err
	}

	return true, nil
}

func (q *RedisQueue) Status(ctx context.Context, executionID string) (*JobStatus, error) {
	record, err := q.client.HGetAll(ctx, jobKey(executionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job record: %w", err)
	}

	if len(record) == 0 {
		return nil, ErrJobNotFound
	}

	attempts, _ := strconv.Atoi(record["attempts"])

	return &JobStatus{
		State:     JobState(record["state"]),
		Attempts:  attempts,
		LastError: record["last_error"],
	}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) loadJob(ctx context.Context, executionID string) (*Job, error) {
	record, err := q.client.HGetAll(ctx, jobKey(executionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load job record: %w", err)
	}

	if len(record) == 0 {
		return nil, ErrJobNotFound
	}

	attempts, _ := strconv.Atoi(record["attempts"])

	return &Job{
		ExecutionID: executionID,
		WorkflowID:  record["workflow_id"],
		LeadID:      record["lead_id"],
		Attempts:    attempts,
	}, nil
}

func (q *RedisQueue) delay(ctx context.Context, executionID string, until time.Time) error {
	err := q.client.LRem(ctx, readyKey, 0, executionID).Err()
	if err != nil {
		return fmt.Errorf("failed to remove job from ready list: %w", err)
	}

	err = q.client.ZAdd(ctx, delayedKey, redis.Z{
		Score:  float64(until.UnixMilli()),
		Member: executionID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to delay job: %w", err)
	}

	return q.client.HSet(ctx, jobKey(executionID), "state", string(StateDelayed)).Err()
}

// promoteDue moves delayed jobs whose due time passed back onto the ready list.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list due jobs: %w", err)
	}

	for _, executionID := range due {
		err = q.client.ZRem(ctx, delayedKey, executionID).Err()
		if err != nil {
			return err
		}

		err = q.client.HSet(ctx, jobKey(executionID), "state", string(StateWaiting)).Err()
		if err != nil {
			return err
		}

		err = q.client.RPush(ctx, readyKey, executionID).Err()
		if err != nil {
			return err
		}
	}

	return nil
}

// collectGarbage drops finished job records past their retention window.
func (q *RedisQueue) collectGarbage(ctx context.Context) error {
	err := q.expire(ctx, completedKey, CompletedRetention)
	if err != nil {
		return err
	}

	return q.expire(ctx, failedKey, FailedRetention)
}

func (q *RedisQueue) expire(ctx context.Context, key string, retention time.Duration) error {
	cutoff := strconv.FormatInt(time.Now().Add(-retention).Unix(), 10)

	expired, err := q.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list expired jobs: %w", err)
	}

	for _, executionID := range expired {
		err = q.client.Del(ctx, jobKey(executionID)).Err()
		if err != nil {
			return err
		}

		err = q.client.ZRem(ctx, key, executionID).Err()
		if err != nil {
			return err
		}
	}

	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"adscope/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// QueueRepository implements the domain.QueueRepository interface using Redis
type QueueRepository struct {
	client *redis.Client
	logger *slog.Logger
}

// NewQueueRepository creates a new Redis queue repository
func NewQueueRepository(client *redis.Client, logger *slog.Logger) *QueueRepository {
	return &QueueRepository{
		client: client,
		logger: logger,
	}
}

// Redis key patterns
const (
	queueKeyPrefix   = "queue:"      // queue:job_type
	jobKeyPrefix     = "job:"        // job:job_id
	processingPrefix = "processing:" // processing:job_type
	retryKeyPrefix   = "retry:"      // retry:job_type
	deadLetterPrefix = "dead:"       // dead:job_type
	statsKeyPrefix   = "stats:"      // stats:job_type
)

// Job retry configuration. Resolution jobs hit an adversarial target site,
// so transient failures are expected and retried with backoff.
const (
	maxRetries        = 3
	initialBackoffSec = 5
	maxBackoffSec     = 300       // 5 minutes
	jobTTLSec         = 3600 * 24 // 24 hours
)

// queuedJob is the wire form stored in the job hash. It carries retry
// bookkeeping that the domain job deliberately does not expose.
type queuedJob struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	NextRetry  *time.Time             `json:"next_retry,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (j *queuedJob) toDomain() *domain.QueueJob {
	out := &domain.QueueJob{
		ID:        j.ID,
		Type:      j.Type,
		Payload:   j.Payload,
		Status:    j.Status,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.UpdatedAt != nil {
		s := j.UpdatedAt.Format(time.RFC3339)
		out.UpdatedAt = &s
	}
	return out
}

// writeJobMeta queues the HMSet that keeps the job hash's denormalized
// fields (status, retry_count) in sync with the serialized job.
func writeJobMeta(pipe redis.Pipeliner, ctx context.Context, job *queuedJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	fields := map[string]interface{}{
		"data":        string(data),
		"status":      job.Status,
		"type":        job.Type,
		"retry_count": job.RetryCount,
	}
	if job.UpdatedAt != nil {
		fields["updated_at"] = job.UpdatedAt.Unix()
	}
	if job.Error != "" {
		fields["error"] = job.Error
	}
	pipe.HMSet(ctx, jobKeyPrefix+job.ID, fields)
	return nil
}

func (r *QueueRepository) loadJob(ctx context.Context, jobID string) (*queuedJob, error) {
	data, err := r.client.HGet(ctx, jobKeyPrefix+jobID, "data").Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job data not found: %s", jobID)
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}
	var job queuedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Enqueue adds a new job to the queue
func (r *QueueRepository) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payloadMap map[string]interface{}
	if err := json.Unmarshal(payloadBytes, &payloadMap); err != nil {
		return fmt.Errorf("failed to unmarshal payload to map: %w", err)
	}

	job := &queuedJob{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payloadMap,
		Status:     domain.JobStatusPending,
		CreatedAt:  time.Now(),
		MaxRetries: maxRetries,
	}

	pipe := r.client.TxPipeline()
	if err := writeJobMeta(pipe, ctx, job); err != nil {
		return err
	}
	pipe.Expire(ctx, jobKeyPrefix+job.ID, time.Duration(jobTTLSec)*time.Second)
	pipe.LPush(ctx, queueKeyPrefix+jobType, job.ID)

	statsKey := statsKeyPrefix + jobType
	pipe.HIncrBy(ctx, statsKey, "total_enqueued", 1)
	pipe.HIncrBy(ctx, statsKey, "pending", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	r.logger.Info("Job enqueued",
		"job_id", job.ID,
		"job_type", jobType,
	)

	return nil
}

// Dequeue retrieves the next job from the queue with blocking
func (r *QueueRepository) Dequeue(ctx context.Context, jobType string) (*domain.QueueJob, error) {
	queueKey := queueKeyPrefix + jobType
	processingKey := processingPrefix + jobType

	// Atomic move from queue to processing list so jobs survive a worker
	// crash mid-flight
	jobID, err := r.client.BRPopLPush(ctx, queueKey, processingKey, 30*time.Second).Result()
	if err != nil {
		if err == redis.Nil {
			// No jobs available (timeout)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		r.logger.Warn("Dequeued job is unreadable, dropping", "job_id", jobID, "error", err)
		r.client.LRem(ctx, processingKey, 1, jobID)
		return nil, err
	}

	now := time.Now()
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = &now

	pipe := r.client.TxPipeline()
	if err := writeJobMeta(pipe, ctx, job); err != nil {
		return nil, err
	}

	statsKey := statsKeyPrefix + jobType
	pipe.HIncrBy(ctx, statsKey, "pending", -1)
	pipe.HIncrBy(ctx, statsKey, "processing", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to update job status", "error", err, "job_id", jobID)
	}

	r.logger.Info("Job dequeued",
		"job_id", job.ID,
		"job_type", jobType,
		"retry_count", job.RetryCount,
	)

	return job.toDomain(), nil
}

// Complete marks a job as completed and removes it from processing
func (r *QueueRepository) Complete(ctx context.Context, jobID string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job for completion: %w", err)
	}

	now := time.Now()
	job.Status = domain.JobStatusCompleted
	job.UpdatedAt = &now

	pipe := r.client.TxPipeline()
	if err := writeJobMeta(pipe, ctx, job); err != nil {
		return err
	}
	pipe.LRem(ctx, processingPrefix+job.Type, 1, jobID)

	statsKey := statsKeyPrefix + job.Type
	pipe.HIncrBy(ctx, statsKey, "processing", -1)
	pipe.HIncrBy(ctx, statsKey, "completed", 1)

	// Completed jobs only need to stick around long enough to debug
	pipe.Expire(ctx, jobKeyPrefix+jobID, time.Hour*6)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	r.logger.Info("Job completed", "job_id", jobID, "job_type", job.Type)
	return nil
}

// Fail marks a job as failed and handles retry logic
func (r *QueueRepository) Fail(ctx context.Context, jobID string, errorMsg string) error {
	job, err := r.loadJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job for failure: %w", err)
	}

	now := time.Now()
	job.Error = errorMsg
	job.UpdatedAt = &now
	job.RetryCount++

	pipe := r.client.TxPipeline()

	if job.RetryCount <= job.MaxRetries {
		backoffSec := int(math.Min(
			float64(initialBackoffSec)*math.Pow(2, float64(job.RetryCount-1)),
			float64(maxBackoffSec),
		))
		nextRetry := now.Add(time.Duration(backoffSec) * time.Second)
		job.NextRetry = &nextRetry
		job.Status = domain.JobStatusPending

		retryKey := retryKeyPrefix + job.Type
		pipe.ZAdd(ctx, retryKey, redis.Z{
			Score:  float64(nextRetry.Unix()),
			Member: jobID,
		})

		r.logger.Info("Job scheduled for retry",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"next_retry", nextRetry,
			"error", errorMsg,
		)
	} else {
		job.Status = domain.JobStatusFailed
		pipe.LPush(ctx, deadLetterPrefix+job.Type, jobID)
		pipe.HIncrBy(ctx, statsKeyPrefix+job.Type, "failed", 1)

		r.logger.Error("Job failed permanently",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"error", errorMsg,
		)
	}

	if err := writeJobMeta(pipe, ctx, job); err != nil {
		return err
	}
	pipe.LRem(ctx, processingPrefix+job.Type, 1, jobID)
	pipe.HIncrBy(ctx, statsKeyPrefix+job.Type, "processing", -1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to handle job failure: %w", err)
	}

	return nil
}

// GetPendingCount returns the number of pending jobs for a job type
func (r *QueueRepository) GetPendingCount(ctx context.Context, jobType string) (int, error) {
	count, err := r.client.LLen(ctx, queueKeyPrefix+jobType).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return int(count), nil
}

// ProcessRetryJobs moves jobs from retry queue back to main queue when ready
func (r *QueueRepository) ProcessRetryJobs(ctx context.Context, jobType string) error {
	retryKey := retryKeyPrefix + jobType
	now := time.Now()

	jobs, err := r.client.ZRangeByScoreWithScores(ctx, retryKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get retry jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, job := range jobs {
		jobID := job.Member.(string)
		pipe.ZRem(ctx, retryKey, jobID)
		pipe.LPush(ctx, queueKeyPrefix+jobType, jobID)
		pipe.HIncrBy(ctx, statsKeyPrefix+jobType, "pending", 1)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to process retry jobs: %w", err)
	}

	r.logger.Info("Processed retry jobs",
		"job_type", jobType,
		"count", len(jobs),
	)

	return nil
}

// GetQueueStats returns cumulative counters plus current list depths for a
// job type. Served on the dashboard stats endpoint.
func (r *QueueRepository) GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error) {
	stats, err := r.client.HGetAll(ctx, statsKeyPrefix+jobType).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	result := make(map[string]int64)
	for key, value := range stats {
		if val, err := strconv.ParseInt(value, 10, 64); err == nil {
			result[key] = val
		}
	}

	if pending, err := r.client.LLen(ctx, queueKeyPrefix+jobType).Result(); err == nil {
		result["current_pending"] = pending
	}
	if processing, err := r.client.LLen(ctx, processingPrefix+jobType).Result(); err == nil {
		result["current_processing"] = processing
	}
	if retrying, err := r.client.ZCard(ctx, retryKeyPrefix+jobType).Result(); err == nil {
		result["current_retrying"] = retrying
	}
	if dead, err := r.client.LLen(ctx, deadLetterPrefix+jobType).Result(); err == nil {
		result["current_dead"] = dead
	}

	return result, nil
}

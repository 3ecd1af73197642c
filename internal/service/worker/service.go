// Package worker runs the background job loop: single-ad media
// resolution and full competitor syncs, fed by the Redis queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"adscope/internal/config"
	"adscope/internal/domain"
	"adscope/internal/pkg/metrics"
)

// WorkerService processes background jobs
type WorkerService struct {
	config *config.Config
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	queueRepo domain.QueueRepository
	processor *JobProcessor
	metrics   *metrics.Metrics

	// Discord session for sync-completion notifications
	discordSession *discordgo.Session

	stats *WorkerStats
}

// WorkerStats tracks worker performance metrics
type WorkerStats struct {
	JobsProcessed int64
	JobsSucceeded int64
	JobsFailed    int64
	LastJobTime   time.Time
}

// New creates a new worker service
func New(
	cfg *config.Config,
	logger *slog.Logger,
	queueRepo domain.QueueRepository,
	processor *JobProcessor,
	m *metrics.Metrics,
) (*WorkerService, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Notifications are optional; a bad token degrades to silence.
	var discordSession *discordgo.Session
	if cfg.DiscordToken != "" {
		var err error
		discordSession, err = discordgo.New("Bot " + cfg.DiscordToken)
		if err != nil {
			logger.Warn("Failed to create Discord session for notifications", "error", err)
		}
	}
	processor.notifier = newNotifier(discordSession, cfg.DiscordChannelID, logger)

	return &WorkerService{
		config:         cfg,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
		queueRepo:      queueRepo,
		processor:      processor,
		metrics:        m,
		discordSession: discordSession,
		stats:          &WorkerStats{},
	}, nil
}

// Start begins processing jobs and blocks until interrupted.
func (w *WorkerService) Start() error {
	w.logger.Info("Starting worker service...")

	go w.processJobs()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	w.logger.Info("Worker service is running. Press Ctrl+C to stop.")
	<-stop

	w.logger.Info("Shutting down worker service...")
	return w.Stop()
}

// Stop gracefully shuts down the worker service
func (w *WorkerService) Stop() error {
	w.cancel()

	if w.discordSession != nil {
		w.discordSession.Close()
	}
	w.processor.Close()

	w.logger.Info("Worker service stopped")
	return nil
}

// processJobs continuously processes jobs from the queue
func (w *WorkerService) processJobs() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Job processing stopped")
			return
		case <-ticker.C:
			w.requeueRetries()
			w.processJobType(domain.JobTypeResolveMedia)
			w.processJobType(domain.JobTypeSyncCompetitor)
		}
	}
}

// retryProcessor is implemented by queue backends that park failed jobs
// for delayed retry.
type retryProcessor interface {
	ProcessRetryJobs(ctx context.Context, jobType string) error
}

// requeueRetries moves jobs whose backoff has expired back onto the
// queue.
func (w *WorkerService) requeueRetries() {
	rp, ok := w.queueRepo.(retryProcessor)
	if !ok {
		return
	}
	for _, jobType := range []string{domain.JobTypeResolveMedia, domain.JobTypeSyncCompetitor} {
		if err := rp.ProcessRetryJobs(w.ctx, jobType); err != nil {
			w.logger.Error("Failed to requeue retry jobs", "error", err, "job_type", jobType)
		}
	}
}

// processJobType drains up to one batch of pending jobs of one type.
func (w *WorkerService) processJobType(jobType string) {
	ctx := w.ctx

	pendingCount, err := w.queueRepo.GetPendingCount(ctx, jobType)
	if err != nil {
		w.logger.Error("Failed to get pending job count",
			"error", err,
			"job_type", jobType,
		)
		return
	}
	if pendingCount == 0 {
		return
	}

	// Limit per cycle so one flood of resolutions cannot starve syncs.
	maxJobs := 10
	if pendingCount < maxJobs {
		maxJobs = pendingCount
	}

	for i := 0; i < maxJobs; i++ {
		job, err := w.queueRepo.Dequeue(ctx, jobType)
		if err != nil {
			w.logger.Error("Failed to dequeue job",
				"error", err,
				"job_type", jobType,
			)
			continue
		}
		if job == nil {
			break
		}
		w.processJob(job)
	}
}

// processJob processes a single job
func (w *WorkerService) processJob(job *domain.QueueJob) {
	startTime := time.Now()
	jobLogger := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
	)

	jobLogger.Info("Processing job")

	var processingErr error
	switch job.Type {
	case domain.JobTypeResolveMedia:
		processingErr = w.processor.ProcessResolveMedia(w.ctx, job.Payload, jobLogger)
	case domain.JobTypeSyncCompetitor:
		processingErr = w.processor.ProcessSyncCompetitor(w.ctx, job.Payload, jobLogger)
	default:
		processingErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	outcome := "succeeded"
	if processingErr != nil {
		outcome = "failed"
		jobLogger.Error("Job processing failed", "error", processingErr)
		if err := w.queueRepo.Fail(w.ctx, job.ID, processingErr.Error()); err != nil {
			jobLogger.Error("Failed to mark job as failed", "error", err)
		}
		w.stats.JobsFailed++
	} else {
		if err := w.queueRepo.Complete(w.ctx, job.ID); err != nil {
			jobLogger.Error("Failed to mark job as completed", "error", err)
		}
		w.stats.JobsSucceeded++
	}
	if w.metrics != nil {
		w.metrics.QueueJobs.WithLabelValues(job.Type, outcome).Inc()
	}

	w.stats.JobsProcessed++
	w.stats.LastJobTime = time.Now()

	jobLogger.Debug("Job processing completed",
		"duration", time.Since(startTime),
		"success", processingErr == nil,
	)
}

// GetStats returns current worker statistics
func (w *WorkerService) GetStats() *WorkerStats {
	return w.stats
}

// HealthCheck performs a health check on the worker service
func (w *WorkerService) HealthCheck() error {
	if w.ctx.Err() != nil {
		return fmt.Errorf("worker context cancelled: %w", w.ctx.Err())
	}
	if _, err := w.queueRepo.GetPendingCount(w.ctx, domain.JobTypeResolveMedia); err != nil {
		return fmt.Errorf("queue connectivity check failed: %w", err)
	}
	return nil
}

// Package scheduler enqueues periodic competitor syncs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"adscope/internal/domain"
)

// Scheduler walks the competitor list on a fixed interval and enqueues a
// sync job for each. The worker does the actual work; overlapping runs
// are harmless because the queue deduplication window is per job.
type Scheduler struct {
	cron        *cron.Cron
	competitors domain.CompetitorRepository
	queue       domain.QueueRepository
	logger      *slog.Logger
}

func New(competitors domain.CompetitorRepository, queue domain.QueueRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		competitors: competitors,
		queue:       queue,
		logger:      logger,
	}
}

// Start registers the sync schedule and begins ticking.
func (s *Scheduler) Start(intervalHours int) error {
	if intervalHours <= 0 {
		intervalHours = 12
	}

	spec := fmt.Sprintf("@every %dh", intervalHours)
	if _, err := s.cron.AddFunc(spec, s.enqueueSyncs); err != nil {
		return fmt.Errorf("registering sync schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info("sync scheduler started", "interval_hours", intervalHours)
	return nil
}

// Stop halts the schedule, waiting for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) enqueueSyncs() {
	ctx := context.Background()

	competitors, err := s.competitors.List(ctx)
	if err != nil {
		s.logger.Error("listing competitors for scheduled sync", "error", err)
		return
	}

	enqueued := 0
	for _, c := range competitors {
		payload := map[string]interface{}{"page_id": c.ID}
		if err := s.queue.Enqueue(ctx, domain.JobTypeSyncCompetitor, payload); err != nil {
			s.logger.Error("enqueueing scheduled sync", "page_id", c.ID, "error", err)
			continue
		}
		enqueued++
	}

	s.logger.Info("scheduled syncs enqueued", "competitors", len(competitors), "enqueued", enqueued)
}

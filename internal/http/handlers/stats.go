package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"adscope/internal/domain"
)

// QueueInspector exposes the per-type counters the queue keeps alongside
// the lists themselves. Implemented by the Redis queue repository.
type QueueInspector interface {
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

type StatsHandler struct {
	logger *slog.Logger
	queue  domain.QueueRepository
}

func NewStatsHandler(logger *slog.Logger, queue domain.QueueRepository) *StatsHandler {
	return &StatsHandler{logger: logger, queue: queue}
}

func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	inspector, _ := h.queue.(QueueInspector)

	queues := map[string]interface{}{}
	for _, jobType := range []string{domain.JobTypeResolveMedia, domain.JobTypeSyncCompetitor} {
		if inspector != nil {
			stats, err := inspector.GetQueueStats(ctx, jobType)
			if err != nil {
				h.logger.Error("Failed to get queue stats", "job_type", jobType, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			queues[jobType] = stats
			continue
		}
		count, err := h.queue.GetPendingCount(ctx, jobType)
		if err != nil {
			h.logger.Error("Failed to get pending count", "job_type", jobType, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		queues[jobType] = map[string]int64{"current_pending": int64(count)}
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"queues":    queues,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

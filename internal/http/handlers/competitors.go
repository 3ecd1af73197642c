package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"adscope/internal/domain"
)

type CompetitorsHandler struct {
	logger      *slog.Logger
	competitors domain.CompetitorRepository
	queue       domain.QueueRepository
}

func NewCompetitorsHandler(logger *slog.Logger, competitors domain.CompetitorRepository, queue domain.QueueRepository) *CompetitorsHandler {
	return &CompetitorsHandler{
		logger:      logger,
		competitors: competitors,
		queue:       queue,
	}
}

func (h *CompetitorsHandler) GetCompetitors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	competitors, err := h.competitors.List(ctx)
	if err != nil {
		h.logger.Error("Failed to list competitors", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"competitors": competitors,
		"total":       len(competitors),
	})
}

func (h *CompetitorsHandler) CreateCompetitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		PageID     string  `json:"page_id"`
		Name       string  `json:"name"`
		PictureURL *string `json:"picture_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PageID == "" || req.Name == "" {
		http.Error(w, "page_id and name are required", http.StatusBadRequest)
		return
	}

	competitor := &domain.Competitor{
		ID:         req.PageID,
		Name:       req.Name,
		PictureURL: req.PictureURL,
		CreatedAt:  time.Now(),
	}
	if err := h.competitors.Create(ctx, competitor); err != nil {
		h.logger.Error("Failed to create competitor", "page_id", req.PageID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// A new competitor gets an immediate first sync.
	payload := map[string]interface{}{"page_id": competitor.ID}
	if err := h.queue.Enqueue(ctx, domain.JobTypeSyncCompetitor, payload); err != nil {
		h.logger.Warn("Failed to enqueue initial sync", "page_id", competitor.ID, "error", err)
	}

	writeJSON(w, h.logger, http.StatusCreated, competitor)
}

func (h *CompetitorsHandler) DeleteCompetitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pageID := r.PathValue("id")
	if pageID == "" {
		http.Error(w, "Competitor ID is required", http.StatusBadRequest)
		return
	}

	if err := h.competitors.Delete(ctx, pageID); err != nil {
		h.logger.Error("Failed to delete competitor", "page_id", pageID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CompetitorsHandler) SyncCompetitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pageID := r.PathValue("id")
	if pageID == "" {
		http.Error(w, "Competitor ID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.competitors.GetByID(ctx, pageID); err != nil {
		http.Error(w, "Competitor not found", http.StatusNotFound)
		return
	}

	payload := map[string]interface{}{"page_id": pageID}
	if err := h.queue.Enqueue(ctx, domain.JobTypeSyncCompetitor, payload); err != nil {
		h.logger.Error("Failed to enqueue sync", "page_id", pageID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, map[string]interface{}{
		"status":  "queued",
		"page_id": pageID,
	})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

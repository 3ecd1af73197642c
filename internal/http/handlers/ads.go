package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"adscope/internal/domain"
)

type AdsHandler struct {
	logger *slog.Logger
	ads    domain.AdRepository
	queue  domain.QueueRepository
}

func NewAdsHandler(logger *slog.Logger, ads domain.AdRepository, queue domain.QueueRepository) *AdsHandler {
	return &AdsHandler{
		logger: logger,
		ads:    ads,
		queue:  queue,
	}
}

func (h *AdsHandler) GetAdsByCompetitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pageID := r.PathValue("id")
	if pageID == "" {
		http.Error(w, "Competitor ID is required", http.StatusBadRequest)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	ads, err := h.ads.ListByPage(ctx, pageID, limit)
	if err != nil {
		h.logger.Error("Failed to list ads", "page_id", pageID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Active-only filtering happens here rather than in SQL so the
	// default view and the full history share one query path.
	if r.URL.Query().Get("active") == "true" {
		filtered := ads[:0]
		for _, ad := range ads {
			if ad.IsActive() {
				filtered = append(filtered, ad)
			}
		}
		ads = filtered
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"ads":   ads,
		"total": len(ads),
	})
}

func (h *AdsHandler) GetAdByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adID := r.PathValue("id")
	if adID == "" {
		http.Error(w, "Ad ID is required", http.StatusBadRequest)
		return
	}

	ad, err := h.ads.GetByID(ctx, adID)
	if err != nil {
		http.Error(w, "Ad not found", http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ad)
}

// ResolveAd queues a single-ad media resolution. The request body may
// carry {"force_refresh": true} to overwrite an existing resolution.
func (h *AdsHandler) ResolveAd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adID := r.PathValue("id")
	if adID == "" {
		http.Error(w, "Ad ID is required", http.StatusBadRequest)
		return
	}

	var req struct {
		ForceRefresh bool `json:"force_refresh"`
	}
	if r.Body != nil {
		// An empty body means default options.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ad, err := h.ads.GetByID(ctx, adID)
	if err != nil {
		http.Error(w, "Ad not found", http.StatusNotFound)
		return
	}

	if ad.Media != nil && !req.ForceRefresh {
		writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
			"status": "already_resolved",
			"media":  ad.Media,
		})
		return
	}

	payload := map[string]interface{}{
		"ad_id":         adID,
		"force_refresh": req.ForceRefresh,
	}
	if err := h.queue.Enqueue(ctx, domain.JobTypeResolveMedia, payload); err != nil {
		h.logger.Error("Failed to enqueue resolution", "ad_id", adID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, map[string]interface{}{
		"status": "queued",
		"ad_id":  adID,
	})
}

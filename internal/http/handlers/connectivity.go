package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Check probes one upstream dependency. The detail string, when
// non-empty, names the account the credential belongs to.
type Check func(ctx context.Context) (detail string, err error)

// ConnectivityHandler reports the health of every configured upstream:
// the ad archive token, the scrape-job runner, the queue, the database.
// Settings pages use it to tell users which credential is broken before
// they start a sync.
type ConnectivityHandler struct {
	logger *slog.Logger
	checks map[string]Check
}

func NewConnectivityHandler(logger *slog.Logger, checks map[string]Check) *ConnectivityHandler {
	return &ConnectivityHandler{logger: logger, checks: checks}
}

func (h *ConnectivityHandler) HandleConnectivity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	results := make(map[string]interface{}, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		detail, err := check(ctx)
		if err != nil {
			h.logger.Warn("Connectivity check failed", "check", name, "error", err)
			results[name] = map[string]string{"status": "error", "detail": err.Error()}
			healthy = false
			continue
		}
		entry := map[string]string{"status": "ok"}
		if detail != "" {
			entry["account"] = detail
		}
		results[name] = entry
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, status, map[string]interface{}{
		"healthy": healthy,
		"checks":  results,
	})
}

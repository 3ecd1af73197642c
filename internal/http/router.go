package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adscope/internal/domain"
	"adscope/internal/http/handlers"
	"adscope/internal/http/middleware"
)

type Router struct {
	mux                 *http.ServeMux
	auth                *middleware.APIKeyAuth
	healthHandler       *handlers.HealthHandler
	statsHandler        *handlers.StatsHandler
	competitorsHandler  *handlers.CompetitorsHandler
	adsHandler          *handlers.AdsHandler
	connectivityHandler *handlers.ConnectivityHandler
}

func NewRouter(
	logger *slog.Logger,
	apiKey string,
	competitors domain.CompetitorRepository,
	ads domain.AdRepository,
	queue domain.QueueRepository,
	checks map[string]handlers.Check,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		auth:                middleware.NewAPIKeyAuth(apiKey, logger),
		healthHandler:       handlers.NewHealthHandler(logger),
		statsHandler:        handlers.NewStatsHandler(logger, queue),
		competitorsHandler:  handlers.NewCompetitorsHandler(logger, competitors, queue),
		adsHandler:          handlers.NewAdsHandler(logger, ads, queue),
		connectivityHandler: handlers.NewConnectivityHandler(logger, checks),
	}
}

func (r *Router) SetupRoutes() http.Handler {
	// Health and observability
	r.mux.HandleFunc("GET /health", r.healthHandler.HandleHealth)
	r.mux.Handle("GET /metrics", promhttp.Handler())
	r.mux.HandleFunc("GET /api/v1/stats", r.statsHandler.HandleStats)
	r.mux.HandleFunc("GET /api/v1/connectivity", r.connectivityHandler.HandleConnectivity)

	// Competitor management
	r.mux.HandleFunc("GET /api/v1/competitors", r.competitorsHandler.GetCompetitors)
	r.mux.Handle("POST /api/v1/competitors", r.guarded(r.competitorsHandler.CreateCompetitor))
	r.mux.Handle("DELETE /api/v1/competitors/{id}", r.guarded(r.competitorsHandler.DeleteCompetitor))
	r.mux.Handle("POST /api/v1/competitors/{id}/sync", r.guarded(r.competitorsHandler.SyncCompetitor))

	// Ads and media resolution
	r.mux.HandleFunc("GET /api/v1/competitors/{id}/ads", r.adsHandler.GetAdsByCompetitor)
	r.mux.HandleFunc("GET /api/v1/ads/{id}", r.adsHandler.GetAdByID)
	r.mux.Handle("POST /api/v1/ads/{id}/resolve", r.guarded(r.adsHandler.ResolveAd))

	return middleware.CORS(r.mux)
}

func (r *Router) guarded(handler http.HandlerFunc) http.Handler {
	return r.auth.Middleware(handler)
}

// Package api hosts the dashboard-facing HTTP server.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"adscope/internal/config"
	"adscope/internal/domain"
	internalhttp "adscope/internal/http"
	"adscope/internal/http/handlers"
)

// APIService handles HTTP API requests
type APIService struct {
	config *config.Config
	logger *slog.Logger
	server *http.Server
}

// New creates a new API service
func New(
	cfg *config.Config,
	logger *slog.Logger,
	competitors domain.CompetitorRepository,
	ads domain.AdRepository,
	queue domain.QueueRepository,
	checks map[string]handlers.Check,
) (*APIService, error) {
	router := internalhttp.NewRouter(logger, cfg.APIKey, competitors, ads, queue, checks)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &APIService{
		config: cfg,
		logger: logger,
		server: server,
	}, nil
}

// Start begins serving the API
func (s *APIService) Start() error {
	s.logger.Info("Starting API server", "port", s.config.Port)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

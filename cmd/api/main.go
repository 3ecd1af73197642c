package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"adscope/internal/config"
	"adscope/internal/http/handlers"
	"adscope/internal/pkg/logger"
	"adscope/internal/repository/postgres"
	"adscope/internal/repository/redis"
	"adscope/internal/service/adsarchive"
	"adscope/internal/service/api"
	"adscope/internal/service/scheduler"
	"adscope/internal/service/scrapejob"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting API service...")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	// Run database migrations
	if err := postgres.RunMigrations(db, log); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Create repositories
	adRepo := postgres.NewAdRepository(db, log)
	competitorRepo := postgres.NewCompetitorRepository(db, log)
	queueRepo := redis.NewQueueRepository(redisClient, log)

	// Upstream connectivity checks exposed at /api/v1/connectivity
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) (string, error) { return "", db.PingContext(ctx) },
		"queue":    func(ctx context.Context) (string, error) { return "", redis.HealthCheck(ctx, redisClient) },
	}
	if cfg.HasArchive() {
		archiveClient := adsarchive.NewClient(cfg.ArchiveToken, cfg.DefaultCountry, log)
		checks["archive"] = func(ctx context.Context) (string, error) { return "", archiveClient.Validate(ctx) }
	}
	if cfg.HasManagedScraper() {
		scrapeClient := scrapejob.NewClient(cfg.ScraperToken, cfg.ScraperActorID, log)
		checks["scraper"] = scrapeClient.Validate
	}

	// Create API service
	apiService, err := api.New(cfg, log, competitorRepo, adRepo, queueRepo, checks)
	if err != nil {
		log.Error("Failed to create API service", "error", err)
		os.Exit(1)
	}

	// Periodic competitor syncs are scheduled from the API process so a
	// fleet of workers does not multiply the schedule.
	syncScheduler := scheduler.New(competitorRepo, queueRepo, log)
	if err := syncScheduler.Start(cfg.SyncIntervalHours); err != nil {
		log.Error("Failed to start sync scheduler", "error", err)
		os.Exit(1)
	}
	defer syncScheduler.Stop()

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := apiService.Start(); err != nil {
			log.Error("API service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping API service...")
	case <-done:
		log.Info("API service completed")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiService.Stop(ctx); err != nil {
		log.Error("Error stopping API service", "error", err)
	}

	log.Info("API service shutdown complete")
}

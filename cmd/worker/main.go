package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adscope/internal/config"
	"adscope/internal/domain"
	"adscope/internal/pkg/logger"
	"adscope/internal/pkg/metrics"
	"adscope/internal/repository/postgres"
	"adscope/internal/repository/redis"
	"adscope/internal/service/adsarchive"
	"adscope/internal/service/extractor"
	"adscope/internal/service/scrapejob"
	"adscope/internal/service/storage"
	"adscope/internal/service/worker"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting worker service...")

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

	if err := redis.HealthCheck(context.Background(), redisClient); err != nil {
		log.Error("Failed to ping Redis", "error", err)
		os.Exit(1)
	}

	// Create repositories
	queueRepo := redis.NewQueueRepository(redisClient, log)
	adRepo := postgres.NewAdRepository(db, log)
	competitorRepo := postgres.NewCompetitorRepository(db, log)

	m := metrics.New()

	// Assemble the strategy chain: relay first, browser second, managed
	// runner last. Missing configuration shortens the chain rather than
	// failing startup.
	var browserHandle *extractor.BrowserHandle
	strategies := []extractor.Strategy{
		extractor.NewRelayStrategy(cfg.RelayEndpoints, log),
	}
	if cfg.BrowserEnabled {
		browserHandle = extractor.NewBrowserHandle(cfg.BrowserBin, log)
		strategies = append(strategies, extractor.NewBrowserStrategy(browserHandle, log))
	}

	var scrapeClient *scrapejob.Client
	if cfg.HasManagedScraper() {
		scrapeClient = scrapejob.NewClient(cfg.ScraperToken, cfg.ScraperActorID, log)
		if account, err := scrapeClient.Validate(context.Background()); err != nil {
			log.Warn("Scraper credential validation failed", "error", err)
		} else {
			log.Info("Scraper credential validated", "account", account)
		}
		strategies = append(strategies, scrapejob.NewManagedStrategy(scrapeClient, log))
	}

	resolver := extractor.NewResolver(strategies, m, log)

	var objectStorage domain.ObjectStorage
	if cfg.HasObjectStorage() {
		objectStorage = storage.NewSupabaseStorage(cfg.StorageURL, cfg.StorageKey, cfg.StorageBucket, log)
	} else {
		log.Warn("Object storage not configured; batch media stays on ephemeral CDN URLs")
	}

	var pipeline *scrapejob.Pipeline
	if scrapeClient != nil {
		pipeline = scrapejob.NewPipeline(scrapeClient, objectStorage, adRepo, m, log)
	}

	var batchRunner worker.BatchRunner
	if pipeline != nil {
		batchRunner = pipeline
	}

	var archiveFetcher worker.ArchiveFetcher
	if cfg.HasArchive() {
		archiveFetcher = adsarchive.NewClient(cfg.ArchiveToken, cfg.DefaultCountry, log)
	} else {
		log.Warn("Archive token not configured; competitor syncs will fail")
	}

	processor := worker.NewJobProcessor(log, resolver, batchRunner, archiveFetcher, adRepo, competitorRepo, browserHandle)

	// Create worker service
	workerService, err := worker.New(cfg, log, queueRepo, processor, m)
	if err != nil {
		log.Error("Failed to create worker service", "error", err)
		os.Exit(1)
	}

	// Metrics are scraped from the worker directly; resolution counters
	// live in this process, not the API.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			if err := workerService.HealthCheck(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			stats := workerService.GetStats()
			fmt.Fprintf(w, "ok processed=%d succeeded=%d failed=%d\n",
				stats.JobsProcessed, stats.JobsSucceeded, stats.JobsFailed)
		})
		addr := ":" + cfg.MetricsPort
		log.Info("Metrics listener starting", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Metrics listener failed", "error", err)
		}
	}()

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := workerService.Start(); err != nil {
			log.Error("Worker service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping worker service...")
	case <-done:
		log.Info("Worker service completed")
	}

	// Graceful shutdown with timeout
	_, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := workerService.Stop(); err != nil {
		log.Error("Error stopping worker service", "error", err)
	}

	log.Info("Worker service shutdown complete")
}

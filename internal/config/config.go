package config

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	MetricsPort string // worker-side metrics listener
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	APIKey      string // guards mutating API endpoints; empty disables auth

	// Media resolution engine
	RelayEndpoints []string // CORS relay endpoints for the no-browser strategy, tried in order
	BrowserBin     string   // optional explicit Chromium binary path
	BrowserEnabled bool

	// Managed scrape-job runner
	ScraperToken   string // bearer credential; empty disables the managed strategy
	ScraperActorID string

	// Durable object storage (batch pipeline durable-copy step)
	StorageURL    string
	StorageKey    string
	StorageBucket string

	// Ads transparency archive
	ArchiveToken   string
	DefaultCountry string

	// Optional worker notifications
	DiscordToken     string
	DiscordChannelID string

	SyncIntervalHours int
}

const defaultRelayEndpoints = "https://api.allorigins.win/raw?url=,https://corsproxy.io/?"

func Load() *Config {
	config := &Config{
		Port:           getEnvWithDefault("PORT", "8080"),
		MetricsPort:    getEnvWithDefault("METRICS_PORT", "9090"),
		LogLevel:       getEnvWithDefault("LOG_LEVEL", "info"),
		BrowserBin:     getEnvWithDefault("CHROMIUM_PATH", ""),
		ScraperActorID: getEnvWithDefault("SCRAPER_ACTOR_ID", "shu8hvrXbJbY3Eb9W"),
		DefaultCountry: getEnvWithDefault("DEFAULT_COUNTRY", "FR"),
	}

	// Required environment variables (for database/redis services)
	config.DatabaseURL = mustGetEnv("DATABASE_URL")
	config.RedisURL = mustGetEnv("REDIS_URL")

	// Optional integrations
	config.APIKey = getEnvWithDefault("API_KEY", "")
	config.ArchiveToken = getEnvWithDefault("ARCHIVE_TOKEN", "")
	config.ScraperToken = getEnvWithDefault("SCRAPER_TOKEN", "")
	config.StorageURL = getEnvWithDefault("STORAGE_URL", "")
	config.StorageKey = getEnvWithDefault("STORAGE_KEY", "")
	config.StorageBucket = getEnvWithDefault("STORAGE_BUCKET", "ads-media")
	config.DiscordToken = getEnvWithDefault("DISCORD_TOKEN", "")
	config.DiscordChannelID = getEnvWithDefault("DISCORD_CHANNEL_ID", "")

	config.BrowserEnabled = getEnvWithDefault("BROWSER_ENABLED", "true") != "false"

	relays := getEnvWithDefault("RELAY_ENDPOINTS", defaultRelayEndpoints)
	for _, endpoint := range strings.Split(relays, ",") {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			config.RelayEndpoints = append(config.RelayEndpoints, endpoint)
		}
	}

	config.SyncIntervalHours = getEnvIntWithDefault("SYNC_INTERVAL_HOURS", 6)

	// Command line flags override environment
	flag.StringVar(&config.Port, "port", config.Port, "Server port")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	flag.Parse()

	return config
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("Environment variable %s is required", key)
	}
	return value
}

// HasManagedScraper reports whether the managed job-runner strategy is
// configured. Absence causes a skip, not a failure.
func (c *Config) HasManagedScraper() bool {
	return c.ScraperToken != ""
}

// HasArchive reports whether competitor syncs can pull from the ads
// archive.
func (c *Config) HasArchive() bool {
	return c.ArchiveToken != ""
}

// HasObjectStorage reports whether the durable-copy step can run.
func (c *Config) HasObjectStorage() bool {
	return c.StorageURL != "" && c.StorageKey != ""
}

// ValidateForWorker ensures all required fields for the worker service are present
func (c *Config) ValidateForWorker() error {
	// Worker only needs database and Redis; scraper/storage/Discord are optional
	return nil
}

// ValidateForAPI ensures all required fields for the API service are present
func (c *Config) ValidateForAPI() error {
	return nil
}

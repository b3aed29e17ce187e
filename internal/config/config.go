package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// AI services
	GeminiAPIKey     string
	GeminiModel      string
	PerplexityAPIKey string
	PerplexityModel  string

	// Identity / store (multi-tenant mode)
	SupabaseURL string
	SupabaseKey string
	DatabaseURL string

	// Single-tenant fallback files
	TopicsFile   string
	SnapshotFile string

	// Source lists
	SourcesConfigPath string

	// Timezone all source timestamps are normalized into
	Timezone string
	Location *time.Location

	// Fetch settings
	FetchTimeout   time.Duration
	ItemsPerSource int
	SearchLimit    int

	// Translation settings
	TranslateTimeout time.Duration
	TranslateRetries int
	TranslateBackoff time.Duration
	// MaxAIRequests caps Gemini calls per day (0 = unlimited)
	MaxAIRequests int

	// Summary settings
	SummaryTimeout    time.Duration
	KeywordGenTimeout time.Duration

	// Staleness thresholds for cached tenant data
	StrictStaleness  time.Duration
	RoutineStaleness time.Duration

	// Monitoring
	MonitoringPort string
}

func Load() (*Config, error) {
	cfg := &Config{
		GeminiModel:       "gemini-2.0-flash",
		PerplexityModel:   "sonar",
		TopicsFile:        "topics_config.json",
		SnapshotFile:      "data_snapshot.json",
		SourcesConfigPath: "configs/sources.yaml",
		Timezone:          "Asia/Taipei",
		FetchTimeout:      15 * time.Second,
		ItemsPerSource:    30,
		SearchLimit:       20,
		TranslateTimeout:  15 * time.Second,
		TranslateRetries:  3,
		TranslateBackoff:  2 * time.Second,
		SummaryTimeout:    45 * time.Second,
		KeywordGenTimeout: 30 * time.Second,
		StrictStaleness:   5 * time.Minute,
		RoutineStaleness:  60 * time.Minute,
		MonitoringPort:    "8080",
	}

	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.PerplexityAPIKey = os.Getenv("PERPLEXITY_API_KEY")
	cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	cfg.SupabaseKey = os.Getenv("SUPABASE_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.PerplexityModel = getEnvOrDefault("PERPLEXITY_MODEL", cfg.PerplexityModel)
	cfg.TopicsFile = getEnvOrDefault("TOPICS_FILE", cfg.TopicsFile)
	cfg.SnapshotFile = getEnvOrDefault("SNAPSHOT_FILE", cfg.SnapshotFile)
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.Timezone = getEnvOrDefault("TIMEZONE", cfg.Timezone)
	cfg.MonitoringPort = getEnvOrDefault("MONITORING_PORT", cfg.MonitoringPort)

	cfg.ItemsPerSource = getEnvIntOrDefault("ITEMS_PER_SOURCE", cfg.ItemsPerSource)
	cfg.SearchLimit = getEnvIntOrDefault("SEARCH_LIMIT", cfg.SearchLimit)
	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)

	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.FetchTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("STRICT_STALENESS_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.StrictStaleness = time.Duration(val) * time.Minute
		}
	}
	if v := os.Getenv("ROUTINE_STALENESS_MINUTES"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RoutineStaleness = time.Duration(val) * time.Minute
		}
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// MultiTenant reports whether the per-user store and identity provider are
// configured. Without them the service runs in single-tenant file mode.
func (c *Config) MultiTenant() bool {
	return c.DatabaseURL != "" && c.SupabaseURL != "" && c.SupabaseKey != ""
}

func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.ItemsPerSource <= 0 {
		return fmt.Errorf("ITEMS_PER_SOURCE must be positive")
	}
	if c.TranslateRetries < 1 {
		return fmt.Errorf("translate retries must be at least 1")
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/polyquant/internal/secrets"
)

// Provider identifies the semantic AI provider used for keyword
// expansion, proxy theses and alignment scoring.
type Provider string

const (
	ProviderMock   Provider = "mock"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// Polymarket APIs
	GammaAPIBaseURL string
	CLOBAPIBaseURL  string

	// AI provider
	AIProvider   Provider
	OpenAIAPIKey string
	GeminiAPIKey string
	GeminiModel  string

	// Discovery
	RelevanceThreshold float64 // [0,100] gate for candidate acceptance
	MaxProxyRounds     int     // hard cap on proxy-thesis retries
	DiscoveryLimit     int     // markets considered per keyword
	MinVolumeUSD       float64 // liquidity floor for the catalog search

	// Correlation / portfolio
	HistoryDays       int
	MinPoints         int // minimum aligned dates; legacy deployments ran 10
	RollingWindows    []int
	MinAbsCorrelation float64
	PortfolioTopN     int

	// Price history fetching
	PriceFetchWorkers int
	FetchTimeout      time.Duration
	FetchRetries      int
	PriceCacheTTL     time.Duration

	// Rate limits (requests per second)
	GammaAPIRPS float64
	CLOBAPIRPS  float64

	// Catalog sync
	SyncIntervalMins int
	SyncPageSize     int

	// Artifacts
	ArtifactDir   string
	ArtifactModes string // comma separated: json, csv, log

	// HTTP
	APIPort    int
	HealthPort int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "production"),
		DatabaseDSN:         getEnv("DATABASE_DSN", "polyquant:polyquant@tcp(mysql:3306)/polyquant?parseTime=true"),
		DatabaseMaxConns:    getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMaxIdleTime: time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		GammaAPIBaseURL:     getEnv("GAMMA_API_BASE_URL", "https://gamma-api.polymarket.com"),
		CLOBAPIBaseURL:      getEnv("CLOB_API_BASE_URL", "https://clob.polymarket.com"),
		AIProvider:          Provider(getEnv("AI_PROVIDER", "mock")),
		OpenAIAPIKey:        secrets.GetOptional("OPENAI_API_KEY", ""),
		GeminiAPIKey:        secrets.GetOptional("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		RelevanceThreshold:  getEnvFloat("RELEVANCE_THRESHOLD", 70.0),
		MaxProxyRounds:      getEnvInt("MAX_PROXY_ROUNDS", 3),
		DiscoveryLimit:      getEnvInt("DISCOVERY_LIMIT", 100),
		MinVolumeUSD:        getEnvFloat("MIN_VOLUME_USD", 1000.0),
		HistoryDays:         getEnvInt("HISTORY_DAYS", 30),
		MinPoints:           getEnvInt("MIN_POINTS", 20),
		MinAbsCorrelation:   getEnvFloat("MIN_ABS_CORRELATION", 0.0),
		PortfolioTopN:       getEnvInt("PORTFOLIO_TOP_N", 30),
		PriceFetchWorkers:   getEnvInt("PRICE_FETCH_WORKERS", 8),
		FetchTimeout:        time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 10)) * time.Second,
		FetchRetries:        getEnvInt("FETCH_RETRIES", 3),
		PriceCacheTTL:       time.Duration(getEnvInt("PRICE_CACHE_TTL_MINS", 10)) * time.Minute,
		GammaAPIRPS:         getEnvFloat("GAMMA_API_RPS", 5.0),
		CLOBAPIRPS:          getEnvFloat("CLOB_API_RPS", 10.0),
		SyncIntervalMins:    getEnvInt("SYNC_INTERVAL_MINS", 60),
		SyncPageSize:        getEnvInt("SYNC_PAGE_SIZE", 500),
		ArtifactDir:         getEnv("ARTIFACT_DIR", "artifacts"),
		ArtifactModes:       getEnv("ARTIFACT_MODES", "json,csv"),
		APIPort:             getEnvInt("API_PORT", 8080),
		HealthPort:          getEnvInt("HEALTH_PORT", 8081),
	}

	cfg.RollingWindows = getEnvIntList("ROLLING_WINDOWS", []int{7, 14, 30})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	switch c.AIProvider {
	case ProviderMock:
		// Pure local provider, nothing to check
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER is gemini")
		}
	default:
		return fmt.Errorf("invalid AI_PROVIDER: %s (must be mock, openai, or gemini)", c.AIProvider)
	}

	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 100 {
		return fmt.Errorf("RELEVANCE_THRESHOLD must be in [0,100], got %.2f", c.RelevanceThreshold)
	}

	if c.MaxProxyRounds < 0 {
		return fmt.Errorf("MAX_PROXY_ROUNDS must be >= 0, got %d", c.MaxProxyRounds)
	}

	if c.MinPoints < 2 {
		return fmt.Errorf("MIN_POINTS must be >= 2, got %d", c.MinPoints)
	}

	if c.PriceFetchWorkers < 1 {
		return fmt.Errorf("PRICE_FETCH_WORKERS must be >= 1, got %d", c.PriceFetchWorkers)
	}

	for _, w := range c.RollingWindows {
		if w < 2 {
			return fmt.Errorf("ROLLING_WINDOWS entries must be >= 2, got %d", w)
		}
	}

	for _, mode := range strings.Split(c.ArtifactModes, ",") {
		switch strings.TrimSpace(mode) {
		case "json", "csv", "log":
		default:
			return fmt.Errorf("invalid ARTIFACT_MODES value: %s (valid values: json, csv, log)", mode)
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		intVal, err := strconv.Atoi(part)
		if err != nil {
			return defaultValue
		}
		result = append(result, intVal)
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

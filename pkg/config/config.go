// Package config loads and validates service configuration from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full service configuration. Values come from environment
// variables with production-ready defaults; main loads a .env file first.
type Config struct {
	// HTTP
	HTTPPort string

	// Upstream credentials
	GooglePlacesAPIKey string
	YelpAPIKey         string
	OpenAIAPIKey       string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Provider behavior
	ProviderTimeout       time.Duration
	ProviderMaxRetries    int
	MaxResultsPerProvider int

	// Search defaults and bounds
	DefaultRadiusM int
	MaxRadiusM     int
	DefaultTopK    int
	RequestTimeout time.Duration

	// Fusion
	NameSimilarityThreshold float64 // [0,1], applied as x100 against the fuzzy ratio
	GeoDistanceThresholdM   float64

	// Multi-entity
	DefaultNearDistanceM float64

	// Matching
	SemanticMatchThreshold float64
	EnableSemanticMatching bool

	// Ranking
	RankingPreset              string
	MaxPersonalizationBoostPts float64

	// Agent
	AgentMode string

	// Caching and follow-ups
	CacheTTL        time.Duration
	ConversationTTL time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from the environment, applying defaults and
// validating ranges.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:                   getEnv("HTTP_PORT", "8080"),
		GooglePlacesAPIKey:         os.Getenv("GOOGLE_PLACES_API_KEY"),
		YelpAPIKey:                 os.Getenv("YELP_API_KEY"),
		OpenAIAPIKey:               os.Getenv("OPENAI_API_KEY"),
		RedisAddr:                  getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:              os.Getenv("REDIS_PASSWORD"),
		RankingPreset:              getEnv("RANKING_PRESET", "balanced"),
		AgentMode:                  getEnv("AGENT_MODE", "full"),
		LogLevel:                   getEnv("LOG_LEVEL", "INFO"),
		NameSimilarityThreshold:    0.82,
		GeoDistanceThresholdM:      120,
		DefaultNearDistanceM:       500,
		SemanticMatchThreshold:     0.75,
		MaxPersonalizationBoostPts: 15,
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries, err = getEnvInt("PROVIDER_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.MaxResultsPerProvider, err = getEnvInt("MAX_RESULTS_PER_PROVIDER", 60); err != nil {
		return nil, err
	}
	if cfg.DefaultRadiusM, err = getEnvInt("DEFAULT_RADIUS_M", 3000); err != nil {
		return nil, err
	}
	if cfg.MaxRadiusM, err = getEnvInt("MAX_RADIUS_M", 50000); err != nil {
		return nil, err
	}
	if cfg.DefaultTopK, err = getEnvInt("DEFAULT_TOP_K", 30); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", 1200*time.Second); err != nil {
		return nil, err
	}
	if cfg.ConversationTTL, err = getEnvDuration("CONVERSATION_TTL", 900*time.Second); err != nil {
		return nil, err
	}
	if cfg.NameSimilarityThreshold, err = getEnvFloat("NAME_SIMILARITY_THRESHOLD", cfg.NameSimilarityThreshold); err != nil {
		return nil, err
	}
	if cfg.GeoDistanceThresholdM, err = getEnvFloat("GEO_DISTANCE_THRESHOLD_M", cfg.GeoDistanceThresholdM); err != nil {
		return nil, err
	}
	if cfg.DefaultNearDistanceM, err = getEnvFloat("DEFAULT_NEAR_DISTANCE_M", cfg.DefaultNearDistanceM); err != nil {
		return nil, err
	}
	if cfg.SemanticMatchThreshold, err = getEnvFloat("SEMANTIC_MATCH_THRESHOLD", cfg.SemanticMatchThreshold); err != nil {
		return nil, err
	}
	if cfg.MaxPersonalizationBoostPts, err = getEnvFloat("MAX_PERSONALIZATION_BOOST_PTS", cfg.MaxPersonalizationBoostPts); err != nil {
		return nil, err
	}
	cfg.EnableSemanticMatching = getEnv("ENABLE_SEMANTIC_MATCHING", "true") == "true"

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.NameSimilarityThreshold < 0 || c.NameSimilarityThreshold > 1 {
		return fmt.Errorf("NAME_SIMILARITY_THRESHOLD must be within [0, 1], got %v", c.NameSimilarityThreshold)
	}
	if c.SemanticMatchThreshold < 0 || c.SemanticMatchThreshold > 1 {
		return fmt.Errorf("SEMANTIC_MATCH_THRESHOLD must be within [0, 1], got %v", c.SemanticMatchThreshold)
	}
	if c.GeoDistanceThresholdM <= 0 {
		return fmt.Errorf("GEO_DISTANCE_THRESHOLD_M must be positive, got %v", c.GeoDistanceThresholdM)
	}
	if c.MaxRadiusM <= 0 || c.DefaultRadiusM <= 0 || c.DefaultRadiusM > c.MaxRadiusM {
		return fmt.Errorf("invalid radius configuration: default %d, max %d", c.DefaultRadiusM, c.MaxRadiusM)
	}
	switch c.AgentMode {
	case "full", "deterministic":
	default:
		return fmt.Errorf("AGENT_MODE must be 'full' or 'deterministic', got %q", c.AgentMode)
	}
	switch c.RankingPreset {
	case "balanced", "nearby", "review-heavy":
	default:
		return fmt.Errorf("RANKING_PRESET must be one of balanced, nearby, review-heavy, got %q", c.RankingPreset)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	// Accept plain seconds for compatibility with the original deployment env.
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

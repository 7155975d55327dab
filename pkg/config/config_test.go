package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.HTTPPort)
		assert.Equal(t, 10*time.Second, cfg.ProviderTimeout)
		assert.Equal(t, 3, cfg.ProviderMaxRetries)
		assert.Equal(t, 3000, cfg.DefaultRadiusM)
		assert.Equal(t, 50000, cfg.MaxRadiusM)
		assert.Equal(t, 0.82, cfg.NameSimilarityThreshold)
		assert.Equal(t, 120.0, cfg.GeoDistanceThresholdM)
		assert.Equal(t, 500.0, cfg.DefaultNearDistanceM)
		assert.Equal(t, 0.75, cfg.SemanticMatchThreshold)
		assert.Equal(t, 900*time.Second, cfg.ConversationTTL)
		assert.Equal(t, 1200*time.Second, cfg.CacheTTL)
		assert.Equal(t, "balanced", cfg.RankingPreset)
		assert.True(t, cfg.EnableSemanticMatching)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "9090")
		t.Setenv("PROVIDER_TIMEOUT", "5s")
		t.Setenv("CONVERSATION_TTL", "600")
		t.Setenv("NAME_SIMILARITY_THRESHOLD", "0.9")
		t.Setenv("AGENT_MODE", "deterministic")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.HTTPPort)
		assert.Equal(t, 5*time.Second, cfg.ProviderTimeout)
		assert.Equal(t, 600*time.Second, cfg.ConversationTTL)
		assert.Equal(t, 0.9, cfg.NameSimilarityThreshold)
		assert.Equal(t, "deterministic", cfg.AgentMode)
	})

	t.Run("rejects malformed numbers", func(t *testing.T) {
		t.Setenv("PROVIDER_MAX_RETRIES", "three")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects out-of-range threshold", func(t *testing.T) {
		t.Setenv("NAME_SIMILARITY_THRESHOLD", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects unknown agent mode", func(t *testing.T) {
		t.Setenv("AGENT_MODE", "turbo")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("rejects unknown ranking preset", func(t *testing.T) {
		t.Setenv("RANKING_PRESET", "fastest")
		_, err := Load()
		assert.Error(t, err)
	})
}

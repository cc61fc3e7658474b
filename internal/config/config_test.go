package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{JwtSecret: "secret"},
		Database: DatabaseConfig{Connection: "postgres://localhost/ragone"},
		Retrieval: RetrievalConfig{
			VectorWeight:       0.7,
			KeywordWeight:      0.3,
			MaxResults:         10,
			RerankEnabled:      true,
			RelevanceWeight:    0.9,
			DiversityWeight:    0.1,
			MaxRerankedResults: 5,
		},
		ChatCache: ChatCacheConfig{Enabled: true, Backend: "redis", MaxConversationTurns: 10, TTLHours: 24},
		Profile:   ProfileConfig{TemplateEnabled: true, TemplatePreset: "standard", QueryCap: 5},
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dsn", func(c *Config) { c.Database.Connection = "" }, "DB_CONNECTION_STRING"},
		{"missing jwt secret", func(c *Config) { c.App.JwtSecret = "" }, "JWT_SECRET"},
		{"negative weight", func(c *Config) { c.Retrieval.KeywordWeight = -0.1 }, "negative"},
		{"zero max results", func(c *Config) { c.Retrieval.MaxResults = 0 }, "RETRIEVAL_MAX_RESULTS"},
		{"zero reranked results", func(c *Config) { c.Retrieval.MaxRerankedResults = 0 }, "RERANK_MAX_RESULTS"},
		{"zero turns", func(c *Config) { c.ChatCache.MaxConversationTurns = 0 }, "CHAT_MAX_CONVERSATION_TURNS"},
		{"short ttl", func(c *Config) { c.ChatCache.TTLHours = 0 }, "CHAT_SESSION_TTL_HOURS"},
		{"unknown backend", func(c *Config) { c.ChatCache.Backend = "memcached" }, "CHAT_CACHE_BACKEND"},
		{"unknown preset", func(c *Config) { c.Profile.TemplatePreset = "fancy" }, "PROFILE_TEMPLATE_PRESET"},
		{"too many examples", func(c *Config) { c.Profile.ExampleCount = 11 }, "PROFILE_EXAMPLE_COUNT"},
		{"unknown section", func(c *Config) { c.Profile.DisabledSections = []string{"epilogue"} }, "epilogue"},
		{"zero query cap", func(c *Config) { c.Profile.QueryCap = 0 }, "PROFILE_QUERY_CAP"},
		{"sample ratio above one", func(c *Config) { c.Tracing = TracingConfig{Enabled: true, SampleRatio: 1.5} }, "OTEL_SAMPLE_RATIO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.MaxResults = 0
	cfg.ChatCache.Backend = "disk"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RETRIEVAL_MAX_RESULTS")
	assert.Contains(t, err.Error(), "CHAT_CACHE_BACKEND")
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("RETRIEVAL_HYBRID_ENABLED", "true")
	t.Setenv("RETRIEVAL_VECTOR_WEIGHT", "0.5")
	t.Setenv("CHAT_CACHE_BACKEND", "memory")
	t.Setenv("PROFILE_DISABLED_SECTIONS", " workflow , examples,")
	t.Setenv("RERANK_MAX_RESULTS", "not-a-number")

	cfg := Load()
	assert.True(t, cfg.Retrieval.HybridEnabled)
	assert.Equal(t, 0.5, cfg.Retrieval.VectorWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.KeywordWeight)
	assert.Equal(t, "memory", cfg.ChatCache.Backend)
	assert.Equal(t, []string{"workflow", "examples"}, cfg.Profile.DisabledSections)
	assert.Equal(t, 5, cfg.Retrieval.MaxRerankedResults)
	assert.Equal(t, "logs/profile_audit.log", cfg.Profile.AuditLogPath)
}

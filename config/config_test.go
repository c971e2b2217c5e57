package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *Config {
	return &Config{
		AppName:     "fashion-rag-backend",
		APIVersion:  "v1",
		Environment: "development",
		RateLimit:   RateLimitConfig{PerMinute: 60, WindowSeconds: 60},
		Chunking:    ChunkingConfig{Size: 512, Overlap: 50},
		VectorStore: VectorStoreConfig{
			URL:        "http://localhost:6333",
			Collection: "knowledge_chunks",
			Dimension:  768,
		},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "")
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("VECTOR_COLLECTION_NAME", "")
	t.Setenv("EMBEDDING_DIMENSION", "")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, "knowledge_chunks", cfg.VectorStore.Collection)
	assert.Equal(t, 768, cfg.VectorStore.Dimension)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
}

func TestNew_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "256")
	t.Setenv("CHUNK_OVERLAP", "32")
	t.Setenv("VECTOR_COLLECTION_NAME", "fashion_docs")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("FUSION_PRODUCT_FIRST", "true")
	t.Setenv("GENERATION_TIMEOUT", "5s")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 256, cfg.Chunking.Size)
	assert.Equal(t, 32, cfg.Chunking.Overlap)
	assert.Equal(t, "fashion_docs", cfg.VectorStore.Collection)
	assert.Equal(t, 30, cfg.RateLimit.WindowSeconds)
	assert.True(t, cfg.Fusion.ProductFirst)
	assert.Equal(t, 5*time.Second, cfg.Generation.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero chunk size", func(c *Config) { c.Chunking.Size = 0 }, "CHUNK_SIZE"},
		{"overlap equals size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, "CHUNK_OVERLAP"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "CHUNK_OVERLAP"},
		{"zero rate limit", func(c *Config) { c.RateLimit.PerMinute = 0 }, "RATE_LIMIT_PER_MINUTE"},
		{"zero window", func(c *Config) { c.RateLimit.WindowSeconds = 0 }, "RATE_LIMIT_WINDOW_SECONDS"},
		{"missing store url", func(c *Config) { c.VectorStore.URL = "" }, "VECTOR_STORE_URL"},
		{"missing collection", func(c *Config) { c.VectorStore.Collection = "" }, "VECTOR_COLLECTION_NAME"},
		{"zero dimension", func(c *Config) { c.VectorStore.Dimension = 0 }, "EMBEDDING_DIMENSION"},
		{"production without api key", func(c *Config) { c.Environment = "production" }, "API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_ProductionWithAPIKey(t *testing.T) {
	cfg := baseConfig()
	cfg.Environment = "production"
	cfg.Auth.APIKey = "secret"

	assert.NoError(t, cfg.Validate())
}

func TestRateLimitConfig_Limit(t *testing.T) {
	tests := []struct {
		name          string
		perMinute     int
		windowSeconds int
		want          int
	}{
		{"one minute window", 60, 60, 60},
		{"half minute window", 60, 30, 30},
		{"two minute window", 60, 120, 120},
		{"tiny budget floors at one", 1, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := RateLimitConfig{PerMinute: tt.perMinute, WindowSeconds: tt.windowSeconds}
			assert.Equal(t, tt.want, c.Limit())
		})
	}
}

func TestRateLimitConfig_Window(t *testing.T) {
	c := RateLimitConfig{WindowSeconds: 45}
	assert.Equal(t, 45*time.Second, c.Window())
}

func TestGenerationConfig_Enabled(t *testing.T) {
	assert.False(t, GenerationConfig{}.Enabled())
	assert.True(t, GenerationConfig{APIKey: "k"}.Enabled())
}

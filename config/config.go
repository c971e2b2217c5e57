package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	AppName       string
	APIVersion    string
	Environment   string
	Server        ServerConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Chunking      ChunkingConfig
	VectorStore   VectorStoreConfig
	Generation    GenerationConfig
	Catalog       CatalogConfig
	Fusion        FusionConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds the shared-secret gate. Authentication is disabled when
// APIKey is empty.
type AuthConfig struct {
	APIKey string
}

// RateLimitConfig holds sliding-window admission control parameters
type RateLimitConfig struct {
	PerMinute     int
	WindowSeconds int
}

// Window returns the configured sliding window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Limit returns the request budget scaled from per-minute to the configured
// window length.
func (c RateLimitConfig) Limit() int {
	limit := c.PerMinute * c.WindowSeconds / 60
	if limit < 1 {
		limit = 1
	}
	return limit
}

// ChunkingConfig holds default chunker parameters (overridable per ingest call)
type ChunkingConfig struct {
	Size    int
	Overlap int
}

// VectorStoreConfig holds connection details for the external vector store
type VectorStoreConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

// GenerationConfig holds generation-backend credentials and model ids
type GenerationConfig struct {
	APIKey          string
	EmbeddingsModel string
	LLMModel        string
	Timeout         time.Duration
}

// Enabled reports whether a generation backend is configured.
func (c GenerationConfig) Enabled() bool {
	return c.APIKey != ""
}

// CatalogConfig holds the product catalog source location
type CatalogConfig struct {
	DataPath string
}

// FusionConfig holds the evidence interleave policy
type FusionConfig struct {
	// ProductFirst flips the tie-break at equal normalized score so product
	// evidence ranks ahead of knowledge evidence.
	ProductFirst bool
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel   string
	TraceUIURL string
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppName:     getEnv("APP_NAME", "fashion-rag-backend"),
		APIVersion:  getEnv("API_VERSION", "v1"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8000),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			APIKey: getEnv("API_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			PerMinute:     getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		Chunking: ChunkingConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 512),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 50),
		},
		VectorStore: VectorStoreConfig{
			URL:        getEnv("VECTOR_STORE_URL", "http://localhost:6333"),
			APIKey:     getEnv("VECTOR_STORE_API_KEY", ""),
			Collection: getEnv("VECTOR_COLLECTION_NAME", "knowledge_chunks"),
			Dimension:  getEnvAsInt("EMBEDDING_DIMENSION", 768),
			Timeout:    getEnvAsDuration("VECTOR_STORE_TIMEOUT", 15*time.Second),
		},
		Generation: GenerationConfig{
			APIKey:          getEnv("GEMINI_API_KEY", ""),
			EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "models/text-embedding-004"),
			LLMModel:        getEnv("LLM_MODEL", "gemini-2.5-flash"),
			Timeout:         getEnvAsDuration("GENERATION_TIMEOUT", 20*time.Second),
		},
		Catalog: CatalogConfig{
			DataPath: getEnv("PRODUCT_DATA_PATH", "data/products.jsonl"),
		},
		Fusion: FusionConfig{
			ProductFirst: getEnvAsBool("FUSION_PRODUCT_FIRST", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:   getEnv("LOG_LEVEL", "info"),
			TraceUIURL: getEnv("TRACE_UI_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are consistent
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("CHUNK_OVERLAP must satisfy 0 <= overlap < CHUNK_SIZE")
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive")
	}
	if c.VectorStore.URL == "" {
		return fmt.Errorf("VECTOR_STORE_URL is required")
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("VECTOR_COLLECTION_NAME is required")
	}
	if c.VectorStore.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	if c.IsProduction() && c.Auth.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RerankingMode selects whether candidates go through the cross-encoder.
type RerankingMode string

const (
	RerankingEnabled  RerankingMode = "enabled"
	RerankingDisabled RerankingMode = "disabled"
)

// AgentToolCount selects how many tools the toolbox exposes to an external agent.
type AgentToolCount string

const (
	AgentToolsSingle AgentToolCount = "single"
	AgentToolsMulti  AgentToolCount = "multi"
)

// Vector backends.
const (
	BackendQdrant = "qdrant"
	BackendChroma = "chroma"
	BackendSQLite = "sqlite"
)

// DefaultCollectionName is the collection used when COLLECTION_NAME is unset.
const DefaultCollectionName = "seade_gecon"

// ConfigurationError reports a missing or malformed setting.
// The system must not start when Load or Validate returns one.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error // optional sentinel for errors.Is
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL     string
	LLMModelName   string
	LLMAPIKey      string
	LLMTemperature float32
	LLMMaxTokens   int

	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingAPIKey    string

	RerankBaseURL   string
	RerankModelName string
	RerankAPIKey    string
	RerankingMode   RerankingMode

	VectorBackend  string
	QdrantURL      string
	ChromaURL      string
	CollectionName string
	VectorSize     int

	ChunkSize    int
	ChunkOverlap int

	DBPath          string
	DocumentsDir    string
	QueryLogPath    string
	QueryLogEnabled bool

	EmbedTimeout      time.Duration
	RerankTimeout     time.Duration
	GenerateTimeout   time.Duration
	RequestsPerSecond float64

	AgentToolCount   AgentToolCount
	UnidocLicenseKey string

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a validated Config.
// If a .env file exists in the current directory or a parent, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	llmAPIKey := getEnv("LLM_API_KEY", "")

	cfg := &Config{
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMModelName:       getEnv("LLM_MODEL_NAME", "gpt-4o"),
		LLMAPIKey:          llmAPIKey,
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-3-small"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", llmAPIKey),
		RerankBaseURL:      getEnv("RERANK_BASE_URL", ""),
		RerankModelName:    getEnv("RERANK_MODEL_NAME", "cross-encoder/ms-marco-MiniLM-L-6-v2"),
		RerankAPIKey:       getEnv("RERANK_API_KEY", llmAPIKey),
		RerankingMode:      RerankingMode(strings.ToLower(getEnv("RERANKING_MODE", string(RerankingEnabled)))),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendQdrant)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		ChromaURL:          getEnv("CHROMA_URL", "http://localhost:8000"),
		CollectionName:     SanitizeCollectionName(getEnv("COLLECTION_NAME", DefaultCollectionName)),
		DBPath:             getEnv("DB_PATH", "./data/econ-rag.db"),
		DocumentsDir:       getEnv("DOCUMENTS_DIR", "./data/documents"),
		QueryLogPath:       getEnv("QUERY_LOG_PATH", "./data/query_log.csv"),
		AgentToolCount:     AgentToolCount(strings.ToLower(getEnv("AGENT_TOOL_COUNT", string(AgentToolsSingle)))),
		UnidocLicenseKey:   getEnv("UNIDOC_LICENSE_KEY", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	// The vector size must match the embedding model output. Changing it
	// requires recreating the collection.
	vectorSizeStr := getEnv("VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, &ConfigurationError{Field: "VECTOR_SIZE", Message: "is required"}
	}
	if cfg.VectorSize, err = strconv.Atoi(vectorSizeStr); err != nil {
		return nil, &ConfigurationError{Field: "VECTOR_SIZE", Message: "must be a valid integer"}
	}

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 100); err != nil {
		return nil, err
	}
	if cfg.LLMMaxTokens, err = getEnvInt("LLM_MAX_TOKENS", 5000); err != nil {
		return nil, err
	}
	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.1)
	if err != nil {
		return nil, err
	}
	cfg.LLMTemperature = float32(temperature)
	if cfg.RequestsPerSecond, err = getEnvFloat("REQUESTS_PER_SECOND", 10); err != nil {
		return nil, err
	}
	if cfg.QueryLogEnabled, err = getEnvBool("QUERY_LOG_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.EmbedTimeout, err = getEnvDuration("EMBED_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RerankTimeout, err = getEnvDuration("RERANK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GenerateTimeout, err = getEnvDuration("GENERATE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Validate checks that every field needed to construct the pipeline is present and well formed.
func (c *Config) Validate() error {
	if c.LLMAPIKey == "" {
		return &ConfigurationError{Field: "LLM_API_KEY", Message: "is required"}
	}
	if err := validateURL("LLM_BASE_URL", c.LLMBaseURL); err != nil {
		return err
	}
	if err := validateURL("EMBEDDING_BASE_URL", c.EmbeddingBaseURL); err != nil {
		return err
	}
	if c.LLMModelName == "" {
		return &ConfigurationError{Field: "LLM_MODEL_NAME", Message: "is required"}
	}
	if c.EmbeddingModelName == "" {
		return &ConfigurationError{Field: "EMBEDDING_MODEL_NAME", Message: "is required"}
	}

	switch c.RerankingMode {
	case RerankingEnabled, RerankingDisabled:
	default:
		return &ConfigurationError{Field: "RERANKING_MODE", Message: fmt.Sprintf("must be %q or %q", RerankingEnabled, RerankingDisabled)}
	}
	if c.RerankBaseURL != "" {
		if err := validateURL("RERANK_BASE_URL", c.RerankBaseURL); err != nil {
			return err
		}
	}

	switch c.VectorBackend {
	case BackendQdrant:
		if err := validateURL("QDRANT_URL", c.QdrantURL); err != nil {
			return err
		}
	case BackendChroma:
		if err := validateURL("CHROMA_URL", c.ChromaURL); err != nil {
			return err
		}
	case BackendSQLite:
		if c.DBPath == "" {
			return &ConfigurationError{Field: "DB_PATH", Message: "is required for the sqlite backend"}
		}
	default:
		return &ConfigurationError{Field: "VECTOR_BACKEND", Message: "must be one of qdrant, chroma, sqlite"}
	}

	if c.CollectionName == "" {
		return &ConfigurationError{Field: "COLLECTION_NAME", Message: "is required"}
	}
	if c.VectorSize <= 0 {
		return &ConfigurationError{Field: "VECTOR_SIZE", Message: "must be greater than 0"}
	}
	if c.ChunkSize <= 0 {
		return &ConfigurationError{Field: "CHUNK_SIZE", Message: "must be greater than 0"}
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return &ConfigurationError{Field: "CHUNK_OVERLAP", Message: "must be >= 0 and smaller than CHUNK_SIZE"}
	}
	if c.LLMMaxTokens <= 0 {
		return &ConfigurationError{Field: "LLM_MAX_TOKENS", Message: "must be greater than 0"}
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return &ConfigurationError{Field: "LLM_TEMPERATURE", Message: "must be between 0 and 2"}
	}
	if c.RequestsPerSecond <= 0 {
		return &ConfigurationError{Field: "REQUESTS_PER_SECOND", Message: "must be greater than 0"}
	}
	if c.QueryLogEnabled && c.QueryLogPath == "" {
		return &ConfigurationError{Field: "QUERY_LOG_PATH", Message: "is required when query logging is enabled"}
	}

	switch c.AgentToolCount {
	case AgentToolsSingle, AgentToolsMulti:
	default:
		return &ConfigurationError{Field: "AGENT_TOOL_COUNT", Message: fmt.Sprintf("must be %q or %q", AgentToolsSingle, AgentToolsMulti)}
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return &ConfigurationError{Field: "LOG_FORMAT", Message: "must be json or text"}
	}

	return nil
}

// RerankEnabled reports whether a cross-encoder is both requested and reachable by configuration.
func (c *Config) RerankEnabled() bool {
	return c.RerankingMode == RerankingEnabled && c.RerankBaseURL != ""
}

func validateURL(field, raw string) error {
	if raw == "" {
		return &ConfigurationError{Field: field, Message: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigurationError{Field: field, Message: "must be an http(s) URL"}
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, &ConfigurationError{Field: "LOG_LEVEL", Message: "must be debug, info, warn or error"}
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
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
		return 0, &ConfigurationError{Field: key, Message: "must be a valid integer"}
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
		return 0, &ConfigurationError{Field: key, Message: "must be a valid number"}
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ConfigurationError{Field: key, Message: "must be a boolean"}
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, &ConfigurationError{Field: key, Message: "must be a positive duration such as 10s"}
	}
	return v, nil
}

// Package config loads the process-wide configuration for the retrieval
// service from the environment, following the env-first, no-panics pattern
// of manifold's internal/config.Load: read env vars, fall back to sane
// defaults, validate once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMProvider selects which external LLM backend answers queries.
type LLMProvider string

const (
	ProviderGemini      LLMProvider = "gemini"
	ProviderOpenAI      LLMProvider = "openai"
	ProviderAnthropic   LLMProvider = "anthropic"
	ProviderPlaceholder LLMProvider = "placeholder"
)

// DBConfig holds the relational chunk-store connection settings (§6: DB_*).
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds a libpq-style connection string for pgx.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Config is the fully-resolved, validated process configuration.
type Config struct {
	DB DBConfig

	// ChromaPersistDir holds env CHROMA_PERSIST_DIR (default ./chroma_db).
	// No component reads it: the vector store is either the Qdrant backend
	// addressed by VectorStoreDSN or the in-memory store.
	ChromaPersistDir string
	// VectorStoreDSN addresses the Qdrant backend, e.g.
	// "http://localhost:6334".
	VectorStoreDSN  string
	CollectionName  string
	EmbeddingDim    int

	LLMProvider  LLMProvider
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	AnthropicKey string
	AnthropicModel string

	EmbeddingBaseURL string
	EmbeddingPath    string
	EmbeddingModel   string
	EmbeddingAPIKey  string
	EmbeddingAPIHeader string

	LogLevel string
	LogFile  string

	// HTTPAddr is the address the echo gateway listens on, e.g. ":8080".
	HTTPAddr string

	// UseMemoryStores, when true, backs the chunk store and vector store with
	// in-process implementations instead of Postgres/Qdrant. Intended for
	// local development and demos, not production deployments.
	UseMemoryStores bool

	// Ingestion/indexing/query defaults (§4.2, §4.7, §4.8).
	ChunkSize        int
	ChunkOverlap     int
	MinChunkSize     int
	MaxChunkSize     int
	InitialBatchSize int
	MinBatchSize     int
	MaxBatchSize     int
	TopKDefault      int
	MaxContextChars  int
	ContextCacheSize int
	ChunksCacheSize  int
	MaxUploadBytes   int64
}

// Load reads .env (if present) via godotenv, then overlays process
// environment variables, applying defaults for everything unset. It never
// panics; callers decide whether a missing secret is fatal.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DB: DBConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenvInt("DB_PORT", 5432),
			User:     getenv("DB_USER", "postgres"),
			Password: getenv("DB_PASSWORD", ""),
			Name:     getenv("DB_NAME", "ragcore"),
			SSLMode:  getenv("DB_SSLMODE", "disable"),
		},
		ChromaPersistDir: getenv("CHROMA_PERSIST_DIR", "./chroma_db"),
		VectorStoreDSN:   getenv("VECTOR_STORE_DSN", "http://localhost:6334"),
		CollectionName:   getenv("VECTOR_COLLECTION", "documents"),
		EmbeddingDim:     getenvInt("EMBEDDING_DIM", 768),

		LLMProvider:    LLMProvider(strings.ToLower(getenv("LLM_PROVIDER", string(ProviderPlaceholder)))),
		GeminiAPIKey:   getenv("GEMINI_API_KEY", ""),
		GeminiModel:    getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:   getenv("OPENAI_API_KEY", ""),
		OpenAIModel:    getenv("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicKey:   getenv("ANTHROPIC_API_KEY", ""),
		AnthropicModel: getenv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		EmbeddingBaseURL:   getenv("EMBEDDING_BASE_URL", "http://localhost:8080"),
		EmbeddingPath:      getenv("EMBEDDING_PATH", "/v1/embeddings"),
		EmbeddingModel:     getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKey:    getenv("EMBEDDING_API_KEY", ""),
		EmbeddingAPIHeader: getenv("EMBEDDING_API_HEADER", "Authorization"),

		LogLevel: getenv("LOG_LEVEL", "info"),
		LogFile:  getenv("LOG_FILE", ""),

		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		UseMemoryStores: getenvBool("USE_MEMORY_STORES", false),

		ChunkSize:        getenvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:     getenvInt("CHUNK_OVERLAP", 200),
		MinChunkSize:     getenvInt("MIN_CHUNK_SIZE", 100),
		MaxChunkSize:     getenvInt("MAX_CHUNK_SIZE", 2000),
		InitialBatchSize: getenvInt("INDEX_INITIAL_BATCH_SIZE", 6),
		MinBatchSize:     getenvInt("INDEX_MIN_BATCH_SIZE", 2),
		MaxBatchSize:     getenvInt("INDEX_MAX_BATCH_SIZE", 8),
		TopKDefault:      getenvInt("QUERY_TOP_K_DEFAULT", 5),
		MaxContextChars:  getenvInt("QUERY_MAX_CONTEXT_CHARS", 4000),
		ContextCacheSize: getenvInt("QUERY_CONTEXT_CACHE_SIZE", 128),
		ChunksCacheSize:  getenvInt("QUERY_CHUNKS_CACHE_SIZE", 128),
		MaxUploadBytes:   int64(getenvInt("MAX_UPLOAD_BYTES", 50*1024*1024)),
	}

	if path := getenv("CONFIG_FILE", ""); path != "" {
		if err := applyFileOverrides(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	switch cfg.LLMProvider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderPlaceholder:
	default:
		return Config{}, fmt.Errorf("config: unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	return cfg, nil
}

// fileOverrides is the subset of Config an operator can pin in a checked-in
// YAML file rather than the environment, for settings that rarely change
// between deploys (vector store address, default LLM, chunk sizing).
// Anything left zero in the file keeps its env/default value.
type fileOverrides struct {
	VectorStoreDSN string `yaml:"vector_store_dsn,omitempty"`
	CollectionName string `yaml:"collection_name,omitempty"`
	LLMProvider    string `yaml:"llm_provider,omitempty"`
	ChunkSize      int    `yaml:"chunk_size,omitempty"`
	ChunkOverlap   int    `yaml:"chunk_overlap,omitempty"`
	TopKDefault    int    `yaml:"top_k_default,omitempty"`
}

// applyFileOverrides reads a YAML file named by CONFIG_FILE and overlays its
// non-zero fields onto cfg.
func applyFileOverrides(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var over fileOverrides
	if err := yaml.Unmarshal(data, &over); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if over.VectorStoreDSN != "" {
		cfg.VectorStoreDSN = over.VectorStoreDSN
	}
	if over.CollectionName != "" {
		cfg.CollectionName = over.CollectionName
	}
	if over.LLMProvider != "" {
		cfg.LLMProvider = LLMProvider(strings.ToLower(over.LLMProvider))
	}
	if over.ChunkSize != 0 {
		cfg.ChunkSize = over.ChunkSize
	}
	if over.ChunkOverlap != 0 {
		cfg.ChunkOverlap = over.ChunkOverlap
	}
	if over.TopKDefault != 0 {
		cfg.TopKDefault = over.TopKDefault
	}
	return nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

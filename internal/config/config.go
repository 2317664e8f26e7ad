package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Blob storage
	BlobRoot string

	// Status store
	StatusDBPath string

	// OCR service
	OCRBaseURL string
	OCRAPIKey  string

	// LLM completion
	AnthropicAPIKey string
	AnthropicModel  string

	// Embeddings
	EmbedBaseURL string
	EmbedAPIKey  string
	EmbedModel   string

	// Concurrency bounds. Page OCR fan-out is deliberately unbounded;
	// section extraction is tightly bounded to respect LLM rate limits.
	SectionConcurrency int

	// Retrieval
	RetrievalTopK int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// HTTP timeouts for external service clients.
	ClientTimeout time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("CHARTMATE_API_KEY"),

		BlobRoot: envOr("BLOB_ROOT", "./data/blobs"),

		StatusDBPath: envOr("STATUS_DB_PATH", "./data/status.db"),

		OCRBaseURL: envOr("OCR_BASE_URL", "http://localhost:8500"),
		OCRAPIKey:  os.Getenv("OCR_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),

		EmbedBaseURL: envOr("EMBED_BASE_URL", "https://api.openai.com/v1"),
		EmbedAPIKey:  os.Getenv("EMBED_API_KEY"),
		EmbedModel:   envOr("EMBED_MODEL", "text-embedding-3-small"),

		SectionConcurrency: envInt("SECTION_CONCURRENCY", 2),

		RetrievalTopK: envInt("RETRIEVAL_TOP_K", 6),

		ChunkSize:    envInt("CHUNK_SIZE", 1000),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 150),

		ClientTimeout: envDuration("CLIENT_TIMEOUT", 120*time.Second),
	}

	if cfg.SectionConcurrency <= 0 {
		cfg.SectionConcurrency = 2
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = 6
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 150
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = 120 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("CHARTMATE_API_KEY is required")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.EmbedAPIKey == "" {
		return fmt.Errorf("EMBED_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

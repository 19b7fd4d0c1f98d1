// Package config provides configuration loading for mediad.
package config

import (
	"fmt"
	"time"
)

// Config is the full daemon configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Store       StoreConfig       `koanf:"store"`
	VectorIndex VectorIndexConfig `koanf:"vectorindex"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Search      SearchConfig      `koanf:"search"`
	Quotas      QuotasConfig      `koanf:"quotas"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StoreConfig holds the relational catalog configuration.
type StoreConfig struct {
	// DSN is the MySQL data source name. Redacted in logs; it usually
	// embeds credentials.
	DSN          Secret `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`

	// Memory selects the in-process catalog instead of MySQL. Intended
	// for development and tests.
	Memory bool `koanf:"memory"`
}

// VectorIndexConfig selects and configures the vector index backend.
type VectorIndexConfig struct {
	// Backend is "chromem" (embedded, default) or "qdrant".
	Backend string `koanf:"backend"`

	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`

	QdrantHost       string `koanf:"qdrant_host"`
	QdrantPort       int    `koanf:"qdrant_port"`
	QdrantCollection string `koanf:"qdrant_collection"`
	QdrantUseTLS     bool   `koanf:"qdrant_use_tls"`

	// VectorSize must match the embedding provider's output.
	VectorSize int `koanf:"vector_size"`
}

// EmbeddingsConfig holds the embedding provider configuration.
type EmbeddingsConfig struct {
	// Provider is "http" (default) or "static" (deterministic dev/test
	// provider, no external service).
	Provider string   `koanf:"provider"`
	BaseURL  string   `koanf:"base_url"`
	Model    string   `koanf:"model"`
	APIKey   Secret   `koanf:"api_key"`
	Timeout  Duration `koanf:"timeout"`
}

// WeightsConfig holds per-field relevance weights.
type WeightsConfig struct {
	Filename float64 `koanf:"filename"`
	Title    float64 `koanf:"title"`
	Tags     float64 `koanf:"tags"`
}

// SearchConfig holds orchestration, cache, and scoring configuration.
type SearchConfig struct {
	DefaultLimit  int      `koanf:"default_limit"`
	MaxLimit      int      `koanf:"max_limit"`
	MinSimilarity float64  `koanf:"min_similarity"`
	VectorTimeout Duration `koanf:"vector_timeout"`

	CacheVectorTTL   Duration `koanf:"cache_vector_ttl"`
	CacheMetadataTTL Duration `koanf:"cache_metadata_ttl"`
	CacheMaxEntries  int      `koanf:"cache_max_entries"`
	CacheHotUsageMin int      `koanf:"cache_hot_usage_min"`

	PhotoWeights WeightsConfig `koanf:"photo_weights"`
	VideoWeights WeightsConfig `koanf:"video_weights"`
}

// QuotasConfig holds default per-tenant quotas.
type QuotasConfig struct {
	SearchesPerMinute      int   `koanf:"searches_per_minute"`
	UploadsPerMinute       int   `koanf:"uploads_per_minute"`
	StorageWritesPerMinute int   `koanf:"storage_writes_per_minute"`
	MaxStorageBytes        int64 `koanf:"max_storage_bytes"`
	MaxTenants             int   `koanf:"max_tenants"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			MaxOpenConns: 25,
		},
		VectorIndex: VectorIndexConfig{
			Backend:          "chromem",
			QdrantHost:       "localhost",
			QdrantPort:       6334,
			QdrantCollection: "media",
			VectorSize:       384,
		},
		Embeddings: EmbeddingsConfig{
			Provider: "http",
			Timeout:  Duration(5 * time.Second),
		},
		Search: SearchConfig{
			DefaultLimit:     20,
			MaxLimit:         100,
			MinSimilarity:    0.30,
			VectorTimeout:    Duration(5 * time.Second),
			CacheVectorTTL:   Duration(10 * time.Minute),
			CacheMetadataTTL: Duration(time.Minute),
			CacheMaxEntries:  256,
			CacheHotUsageMin: 3,
			PhotoWeights:     WeightsConfig{Filename: 0.5, Tags: 0.3},
			VideoWeights:     WeightsConfig{Filename: 0.4, Title: 0.4, Tags: 0.2},
		},
		Quotas: QuotasConfig{
			SearchesPerMinute:      60,
			UploadsPerMinute:       20,
			StorageWritesPerMinute: 60,
			MaxStorageBytes:        10 << 30,
			MaxTenants:             10_000,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	switch c.VectorIndex.Backend {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("vectorindex backend must be 'chromem' or 'qdrant', got %q", c.VectorIndex.Backend)
	}
	if c.VectorIndex.VectorSize <= 0 {
		return fmt.Errorf("vector size must be positive, got %d", c.VectorIndex.VectorSize)
	}
	switch c.Embeddings.Provider {
	case "http", "static":
	default:
		return fmt.Errorf("embeddings provider must be 'http' or 'static', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Provider == "http" && c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings base_url required for http provider")
	}
	if !c.Store.Memory && !c.Store.DSN.IsSet() {
		return fmt.Errorf("store dsn required unless memory store is enabled")
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity >= 1 {
		return fmt.Errorf("min_similarity must be in [0,1), got %v", c.Search.MinSimilarity)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("invalid search limits: default %d, max %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

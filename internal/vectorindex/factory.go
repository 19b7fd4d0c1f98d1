package vectorindex

import (
	"fmt"

	"go.uber.org/zap"
)

// Backend names accepted by the factory.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// Config selects and configures a vector index backend.
type Config struct {
	// Backend is "chromem" (embedded, default) or "qdrant".
	Backend string

	Chromem ChromemConfig
	Qdrant  QdrantConfig
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendChromem
	}
	c.Chromem.ApplyDefaults()
	c.Qdrant.ApplyDefaults()
}

// New constructs the configured backend.
func New(config Config, logger *zap.Logger) (Index, error) {
	config.ApplyDefaults()
	switch config.Backend {
	case BackendChromem:
		return NewChromemIndex(config.Chromem, logger)
	case BackendQdrant:
		return NewQdrantIndex(config.Qdrant, logger)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, config.Backend)
	}
}

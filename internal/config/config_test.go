package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Store.Memory = true
	cfg.Embeddings.Provider = "static"
	return cfg
}

func TestDefaultValidatesWithStoreAndProvider(t *testing.T) {
	// Bare defaults need a DSN and an embeddings endpoint.
	assert.Error(t, Default().Validate())
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"unknown backend", func(c *Config) { c.VectorIndex.Backend = "milvus" }},
		{"zero vector size", func(c *Config) { c.VectorIndex.VectorSize = 0 }},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "openai" }},
		{"http provider without url", func(c *Config) { c.Embeddings.Provider = "http"; c.Embeddings.BaseURL = "" }},
		{"min similarity out of range", func(c *Config) { c.Search.MinSimilarity = 1.0 }},
		{"max limit below default", func(c *Config) { c.Search.MaxLimit = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9999
store:
  memory: true
embeddings:
  provider: static
search:
  min_similarity: 0.5
  cache_vector_ttl: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	// Env beats file.
	t.Setenv("MEDIAD_SERVER_PORT", "7777")
	t.Setenv("MEDIAD_SEARCH_MAX_LIMIT", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, 0.5, cfg.Search.MinSimilarity)
	assert.Equal(t, 30*time.Minute, cfg.Search.CacheVectorTTL.Duration())
	assert.True(t, cfg.Store.Memory)

	// Untouched fields keep their defaults.
	assert.Equal(t, "chromem", cfg.VectorIndex.Backend)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MEDIAD_STORE_MEMORY", "true")
	t.Setenv("MEDIAD_EMBEDDINGS_PROVIDER", "static")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsWorldReadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions")
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("user:hunter2@tcp(db:3306)/mediad")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "hunter2")
	assert.Contains(t, s.Value(), "hunter2")

	b, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hunter2")
	assert.True(t, s.IsSet())
	assert.False(t, Secret("").IsSet())
}

func TestDurationParsing(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

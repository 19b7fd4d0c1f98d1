// Mediad is a multi-tenant media search daemon.
//
// It serves photo and video search over HTTP, combining semantic
// (vector) retrieval with metadata scoring, per-tenant result caching,
// and quota governance.
//
// Configuration is loaded from an optional YAML file plus MEDIAD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults plus environment overrides
//	MEDIAD_STORE_MEMORY=true MEDIAD_EMBEDDINGS_PROVIDER=static mediad
//
//	# Start with a config file
//	mediad -config /etc/mediad/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mediad/internal/config"
	"github.com/fyrsmithlabs/mediad/internal/embeddings"
	"github.com/fyrsmithlabs/mediad/internal/governor"
	"github.com/fyrsmithlabs/mediad/internal/httpapi"
	"github.com/fyrsmithlabs/mediad/internal/logging"
	"github.com/fyrsmithlabs/mediad/internal/search"
	"github.com/fyrsmithlabs/mediad/internal/store"
	"github.com/fyrsmithlabs/mediad/internal/tenant"
	"github.com/fyrsmithlabs/mediad/internal/vectorindex"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  mediad           Start the media search daemon\n")
			fmt.Fprintf(os.Stderr, "  mediad version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("mediad\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "mediad"},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	logger.Info("Starting mediad",
		zap.Int("port", cfg.Server.Port),
		zap.String("vectorindex_backend", cfg.VectorIndex.Backend),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	orch, cleanup, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := httpapi.NewServer(orch, logger, httpapi.Config{Port: cfg.Server.Port})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("search_endpoint", "/api/v1/search"),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// newEngine builds the search engine from configuration: catalog, vector
// index, embedding provider, governor, cache, and the orchestrator on top.
// The returned cleanup closes the vector index.
func newEngine(cfg *config.Config, logger *zap.Logger) (*search.Orchestrator, func(), error) {
	catalog, err := initCatalog(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize media catalog: %w", err)
	}

	index, err := vectorindex.New(vectorindex.Config{
		Backend: cfg.VectorIndex.Backend,
		Chromem: vectorindex.ChromemConfig{
			Path:     cfg.VectorIndex.ChromemPath,
			Compress: cfg.VectorIndex.ChromemCompress,
		},
		Qdrant: vectorindex.QdrantConfig{
			Host:       cfg.VectorIndex.QdrantHost,
			Port:       cfg.VectorIndex.QdrantPort,
			Collection: cfg.VectorIndex.QdrantCollection,
			UseTLS:     cfg.VectorIndex.QdrantUseTLS,
			VectorSize: uint64(cfg.VectorIndex.VectorSize),
		},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	cleanup := func() {
		_ = index.Close()
	}

	provider, err := initEmbeddings(cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	gov := governor.New(governor.Config{
		DefaultQuota: tenant.Quota{
			SearchesPerMinute:      cfg.Quotas.SearchesPerMinute,
			UploadsPerMinute:       cfg.Quotas.UploadsPerMinute,
			StorageWritesPerMinute: cfg.Quotas.StorageWritesPerMinute,
			MaxStorageBytes:        cfg.Quotas.MaxStorageBytes,
		},
		MaxTenants: cfg.Quotas.MaxTenants,
	}, logger)

	cache := search.NewCache(search.CacheConfig{
		VectorTTL:           cfg.Search.CacheVectorTTL.Duration(),
		MetadataTTL:         cfg.Search.CacheMetadataTTL.Duration(),
		MaxEntriesPerTenant: cfg.Search.CacheMaxEntries,
		HotUsageMin:         uint64(cfg.Search.CacheHotUsageMin),
	})

	scorer := search.NewScorer(search.ScorerConfig{
		Photo: search.FieldWeights{
			Filename: cfg.Search.PhotoWeights.Filename,
			Title:    cfg.Search.PhotoWeights.Title,
			Tags:     cfg.Search.PhotoWeights.Tags,
		},
		Video: search.FieldWeights{
			Filename: cfg.Search.VideoWeights.Filename,
			Title:    cfg.Search.VideoWeights.Title,
			Tags:     cfg.Search.VideoWeights.Tags,
		},
	})

	metadata := search.NewMetadataSearch(catalog, scorer, logger)
	vector := search.NewVectorClient(provider, index, search.VectorClientConfig{
		MinSimilarity: cfg.Search.MinSimilarity,
	}, logger)

	orch := search.NewOrchestrator(gov, cache, vector, metadata, search.OrchestratorConfig{
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
		VectorTimeout: cfg.Search.VectorTimeout.Duration(),
	}, logger)

	return orch, cleanup, nil
}

// initCatalog opens the media catalog backend.
func initCatalog(cfg *config.Config, logger *zap.Logger) (store.MediaStore, error) {
	if cfg.Store.Memory {
		logger.Info("Using in-memory media catalog")
		return store.NewMemoryStore(), nil
	}
	return store.Open(store.Config{
		DSN:             cfg.Store.DSN.Value(),
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		ConnMaxLifetime: 5 * time.Minute,
	}, logger)
}

// initEmbeddings creates the embedding provider.
func initEmbeddings(cfg *config.Config, logger *zap.Logger) (embeddings.Provider, error) {
	if cfg.Embeddings.Provider == "static" {
		logger.Info("Using static embedding provider",
			zap.Int("dimensions", cfg.VectorIndex.VectorSize))
		return embeddings.NewStaticProvider(cfg.VectorIndex.VectorSize), nil
	}
	return embeddings.NewService(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
		Timeout: cfg.Embeddings.Timeout.Duration(),
	}, logger)
}

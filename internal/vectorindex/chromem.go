package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig configures the embedded chromem backend.
type ChromemConfig struct {
	// Path is the on-disk location for the persistent database.
	// Empty means a purely in-memory index, which is what tests use.
	Path string

	// Compress enables gzip compression of persisted segments.
	Compress bool

	// Collection is the collection name. Default: "media".
	Collection string
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "media"
	}
}

// ChromemIndex is an embedded vector index backed by chromem-go.
// It needs no external service, so it serves as the default backend
// for single-node deployments and for tests.
type ChromemIndex struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger

	mu  sync.Mutex
	col *chromem.Collection
}

var _ Index = (*ChromemIndex)(nil)

// NewChromemIndex opens or creates a chromem database.
func NewChromemIndex(config ChromemConfig, logger *zap.Logger) (*ChromemIndex, error) {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: opening chromem at %s: %v", ErrUnavailable, config.Path, err)
		}
	}

	return &ChromemIndex{db: db, config: config, logger: logger}, nil
}

// collection lazily creates the collection. Embeddings are always
// supplied by the caller, so the embedding func only guards against
// accidental text-mode usage.
func (c *ChromemIndex) collection() (*chromem.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.col != nil {
		return c.col, nil
	}

	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embeddings must be computed before indexing")
	}
	col, err := c.db.GetOrCreateCollection(c.config.Collection, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("%w: creating collection %s: %v", ErrUnavailable, c.config.Collection, err)
	}
	c.col = col
	return col, nil
}

// Upsert stores entries with their tenant stamped into metadata.
func (c *ChromemIndex) Upsert(ctx context.Context, entries []Entry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}
	col, err := c.collection()
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		meta := make(map[string]string, len(e.Metadata)+1)
		for k, v := range e.Metadata {
			meta[k] = v
		}
		meta[MetaTenantID] = e.TenantID

		docs[i] = chromem.Document{
			ID:        e.ID,
			Metadata:  meta,
			Embedding: e.Vector,
			Content:   meta[MetaFilename],
		}
	}

	// Concurrency of 1: embeddings are precomputed, nothing to parallelize.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("%w: adding documents: %v", ErrUnavailable, err)
	}

	c.logger.Debug("upserted vectors",
		zap.String("backend", "chromem"),
		zap.Int("count", len(entries)),
	)
	return nil
}

// Query searches the collection with the tenant filter injected into the
// where clause. chromem applies where filters before ranking, so results
// can never contain another tenant's entries.
func (c *ChromemIndex) Query(ctx context.Context, q Query) ([]Candidate, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	col, err := c.collection()
	if err != nil {
		return nil, err
	}

	where := map[string]string{MetaTenantID: q.TenantID}
	for k, v := range q.Filters {
		if k == MetaTenantID {
			continue
		}
		where[k] = v
	}

	// chromem requires nResults <= document count.
	limit := q.Limit
	if count := col.Count(); count < limit {
		limit = count
	}
	if limit == 0 {
		return []Candidate{}, nil
	}

	results, err := col.QueryEmbedding(ctx, q.Vector, limit, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", ErrUnavailable, err)
	}

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{
			ID:       r.ID,
			TenantID: r.Metadata[MetaTenantID],
			Distance: 1 - r.Similarity,
			Metadata: r.Metadata,
		}
	}
	return candidates, nil
}

// Delete removes specific documents, constrained to the tenant so an
// ID collision across tenants cannot delete foreign data.
func (c *ChromemIndex) Delete(ctx context.Context, tenantID string, ids ...string) error {
	if tenantID == "" {
		return ErrMissingTenantFilter
	}
	if len(ids) == 0 {
		return nil
	}
	col, err := c.collection()
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, map[string]string{MetaTenantID: tenantID}, nil, ids...); err != nil {
		return fmt.Errorf("%w: deleting documents: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteByTenant removes every document whose tenant_id matches.
func (c *ChromemIndex) DeleteByTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantFilter
	}
	col, err := c.collection()
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, map[string]string{MetaTenantID: tenantID}, nil); err != nil {
		return fmt.Errorf("%w: deleting tenant documents: %v", ErrUnavailable, err)
	}
	return nil
}

// Close is a no-op for chromem; persistence happens on write.
func (c *ChromemIndex) Close() error {
	return nil
}

package search

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mediad/internal/embeddings"
	"github.com/fyrsmithlabs/mediad/internal/governor"
	"github.com/fyrsmithlabs/mediad/internal/tenant"
)

// OrchestratorConfig configures request handling.
type OrchestratorConfig struct {
	// DefaultLimit applies when a query has no limit. Default: 20.
	DefaultLimit int

	// MaxLimit clamps requested limits. Default: 100.
	MaxLimit int

	// VectorTimeout bounds one vector attempt (embedding call plus
	// index query). When the request deadline has less than this
	// remaining, the vector attempt is skipped rather than letting it
	// blow the caller's deadline. Default: 5s.
	VectorTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *OrchestratorConfig) ApplyDefaults() {
	if c.DefaultLimit == 0 {
		c.DefaultLimit = 20
	}
	if c.MaxLimit == 0 {
		c.MaxLimit = 100
	}
	if c.VectorTimeout == 0 {
		c.VectorTimeout = 5 * time.Second
	}
}

var validKinds = map[string]struct{}{
	"photos": {}, "videos": {}, "chunks": {}, "montages": {}, "slideshows": {},
}

// Orchestrator drives a search request through admission, cache check,
// vector attempt, and metadata fallback. All dependencies are injected;
// the orchestrator owns no global state.
type Orchestrator struct {
	governor *governor.Governor
	cache    *Cache
	vector   *VectorClient
	metadata *MetadataSearch
	config   OrchestratorConfig
	logger   *zap.Logger
}

// NewOrchestrator wires the engine.
func NewOrchestrator(gov *governor.Governor, cache *Cache, vector *VectorClient, metadata *MetadataSearch, config OrchestratorConfig, logger *zap.Logger) *Orchestrator {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		governor: gov,
		cache:    cache,
		vector:   vector,
		metadata: metadata,
		config:   config,
		logger:   logger,
	}
}

// Search runs one request end to end. The requesting tenant comes from
// the context; a context without tenant identity fails closed. Query
// validation happens before admission so malformed requests never
// consume quota.
func (o *Orchestrator) Search(ctx context.Context, q Query) (*Response, error) {
	if err := o.validate(&q); err != nil {
		return nil, err
	}

	info, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	tenantID := info.TenantID

	dec, err := o.governor.Admit(ctx, governor.ResourceSearch)
	if err != nil {
		return nil, err
	}
	if !dec.Allowed {
		return nil, &governor.QuotaError{
			Resource:   governor.ResourceSearch,
			RetryAfter: dec.RetryAfter,
		}
	}

	key := q.normalizedKey()
	if items, prov, ok := o.cache.Get(tenantID, key); ok {
		if err := verifyItemTenants(tenantID, items); err != nil {
			return nil, o.abortIsolation(tenantID, err)
		}
		return o.respond(q.Mode, prov, items, true), nil
	}

	if q.Mode == ModeMetadata {
		return o.fallback(ctx, tenantID, q, key, "requested")
	}

	// Vector and auto modes. Skip the vector attempt outright when the
	// caller's deadline cannot fit it.
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < o.config.VectorTimeout {
		if q.Mode == ModeVector {
			return nil, embeddings.ErrProviderTimeout
		}
		return o.fallback(ctx, tenantID, q, key, "deadline")
	}

	items, err := o.vectorAttempt(ctx, tenantID, q)
	switch {
	case err == nil && len(items) > 0:
		o.cache.Put(tenantID, key, items, ProvenanceVector)
		return o.respond(q.Mode, ProvenanceVector, items, false), nil

	case err == nil:
		// Zero matches. Under auto that is a soft failure worth
		// retrying differently; under vector it is the final answer.
		if q.Mode == ModeAuto {
			return o.fallback(ctx, tenantID, q, key, "empty")
		}
		o.cache.Put(tenantID, key, items, ProvenanceVector)
		return o.respond(q.Mode, ProvenanceVector, items, false), nil

	case errors.Is(err, ErrIsolationViolation):
		return nil, o.abortIsolation(tenantID, err)

	case embeddings.IsTransient(err):
		if q.Mode == ModeVector {
			return nil, err
		}
		o.logger.Warn("vector search degraded, falling back to metadata",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return o.fallback(ctx, tenantID, q, key, "provider_error")

	default:
		// Store and index failures are fatal. There is no fallback
		// beneath a broken store, and flattening this into an empty
		// result would hide a hard failure.
		return nil, err
	}
}

// vectorAttempt runs one bounded vector search, retrying exactly once
// on a transient provider failure. No backoff inside a request; that
// belongs to the caller.
func (o *Orchestrator) vectorAttempt(ctx context.Context, tenantID string, q Query) ([]Item, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.config.VectorTimeout)
	defer cancel()

	items, err := o.vector.Search(attemptCtx, tenantID, q)
	if err == nil || !embeddings.IsTransient(err) {
		return items, err
	}

	providerRetries.Inc()
	retryCtx, cancelRetry := context.WithTimeout(ctx, o.config.VectorTimeout)
	defer cancelRetry()
	return o.vector.Search(retryCtx, tenantID, q)
}

// fallback runs the metadata path and caches its result with the short
// TTL. Even an empty result is a valid final answer here.
func (o *Orchestrator) fallback(ctx context.Context, tenantID string, q Query, key, reason string) (*Response, error) {
	fallbacksTotal.WithLabelValues(reason).Inc()

	items, err := o.metadata.Search(ctx, tenantID, q)
	if err != nil {
		return nil, err
	}
	if err := verifyItemTenants(tenantID, items); err != nil {
		return nil, o.abortIsolation(tenantID, err)
	}

	o.cache.Put(tenantID, key, items, ProvenanceMetadata)
	return o.respond(q.Mode, ProvenanceMetadata, items, false), nil
}

// InvalidateCache drops every cached result for the requesting tenant.
// The upload and delete collaborators call this whenever the tenant's
// media set changes.
func (o *Orchestrator) InvalidateCache(ctx context.Context) error {
	info, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	o.cache.InvalidateTenant(info.TenantID)
	o.logger.Info("cache invalidated", zap.String("tenant_id", info.TenantID))
	return nil
}

func (o *Orchestrator) validate(q *Query) error {
	if q.Limit < 0 {
		return ErrInvalidQuery
	}
	if q.Limit == 0 {
		q.Limit = o.config.DefaultLimit
	}
	if q.Limit > o.config.MaxLimit {
		q.Limit = o.config.MaxLimit
	}
	if q.MinSimilarity < 0 || q.MinSimilarity >= 1 {
		return ErrInvalidQuery
	}
	if q.Filters.Kind != "" {
		if _, ok := validKinds[q.Filters.Kind]; !ok {
			return ErrInvalidQuery
		}
	}
	if !q.Filters.CreatedAfter.IsZero() && !q.Filters.CreatedBefore.IsZero() &&
		q.Filters.CreatedBefore.Before(q.Filters.CreatedAfter) {
		return ErrInvalidQuery
	}
	return nil
}

// respond is the single terminal success path. Degraded marks auto-mode
// responses served by fallback content, cached or fresh, so callers can
// tell best-available results from semantic ones.
func (o *Orchestrator) respond(mode Mode, prov Provenance, items []Item, fromCache bool) *Response {
	degraded := mode == ModeAuto && prov == ProvenanceMetadata
	searchesTotal.WithLabelValues(mode.String(), string(prov), strconv.FormatBool(degraded)).Inc()
	if items == nil {
		items = []Item{}
	}
	return &Response{
		Items:      items,
		Provenance: prov,
		Degraded:   degraded,
		FromCache:  fromCache,
	}
}

func (o *Orchestrator) abortIsolation(tenantID string, err error) error {
	isolationViolations.Inc()
	o.logger.Error("tenant isolation violation, aborting request",
		zap.String("tenant_id", tenantID),
		zap.Error(err))
	return err
}

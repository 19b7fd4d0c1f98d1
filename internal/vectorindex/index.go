// Package vectorindex provides tenant-scoped vector index backends for
// media embeddings. All queries require a tenant filter; a query without
// one fails closed rather than searching across tenants.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
)

// Metadata keys stored alongside every vector.
const (
	MetaTenantID = "tenant_id"
	MetaMediaID  = "media_id"
	MetaKind     = "kind"
	MetaFilename = "filename"
	MetaAlbum    = "album"
)

var (
	// ErrUnavailable indicates the index backend cannot be reached or
	// failed to serve the request. Callers treat this as a store outage.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrInvalidConfig indicates the backend configuration is invalid.
	ErrInvalidConfig = errors.New("invalid vector index configuration")

	// ErrMissingTenantFilter indicates an operation was attempted without
	// a tenant scope. All index operations are tenant-scoped.
	ErrMissingTenantFilter = errors.New("vector index operation requires tenant filter")
)

// Entry is a media embedding to store in the index.
type Entry struct {
	// ID uniquely identifies the entry. Must be a UUID for the qdrant
	// backend; chromem accepts any non-empty string.
	ID string

	// TenantID scopes the entry. Required.
	TenantID string

	// Vector is the embedding. Dimensions must match the index config.
	Vector []float32

	// Metadata carries searchable attributes (media_id, kind, filename).
	Metadata map[string]string
}

// Candidate is a raw match returned by a query, before any relevance
// thresholding by the caller.
type Candidate struct {
	ID       string
	TenantID string

	// Distance is the cosine distance to the query vector. Zero means
	// identical direction; callers derive similarity as 1 - Distance.
	Distance float32

	Metadata map[string]string
}

// Query describes a tenant-scoped nearest-neighbour lookup.
type Query struct {
	// TenantID is mandatory. Queries without it are rejected.
	TenantID string

	// Vector is the query embedding.
	Vector []float32

	// Limit caps the number of candidates returned.
	Limit int

	// Filters are additional exact-match metadata constraints, for
	// example {"kind": "photos"}.
	Filters map[string]string
}

// Index is the narrow contract the search layer depends on.
type Index interface {
	// Upsert stores or replaces entries. Every entry must carry a tenant.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns up to q.Limit candidates for q.TenantID, nearest
	// first. The tenant filter is injected server-side by the backend;
	// it is not optional.
	Query(ctx context.Context, q Query) ([]Candidate, error)

	// Delete removes specific entries within the tenant's partition.
	// IDs belonging to other tenants are untouched.
	Delete(ctx context.Context, tenantID string, ids ...string) error

	// DeleteByTenant removes every entry belonging to the tenant.
	DeleteByTenant(ctx context.Context, tenantID string) error

	// Close releases backend resources.
	Close() error
}

func validateEntries(entries []Entry) error {
	for i, e := range entries {
		if e.TenantID == "" {
			return fmt.Errorf("%w: entry %d has no tenant", ErrMissingTenantFilter, i)
		}
		if e.ID == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrInvalidConfig, i)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("%w: entry %d has no vector", ErrInvalidConfig, i)
		}
	}
	return nil
}

func validateQuery(q Query) error {
	if q.TenantID == "" {
		return ErrMissingTenantFilter
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("%w: query vector required", ErrInvalidConfig)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("%w: query limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// Package store persists media catalog records. The relational catalog
// is the source of truth for metadata search and the authority checked
// during tenant isolation verification.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the record does not exist for the tenant.
	ErrNotFound = errors.New("media record not found")

	// ErrUnavailable indicates the catalog backend cannot serve the
	// request. Callers surface this as a store outage, never as an
	// empty result.
	ErrUnavailable = errors.New("media store unavailable")

	// ErrInvalidConfig indicates the store configuration is invalid.
	ErrInvalidConfig = errors.New("invalid store configuration")
)

// ListFilter narrows catalog lookups. Zero values mean no constraint.
type ListFilter struct {
	Kind  string
	Album string

	// CreatedAfter and CreatedBefore bound the record creation time.
	CreatedAfter  time.Time
	CreatedBefore time.Time

	Limit int
}

// MediaStore is the catalog contract the search layer depends on.
// Every method is tenant-scoped; implementations must never return
// another tenant's records.
type MediaStore interface {
	// Create inserts a record. The record's TenantID must be set.
	Create(ctx context.Context, rec *MediaRecord) error

	// Get fetches one record by ID within the tenant.
	Get(ctx context.Context, tenantID, id string) (*MediaRecord, error)

	// FindCandidates returns records whose filename, title, or tags
	// contain any of the lowercase tokens, for relevance scoring by
	// the caller. An empty token list matches nothing.
	FindCandidates(ctx context.Context, tenantID string, tokens []string, filter ListFilter) ([]MediaRecord, error)

	// List returns the tenant's records matching the filter, newest
	// first.
	List(ctx context.Context, tenantID string, filter ListFilter) ([]MediaRecord, error)

	// Delete removes one record within the tenant.
	Delete(ctx context.Context, tenantID, id string) error

	// DeleteByTenant removes every record belonging to the tenant.
	DeleteByTenant(ctx context.Context, tenantID string) error
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenant id required", ErrInvalidConfig)
	}
	return nil
}

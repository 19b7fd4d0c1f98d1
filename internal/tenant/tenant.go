// Package tenant defines tenant identity, quota configuration, and the
// canonical storage-key layout that keeps tenant data physically separated.
package tenant

import (
	"context"
	"errors"
	"regexp"
)

// Tenant isolation error types - fail closed security model.
var (
	// ErrMissingTenant is returned when tenant info is missing from context.
	// This triggers "fail closed" behavior - no empty results, just errors.
	ErrMissingTenant = errors.New("tenant info missing from context")

	// ErrInvalidTenant is returned when the tenant identifier is invalid.
	ErrInvalidTenant = errors.New("invalid tenant identifier")
)

// idPattern restricts tenant identifiers to a filesystem- and payload-safe
// alphabet. Rejects path separators, dots, and uppercase.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// tenantContextKey is the context key for Info.
type tenantContextKey struct{}

// Role is the capability level of a tenant account. The engine only reads
// it; enforcement of role-based capabilities lives in the authentication
// collaborator upstream.
type Role string

const (
	RoleStandard Role = "standard"
	RoleAdmin    Role = "admin"
)

// Info holds the authenticated tenant identity for a request.
//
// Info is created by the upstream authentication layer after verifying the
// caller; nothing in this module accepts a tenant id from untrusted input.
type Info struct {
	// TenantID is the opaque unique account identifier (required).
	TenantID string

	// Role is the tenant's capability level.
	Role Role

	// Quota is the tenant's resource quota configuration. Zero values fall
	// back to the governor's defaults.
	Quota Quota
}

// Quota configures per-tenant resource limits.
type Quota struct {
	// SearchesPerMinute caps search admissions.
	SearchesPerMinute int

	// UploadsPerMinute caps upload admissions.
	UploadsPerMinute int

	// StorageWritesPerMinute caps storage-write admissions.
	StorageWritesPerMinute int

	// MaxStorageBytes caps total stored bytes for the tenant.
	MaxStorageBytes int64
}

// Validate checks that required fields are present and well-formed.
func (t *Info) Validate() error {
	if t.TenantID == "" || !idPattern.MatchString(t.TenantID) {
		return ErrInvalidTenant
	}
	return nil
}

// ContextWithTenant adds tenant Info to a context.
func ContextWithTenant(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, info)
}

// FromContext extracts tenant Info from a context.
// Returns ErrMissingTenant if not present - fail closed.
func FromContext(ctx context.Context) (*Info, error) {
	val := ctx.Value(tenantContextKey{})
	if val == nil {
		return nil, ErrMissingTenant
	}
	info, ok := val.(*Info)
	if !ok || info == nil {
		return nil, ErrMissingTenant
	}
	return info, nil
}

// HasTenant checks if tenant Info is present in context without error.
func HasTenant(ctx context.Context) bool {
	_, err := FromContext(ctx)
	return err == nil
}

// ValidID reports whether s is a well-formed tenant identifier.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

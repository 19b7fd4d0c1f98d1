package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery indicates malformed mode, filters, or limit.
	// Raised before the admission check so it never counts against
	// quota.
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrIsolationViolation indicates a result or cache entry carried a
	// tenant id other than the requester's. This is a security bug, not
	// a filterable condition: the request aborts.
	ErrIsolationViolation = errors.New("tenant isolation violation")
)

// IsolationError carries the mismatched tenant pair for logging. It is
// never exposed to clients beyond a generic failure.
type IsolationError struct {
	RequestTenant string
	ItemTenant    string
	MediaID       string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("tenant isolation violation: item %s belongs to %q, requested by %q",
		e.MediaID, e.ItemTenant, e.RequestTenant)
}

// Unwrap makes errors.Is(err, ErrIsolationViolation) hold.
func (e *IsolationError) Unwrap() error { return ErrIsolationViolation }

func verifyItemTenants(requestTenant string, items []Item) error {
	for _, it := range items {
		if it.TenantID != requestTenant {
			return &IsolationError{
				RequestTenant: requestTenant,
				ItemTenant:    it.TenantID,
				MediaID:       it.MediaID,
			}
		}
	}
	return nil
}

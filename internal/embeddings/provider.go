// Package embeddings provides query and document embedding generation via an
// external provider, with a typed failure taxonomy so callers can distinguish
// transient provider trouble from real errors.
package embeddings

import (
	"context"
	"errors"
)

// Provider failure taxonomy. A provider error is distinct from "zero
// matches" downstream and must never be collapsed into an empty result.
var (
	// ErrProviderUnavailable indicates the provider could not be reached or
	// returned a server-side failure.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderThrottled indicates the provider rejected the call due to
	// rate limiting.
	ErrProviderThrottled = errors.New("embedding provider throttled")

	// ErrProviderTimeout indicates the call exceeded its deadline.
	ErrProviderTimeout = errors.New("embedding provider timeout")

	// ErrEmptyInput indicates empty or nil input text.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsTransient reports whether err is one of the transient provider failures
// that a best-effort caller may recover from by degrading.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrProviderThrottled) ||
		errors.Is(err, ErrProviderTimeout)
}

// Provider generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic
// meaning, enabling similarity search. Implementations can use a local
// inference server (TEI) or a cloud API.
type Provider interface {
	// EmbedQuery generates an embedding for a single query.
	// Fails with ErrProviderUnavailable, ErrProviderThrottled, or
	// ErrProviderTimeout on transient provider trouble.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedDocuments generates embeddings for multiple texts, one per input.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

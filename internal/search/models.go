// Package search implements the search orchestration engine: mode
// selection, vector search with metadata fallback, result caching,
// and tenant isolation enforcement.
package search

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Mode selects the search strategy. It is decided once at admission and
// threaded through the whole request; no step re-inspects raw input.
type Mode int

const (
	// ModeAuto attempts vector search and falls back to metadata on
	// provider failure or empty results. The default.
	ModeAuto Mode = iota

	// ModeVector runs vector search only. Provider failures surface as
	// typed errors, never as fallback results.
	ModeVector

	// ModeMetadata skips the vector path entirely.
	ModeMetadata
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeVector:
		return "vector"
	case ModeMetadata:
		return "metadata"
	default:
		return "auto"
	}
}

// ParseMode maps a wire string to a Mode. Empty input means auto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "vector":
		return ModeVector, nil
	case "metadata":
		return ModeMetadata, nil
	default:
		return ModeAuto, fmt.Errorf("%w: unknown mode %q", ErrInvalidQuery, s)
	}
}

// Provenance tags where a result set came from.
type Provenance string

const (
	ProvenanceVector   Provenance = "vector"
	ProvenanceMetadata Provenance = "metadata"
)

// Filters narrow a search. Zero values mean no constraint.
type Filters struct {
	// Kind restricts to one content kind (photos, videos, ...).
	Kind string

	// Album restricts to one album.
	Album string

	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// Query is the immutable per-request search description. The requesting
// tenant is carried in the context, never in the query itself.
type Query struct {
	// Text is the raw query text.
	Text string

	Mode    Mode
	Filters Filters

	// Limit caps the result count. Defaults applied by the orchestrator.
	Limit int

	// MinSimilarity overrides the configured vector threshold when
	// positive.
	MinSimilarity float64
}

// Item is one matched media record.
type Item struct {
	MediaID  string  `json:"media_id"`
	TenantID string  `json:"tenant_id"`
	Album    string  `json:"album,omitempty"`
	Filename string  `json:"filename"`
	Title    string  `json:"title,omitempty"`
	Kind     string  `json:"kind"`
	Tags     string  `json:"tags,omitempty"`
	Score    float64 `json:"score"`

	// SegmentStart and SegmentEnd mark a matched video segment in
	// seconds. Nil for photos and whole-file matches.
	SegmentStart *float64 `json:"segment_start,omitempty"`
	SegmentEnd   *float64 `json:"segment_end,omitempty"`

	Provenance Provenance `json:"provenance"`

	createdAt time.Time
}

// Response is the terminal result of one orchestrated search.
type Response struct {
	Items      []Item     `json:"items"`
	Provenance Provenance `json:"provenance"`

	// Degraded is true when auto mode was requested and the response
	// came from the metadata fallback instead of vector search.
	Degraded bool `json:"degraded"`

	// FromCache is true when the response was served from the query
	// result cache.
	FromCache bool `json:"from_cache"`
}

// Tokenize splits query text into lowercase terms on non-alphanumeric
// boundaries, discarding empties and duplicates.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// normalizedKey serializes the query canonically for cache lookup:
// lowercased whitespace-collapsed text plus mode, limit, and sorted
// filter fields. Tenant scoping lives in the cache partition, not in
// the key.
func (q Query) normalizedKey() string {
	text := strings.Join(strings.Fields(strings.ToLower(q.Text)), " ")

	parts := []string{
		"text=" + text,
		"mode=" + q.Mode.String(),
		fmt.Sprintf("limit=%d", q.Limit),
	}
	if q.Filters.Kind != "" {
		parts = append(parts, "kind="+q.Filters.Kind)
	}
	if q.Filters.Album != "" {
		parts = append(parts, "album="+q.Filters.Album)
	}
	if !q.Filters.CreatedAfter.IsZero() {
		parts = append(parts, "after="+q.Filters.CreatedAfter.UTC().Format(time.RFC3339))
	}
	if !q.Filters.CreatedBefore.IsZero() {
		parts = append(parts, "before="+q.Filters.CreatedBefore.UTC().Format(time.RFC3339))
	}
	if q.MinSimilarity > 0 {
		parts = append(parts, fmt.Sprintf("minsim=%.2f", q.MinSimilarity))
	}
	sort.Strings(parts[3:])
	return strings.Join(parts, "&")
}

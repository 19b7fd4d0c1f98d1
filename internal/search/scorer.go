package search

import (
	"strings"

	"github.com/fyrsmithlabs/mediad/internal/store"
)

// FieldWeights is the per-term weight added for a substring match in
// each searchable field. A zero weight disables the field.
type FieldWeights struct {
	Filename float64
	Title    float64
	Tags     float64
}

// ScorerConfig holds the relevance weights per media family. The
// defaults are a tuned heuristic, kept configurable rather than
// hard-coded.
type ScorerConfig struct {
	// Photo weights apply to the photos kind.
	Photo FieldWeights

	// Video weights apply to videos and all video-derived kinds
	// (chunks, montages, slideshows).
	Video FieldWeights
}

// ApplyDefaults sets default values for unset weight sets.
func (c *ScorerConfig) ApplyDefaults() {
	if c.Photo == (FieldWeights{}) {
		c.Photo = FieldWeights{Filename: 0.5, Tags: 0.3}
	}
	if c.Video == (FieldWeights{}) {
		c.Video = FieldWeights{Filename: 0.4, Title: 0.4, Tags: 0.2}
	}
}

// Scorer computes keyword relevance for catalog records. Pure and
// deterministic; no store access.
type Scorer struct {
	config ScorerConfig
}

// NewScorer builds a scorer with defaults applied.
func NewScorer(config ScorerConfig) *Scorer {
	config.ApplyDefaults()
	return &Scorer{config: config}
}

// Score returns the relevance of a record for tokenized query terms,
// in [0,1]. Each term matching a field as a substring adds that
// field's weight; the sum is capped at 1.0, not normalized, so
// multi-field matches outrank single-field matches.
func (s *Scorer) Score(rec *store.MediaRecord, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	weights := s.weightsFor(rec.Kind)

	filename := strings.ToLower(rec.Filename)
	title := strings.ToLower(rec.Title)
	tags := strings.ToLower(rec.Tags)

	var score float64
	for _, term := range terms {
		if weights.Filename > 0 && strings.Contains(filename, term) {
			score += weights.Filename
		}
		if weights.Title > 0 && strings.Contains(title, term) {
			score += weights.Title
		}
		if weights.Tags > 0 && strings.Contains(tags, term) {
			score += weights.Tags
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (s *Scorer) weightsFor(kind string) FieldWeights {
	if kind == "photos" {
		return s.config.Photo
	}
	return s.config.Video
}

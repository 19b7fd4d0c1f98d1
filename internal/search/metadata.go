package search

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mediad/internal/store"
)

// MetadataSearch is the keyword fallback path. It only fails on
// catalog infrastructure errors; zero matches is a valid empty result.
type MetadataSearch struct {
	catalog store.MediaStore
	scorer  *Scorer
	logger  *zap.Logger
}

// NewMetadataSearch wires the fallback path.
func NewMetadataSearch(catalog store.MediaStore, scorer *Scorer, logger *zap.Logger) *MetadataSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = NewScorer(ScorerConfig{})
	}
	return &MetadataSearch{catalog: catalog, scorer: scorer, logger: logger}
}

// Search runs the tenant-scoped keyword search and ranks candidates by
// relevance, newest first on ties. Zero-score candidates are dropped.
func (m *MetadataSearch) Search(ctx context.Context, tenantID string, q Query) ([]Item, error) {
	terms := Tokenize(q.Text)
	if len(terms) == 0 {
		return []Item{}, nil
	}

	recs, err := m.catalog.FindCandidates(ctx, tenantID, terms, store.ListFilter{
		Kind:          q.Filters.Kind,
		Album:         q.Filters.Album,
		CreatedAfter:  q.Filters.CreatedAfter,
		CreatedBefore: q.Filters.CreatedBefore,
	})
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		score := m.scorer.Score(rec, terms)
		if score == 0 {
			continue
		}
		items = append(items, Item{
			MediaID:    rec.ID,
			TenantID:   rec.TenantID,
			Album:      rec.Album,
			Filename:   rec.Filename,
			Title:      rec.Title,
			Kind:       rec.Kind,
			Tags:       rec.Tags,
			Score:      score,
			Provenance: ProvenanceMetadata,
			createdAt:  rec.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score == items[j].Score {
			return items[i].createdAt.After(items[j].createdAt)
		}
		return items[i].Score > items[j].Score
	})

	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	m.logger.Debug("metadata search complete",
		zap.String("tenant_id", tenantID),
		zap.Int("candidates", len(recs)),
		zap.Int("matched", len(items)),
	)
	return items, nil
}

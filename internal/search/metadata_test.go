package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/mediad/internal/store"
)

// failingStore simulates a catalog outage.
type failingStore struct {
	store.MediaStore
}

func (f *failingStore) FindCandidates(context.Context, string, []string, store.ListFilter) ([]store.MediaRecord, error) {
	return nil, store.ErrUnavailable
}

func seedCatalog(t *testing.T) store.MediaStore {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	recs := []store.MediaRecord{
		{
			ID: "p-both", TenantID: "acme", Kind: "photos",
			Filename: "beach_sunset.jpg", Tags: "beach,sunset",
			CreatedAt: base,
		},
		{
			ID: "p-tags", TenantID: "acme", Kind: "photos",
			Filename: "img_0042.jpg", Tags: "sunset",
			CreatedAt: base.Add(time.Hour),
		},
		{
			ID: "p-none", TenantID: "acme", Kind: "photos",
			Filename: "mountain.jpg", Tags: "hiking",
			CreatedAt: base,
		},
		{
			ID: "v-birthday", TenantID: "acme", Kind: "videos",
			Filename: "vid_001.mp4", Title: "Birthday at the park", Tags: "family,party",
			CreatedAt: base,
		},
	}
	for i := range recs {
		require.NoError(t, s.Create(ctx, &recs[i]))
	}
	return s
}

func TestMetadataSearch_RanksByRelevance(t *testing.T) {
	m := NewMetadataSearch(seedCatalog(t), nil, nil)

	items, err := m.Search(context.Background(), "acme", Query{Text: "sunset beach"})
	require.NoError(t, err)
	require.Len(t, items, 2, "zero-score records must be excluded")

	assert.Equal(t, "p-both", items[0].MediaID)
	assert.Equal(t, "p-tags", items[1].MediaID)
	assert.Greater(t, items[0].Score, items[1].Score)
	for _, it := range items {
		assert.Equal(t, ProvenanceMetadata, it.Provenance)
		assert.Equal(t, "acme", it.TenantID)
	}
}

func TestMetadataSearch_TiesBreakNewestFirst(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older := store.MediaRecord{ID: "older", TenantID: "acme", Kind: "photos", Filename: "dog.jpg", CreatedAt: base}
	newer := store.MediaRecord{ID: "newer", TenantID: "acme", Kind: "photos", Filename: "dog_two.jpg", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, s.Create(ctx, &older))
	require.NoError(t, s.Create(ctx, &newer))

	m := NewMetadataSearch(s, nil, nil)
	items, err := m.Search(ctx, "acme", Query{Text: "dog"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].MediaID)
	assert.Equal(t, "older", items[1].MediaID)
}

func TestMetadataSearch_FullFallbackScenario(t *testing.T) {
	// Title matches "birthday" (0.4) and tags match "party" (0.2).
	m := NewMetadataSearch(seedCatalog(t), nil, nil)

	items, err := m.Search(context.Background(), "acme", Query{Text: "birthday party"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "v-birthday", items[0].MediaID)
	assert.InDelta(t, 0.6, items[0].Score, 1e-9)
}

func TestMetadataSearch_EmptyQueryAndNoMatches(t *testing.T) {
	m := NewMetadataSearch(seedCatalog(t), nil, nil)
	ctx := context.Background()

	items, err := m.Search(ctx, "acme", Query{Text: "   "})
	require.NoError(t, err)
	assert.Empty(t, items)

	// No matches is a valid empty result, never an error.
	items, err = m.Search(ctx, "acme", Query{Text: "zebra"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMetadataSearch_LimitAndKindFilter(t *testing.T) {
	m := NewMetadataSearch(seedCatalog(t), nil, nil)
	ctx := context.Background()

	items, err := m.Search(ctx, "acme", Query{Text: "sunset", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = m.Search(ctx, "acme", Query{Text: "birthday", Filters: Filters{Kind: "photos"}})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMetadataSearch_StoreErrorIsFatal(t *testing.T) {
	m := NewMetadataSearch(&failingStore{}, nil, nil)

	_, err := m.Search(context.Background(), "acme", Query{Text: "sunset"})
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

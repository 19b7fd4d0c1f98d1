package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recs := []MediaRecord{
		{
			ID: "p1", TenantID: "acme", Class: "uploads", Kind: "photos",
			Filename: "beach_sunset.jpg", Tags: "beach,sunset",
			StorageKey: "tenants/acme/uploads/photos/beach_sunset.jpg",
			CreatedAt:  base,
		},
		{
			ID: "p2", TenantID: "acme", Class: "uploads", Kind: "photos",
			Filename: "mountain.jpg", Tags: "hiking", Album: "trips",
			StorageKey: "tenants/acme/uploads/photos/mountain.jpg",
			CreatedAt:  base.Add(time.Hour),
		},
		{
			ID: "v1", TenantID: "acme", Class: "uploads", Kind: "videos",
			Filename: "clip.mp4", Title: "Sunset timelapse", Tags: "sunset",
			StorageKey: "tenants/acme/uploads/videos/clip.mp4",
			CreatedAt:  base.Add(2 * time.Hour),
		},
		{
			ID: "x1", TenantID: "globex", Class: "uploads", Kind: "photos",
			Filename: "beach.jpg", Tags: "beach",
			StorageKey: "tenants/globex/uploads/photos/beach.jpg",
			CreatedAt:  base,
		},
	}
	for i := range recs {
		require.NoError(t, s.Create(ctx, &recs[i]))
	}
	return s
}

func TestMemoryStore_GetScopedToTenant(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	rec, err := s.Get(ctx, "acme", "p1")
	require.NoError(t, err)
	assert.Equal(t, "beach_sunset.jpg", rec.Filename)

	// Another tenant's ID is not visible, even though it exists.
	_, err = s.Get(ctx, "acme", "x1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "", "p1")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMemoryStore_FindCandidates(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		tokens  []string
		filter  ListFilter
		wantIDs []string
	}{
		{
			name:    "matches filename and tags",
			tokens:  []string{"beach"},
			wantIDs: []string{"p1"},
		},
		{
			name:    "matches title",
			tokens:  []string{"timelapse"},
			wantIDs: []string{"v1"},
		},
		{
			name:    "any token matches",
			tokens:  []string{"sunset", "hiking"},
			wantIDs: []string{"v1", "p2", "p1"},
		},
		{
			name:    "kind filter narrows",
			tokens:  []string{"sunset"},
			filter:  ListFilter{Kind: "photos"},
			wantIDs: []string{"p1"},
		},
		{
			name:    "no tokens matches nothing",
			tokens:  nil,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.FindCandidates(ctx, "acme", tt.tokens, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(recs))
			for _, r := range recs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	s := seedStore(t)

	recs, err := s.List(context.Background(), "acme", ListFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "v1", recs[0].ID)
	assert.Equal(t, "p1", recs[2].ID)

	recs, err = s.List(context.Background(), "acme", ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "v1", recs[0].ID)
}

func TestMemoryStore_DeleteByTenant(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteByTenant(ctx, "acme"))

	recs, err := s.List(ctx, "acme", ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = s.List(ctx, "globex", ListFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestTagHelpers(t *testing.T) {
	rec := MediaRecord{Tags: "beach, sunset ,,summer"}
	assert.Equal(t, []string{"beach", "sunset", "summer"}, rec.TagList())
	assert.Empty(t, (&MediaRecord{}).TagList())

	assert.Equal(t, "beach,sunset", JoinTags([]string{" Beach ", "SUNSET", ""}))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, "plain", escapeLike("plain"))
}

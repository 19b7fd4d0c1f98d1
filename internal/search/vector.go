package search

import (
	"context"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mediad/internal/embeddings"
	"github.com/fyrsmithlabs/mediad/internal/vectorindex"
)

// DefaultMinSimilarity is the cosine similarity threshold below which
// vector candidates are discarded.
const DefaultMinSimilarity = 0.30

// VectorClientConfig configures the semantic search path.
type VectorClientConfig struct {
	// MinSimilarity is the default threshold. Default: 0.30.
	MinSimilarity float64
}

// ApplyDefaults sets default values for unset fields.
func (c *VectorClientConfig) ApplyDefaults() {
	if c.MinSimilarity == 0 {
		c.MinSimilarity = DefaultMinSimilarity
	}
}

// VectorClient runs semantic search: embed the query, rank against the
// tenant's index partition, convert distance to similarity. Provider
// failures propagate as typed embeddings errors so the orchestrator
// can decide whether to fall back; they are never flattened into an
// empty result.
type VectorClient struct {
	provider embeddings.Provider
	index    vectorindex.Index
	config   VectorClientConfig
	logger   *zap.Logger
}

// NewVectorClient wires the semantic search path.
func NewVectorClient(provider embeddings.Provider, index vectorindex.Index, config VectorClientConfig, logger *zap.Logger) *VectorClient {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorClient{provider: provider, index: index, config: config, logger: logger}
}

// Search returns tenant-scoped semantic matches ordered by descending
// similarity, capped at q.Limit. Every returned item's tenant is
// verified against the requester; a mismatch aborts with an
// IsolationError instead of being filtered out.
func (v *VectorClient) Search(ctx context.Context, tenantID string, q Query) ([]Item, error) {
	vec, err := v.provider.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	filters := map[string]string{}
	if q.Filters.Kind != "" {
		filters[vectorindex.MetaKind] = q.Filters.Kind
	}
	if q.Filters.Album != "" {
		filters[vectorindex.MetaAlbum] = q.Filters.Album
	}

	candidates, err := v.index.Query(ctx, vectorindex.Query{
		TenantID: tenantID,
		Vector:   vec,
		Limit:    q.Limit,
		Filters:  filters,
	})
	if err != nil {
		return nil, err
	}

	minSim := v.config.MinSimilarity
	if q.MinSimilarity > 0 {
		minSim = q.MinSimilarity
	}

	items := make([]Item, 0, len(candidates))
	for _, c := range candidates {
		// Tenant check first: a leaked candidate aborts the request
		// even when its score would not survive the cutoff.
		if c.TenantID != tenantID {
			return nil, &IsolationError{
				RequestTenant: tenantID,
				ItemTenant:    c.TenantID,
				MediaID:       c.ID,
			}
		}
		similarity := float64(1 - c.Distance)
		if similarity < minSim {
			continue
		}
		items = append(items, candidateItem(c, similarity))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}

	v.logger.Debug("vector search complete",
		zap.String("tenant_id", tenantID),
		zap.Int("candidates", len(candidates)),
		zap.Int("retained", len(items)),
	)
	return items, nil
}

func candidateItem(c vectorindex.Candidate, similarity float64) Item {
	item := Item{
		MediaID:    c.ID,
		TenantID:   c.TenantID,
		Album:      c.Metadata[vectorindex.MetaAlbum],
		Filename:   c.Metadata[vectorindex.MetaFilename],
		Title:      c.Metadata["title"],
		Kind:       c.Metadata[vectorindex.MetaKind],
		Tags:       c.Metadata["tags"],
		Score:      similarity,
		Provenance: ProvenanceVector,
	}
	if id, ok := c.Metadata[vectorindex.MetaMediaID]; ok {
		item.MediaID = id
	}
	if v, ok := parseSeconds(c.Metadata["segment_start"]); ok {
		item.SegmentStart = &v
	}
	if v, ok := parseSeconds(c.Metadata["segment_end"]); ok {
		item.SegmentEnd = &v
	}
	return item
}

func parseSeconds(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

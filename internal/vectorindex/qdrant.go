package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// QdrantConfig configures the qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the qdrant server hostname. Default: "localhost".
	Host string

	// Port is the gRPC port, 6334 by default (not the 6333 REST port).
	Port int

	// Collection is the collection name. Default: "media".
	Collection string

	// VectorSize is the embedding dimensionality. Must match the
	// embeddings provider output. Required.
	VectorSize uint64

	// UseTLS enables TLS on the gRPC connection.
	UseTLS bool

	// MaxMessageSize caps gRPC message size. Default: 50MB.
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "media"
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// QdrantIndex is a vector index backed by a qdrant server over gRPC.
type QdrantIndex struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger
}

var _ Index = (*QdrantIndex)(nil)

// NewQdrantIndex connects to qdrant and ensures the media collection
// exists with cosine distance.
func NewQdrantIndex(config QdrantConfig, logger *zap.Logger) (*QdrantIndex, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %s:%d: %v", ErrUnavailable, config.Host, config.Port, err)
	}

	idx := &QdrantIndex{client: client, config: config, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.config.Collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", ErrUnavailable, q.config.Collection, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.config.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", ErrUnavailable, q.config.Collection, err)
	}
	q.logger.Info("created qdrant collection",
		zap.String("collection", q.config.Collection),
		zap.Uint64("vector_size", q.config.VectorSize),
	)
	return nil
}

// Upsert stores entries with the tenant stamped into the payload.
func (q *QdrantIndex) Upsert(ctx context.Context, entries []Entry) error {
	if err := validateEntries(entries); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		payload := make(map[string]*qdrant.Value, len(e.Metadata)+1)
		for k, v := range e.Metadata {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		payload[MetaTenantID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: e.TenantID}}

		// Qdrant point IDs must be UUIDs; non-UUID entry IDs get a
		// derived one and keep the original in the payload.
		id := e.ID
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(e.ID)).String()
			payload[MetaMediaID] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: e.ID}}
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(e.Vector...),
			Payload: payload,
		}
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.config.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", ErrUnavailable, len(points), err)
	}
	return nil
}

// Query searches with a server-side Must condition on tenant_id. The
// filter is part of the request, so qdrant never ranks another tenant's
// points.
func (q *QdrantIndex) Query(ctx context.Context, query Query) ([]Candidate, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	conditions := []*qdrant.Condition{keywordCondition(MetaTenantID, query.TenantID)}
	for k, v := range query.Filters {
		if k == MetaTenantID {
			continue
		}
		conditions = append(conditions, keywordCondition(k, v))
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.config.Collection,
		Query:          qdrant.NewQuery(query.Vector...),
		Limit:          qdrant.PtrOf(uint64(query.Limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         &qdrant.Filter{Must: conditions},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection %s: %v", ErrUnavailable, q.config.Collection, err)
	}

	candidates := make([]Candidate, len(points))
	for i, p := range points {
		meta := make(map[string]string)
		for k, v := range p.Payload {
			if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
				meta[k] = s.StringValue
			}
		}
		id := p.Id.GetUuid()
		if mediaID, ok := meta[MetaMediaID]; ok {
			id = mediaID
		}
		candidates[i] = Candidate{
			ID:       id,
			TenantID: meta[MetaTenantID],
			// Cosine scores from qdrant are similarities, higher is closer.
			Distance: 1 - p.Score,
			Metadata: meta,
		}
	}
	return candidates, nil
}

func keywordCondition(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}

// Delete removes specific points, with the tenant condition in the
// same filter so a foreign ID can never be deleted.
func (q *QdrantIndex) Delete(ctx context.Context, tenantID string, ids ...string) error {
	if tenantID == "" {
		return ErrMissingTenantFilter
	}
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
		}
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.config.Collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						keywordCondition(MetaTenantID, tenantID),
						{
							ConditionOneOf: &qdrant.Condition_HasId{
								HasId: &qdrant.HasIdCondition{HasId: pointIDs},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: deleting points: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteByTenant removes every point whose tenant_id payload matches.
func (q *QdrantIndex) DeleteByTenant(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrMissingTenantFilter
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.config.Collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{keywordCondition(MetaTenantID, tenantID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: deleting tenant %s points: %v", ErrUnavailable, tenantID, err)
	}
	return nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

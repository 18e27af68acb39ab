// Package qdrant implements a vector store on a Qdrant collection using the
// official gRPC client. Document content and metadata live in the point
// payload; filters are converted to native payload conditions.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/aiwire-dev/aiwire/vectorstore"
	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

const (
	DefaultCollectionName = "vector_store"

	payloadContent  = "content"
	payloadMetadata = "metadata"
)

type Store struct {
	client   *qdrant.Client
	embedder vectorstore.Embedder

	collection string
}

type Option func(*Store)

func WithCollectionName(name string) Option {
	return func(s *Store) { s.collection = name }
}

// New wraps an existing Qdrant client. The caller owns the client and its
// connection lifecycle. Call EnsureCollection once before the first Add.
func New(client *qdrant.Client, embedder vectorstore.Embedder, opts ...Option) *Store {
	s := &Store{
		client:     client,
		embedder:   embedder,
		collection: DefaultCollectionName,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// EnsureCollection creates the collection with cosine distance when it does
// not exist yet.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	dims := s.embedder.Dimensions()
	if dims <= 0 {
		return fmt.Errorf("embedder reported no dimensions, cannot create collection %s", s.collection)
	}

	slog.Info("creating vector collection", "collection", s.collection, "dimensions", dims)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, docs []vectorstore.Document) ([]vectorstore.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	out := make([]vectorstore.Document, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			d = vectorstore.NewDocument(d.Content, d.Metadata)
		}
		texts[i] = d.Content
		out[i] = d
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	points := make([]*qdrant.PointStruct, len(out))
	for i, d := range out {
		payload := map[string]any{payloadContent: d.Content}
		if len(d.Metadata) > 0 {
			payload[payloadMetadata] = d.Metadata
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(d.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert points: %w", err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}

	slog.Debug("deleting points", "collection", s.collection, "count", len(ids))
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func (s *Store) DeleteByFilter(ctx context.Context, f filter.Expr) error {
	if f == nil {
		return fmt.Errorf("filter is required")
	}
	qf, err := ConvertFilter(f)
	if err != nil {
		return err
	}

	slog.Debug("deleting points by filter", "collection", s.collection)
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(qf),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("delete points by filter: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, req vectorstore.SearchRequest) ([]vectorstore.Document, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}

	vectors, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv := vectors[0]

	query := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(qv...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if req.SimilarityThreshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(float32(req.SimilarityThreshold))
	}
	if req.Filter != nil {
		qf, err := ConvertFilter(req.Filter)
		if err != nil {
			return nil, err
		}
		query.Filter = qf
	}

	points, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	docs := make([]vectorstore.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, s.toDocument(p))
	}
	return docs, nil
}

func (s *Store) toDocument(p *qdrant.ScoredPoint) vectorstore.Document {
	doc := vectorstore.Document{
		ID:    p.GetId().GetUuid(),
		Score: float64(p.GetScore()),
	}
	payload := p.GetPayload()
	if v, ok := payload[payloadContent]; ok {
		doc.Content = v.GetStringValue()
	}
	if v, ok := payload[payloadMetadata]; ok {
		if sv := v.GetStructValue(); sv != nil {
			doc.Metadata = structToMap(sv)
		}
	}
	return doc
}

func structToMap(s *qdrant.Struct) map[string]any {
	out := make(map[string]any, len(s.GetFields()))
	for k, v := range s.GetFields() {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = valueToAny(item)
		}
		return out
	case *qdrant.Value_StructValue:
		return structToMap(kind.StructValue)
	}
	return nil
}

var _ vectorstore.Store = (*Store)(nil)

// Package opensearch implements a vector store on an OpenSearch index with
// a knn_vector field. Approximate search runs through the knn script score;
// filters are pushed down as Lucene query_string clauses.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/aiwire-dev/aiwire/vectorstore"
	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

const (
	DefaultIndexName = "vector_store"

	fieldEmbedding = "embedding"
)

type Store struct {
	client   *opensearch.Client
	embedder vectorstore.Embedder

	index string
}

type Option func(*Store)

func WithIndexName(name string) Option {
	return func(s *Store) { s.index = name }
}

// New wraps an existing OpenSearch client. It does not touch the index;
// call EnsureIndex once before the first Add.
func New(client *opensearch.Client, embedder vectorstore.Embedder, opts ...Option) *Store {
	s := &Store{
		client:   client,
		embedder: embedder,
		index:    DefaultIndexName,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// EnsureIndex creates the backing index with a knn_vector mapping when it
// does not exist yet. The dimension comes from the embedder.
func (s *Store) EnsureIndex(ctx context.Context) error {
	existsResp, err := opensearchapi.IndicesExistsRequest{
		Index: []string{s.index},
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	defer existsResp.Body.Close()
	if existsResp.StatusCode == 200 {
		return nil
	}

	dims := s.embedder.Dimensions()
	if dims <= 0 {
		return fmt.Errorf("embedder reported no dimensions, cannot create index %s", s.index)
	}

	mapping := map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				fieldEmbedding: map[string]any{
					"type":      "knn_vector",
					"dimension": dims,
				},
				"content":  map[string]any{"type": "text"},
				"metadata": map[string]any{"type": "object"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	slog.Info("creating vector index", "index", s.index, "dimensions", dims)
	resp, err := opensearchapi.IndicesCreateRequest{
		Index: s.index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, responseError(resp))
	}
	return nil
}

type indexedDocument struct {
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding"`
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

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, d := range out {
		if err := enc.Encode(map[string]any{
			"index": map[string]any{"_index": s.index, "_id": d.ID},
		}); err != nil {
			return nil, err
		}
		if err := enc.Encode(indexedDocument{
			Content:   d.Content,
			Metadata:  d.Metadata,
			Embedding: vectors[i],
		}); err != nil {
			return nil, err
		}
	}

	resp, err := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(buf.Bytes()),
		Refresh: "true",
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("bulk index: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("bulk index: %s", responseError(resp))
	}

	var bulkOut struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Error *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkOut); err != nil {
		return nil, fmt.Errorf("bulk index: decode response: %w", err)
	}
	if bulkOut.Errors {
		for _, item := range bulkOut.Items {
			for _, op := range item {
				if op.Error != nil {
					return nil, fmt.Errorf("bulk index: %s: %s", op.Error.Type, op.Error.Reason)
				}
			}
		}
		return nil, fmt.Errorf("bulk index: partial failure")
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, id := range ids {
		if err := enc.Encode(map[string]any{
			"delete": map[string]any{"_index": s.index, "_id": id},
		}); err != nil {
			return err
		}
	}

	slog.Debug("deleting documents", "index", s.index, "count", len(ids))
	resp, err := opensearchapi.BulkRequest{
		Body:    bytes.NewReader(buf.Bytes()),
		Refresh: "true",
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("bulk delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("bulk delete: %s", responseError(resp))
	}
	return nil
}

func (s *Store) DeleteByFilter(ctx context.Context, f filter.Expr) error {
	if f == nil {
		return fmt.Errorf("filter is required")
	}
	clause, err := ConvertFilter(f)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{"query": clause},
		},
	})
	if err != nil {
		return err
	}

	slog.Debug("deleting documents by filter", "index", s.index, "filter", clause)
	refresh := true
	resp, err := opensearchapi.DeleteByQueryRequest{
		Index:   []string{s.index},
		Body:    bytes.NewReader(body),
		Refresh: &refresh,
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("delete by query: %s", responseError(resp))
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

	var inner map[string]any
	if req.Filter != nil {
		clause, err := ConvertFilter(req.Filter)
		if err != nil {
			return nil, err
		}
		inner = map[string]any{
			"query_string": map[string]any{"query": clause},
		}
	} else {
		inner = map[string]any{"match_all": map[string]any{}}
	}

	search := map[string]any{
		"size": topK,
		"query": map[string]any{
			"script_score": map[string]any{
				"query": inner,
				"script": map[string]any{
					"source": "knn_score",
					"lang":   "knn",
					"params": map[string]any{
						"field":       fieldEmbedding,
						"query_value": qv,
						"space_type":  "cosinesimil",
					},
				},
			},
		},
	}
	if req.SimilarityThreshold > 0 {
		// knn_score cosinesimil reports (2 - distance) / 2, matching a
		// 0..1 similarity scale.
		search["min_score"] = req.SimilarityThreshold
	}

	body, err := json.Marshal(search)
	if err != nil {
		return nil, err
	}

	resp, err := opensearchapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("search: %s", responseError(resp))
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source indexedDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	docs := make([]vectorstore.Document, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		docs = append(docs, vectorstore.Document{
			ID:       h.ID,
			Content:  h.Source.Content,
			Metadata: h.Source.Metadata,
			Score:    h.Score,
		})
	}
	return docs, nil
}

func responseError(resp *opensearchapi.Response) string {
	if resp.Body == nil {
		return resp.Status()
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(data) == 0 {
		return resp.Status()
	}
	var parsed struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Type != "" {
		return parsed.Error.Type + ": " + parsed.Error.Reason
	}
	return strings.TrimSpace(string(data))
}

var _ vectorstore.Store = (*Store)(nil)

// Package memory implements an in-process vector store: brute-force cosine
// search over a map, with optional JSON persistence for small corpora.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/aiwire-dev/aiwire"
	"github.com/aiwire-dev/aiwire/vectorstore"
	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

type Store struct {
	embedder vectorstore.Embedder

	mu   sync.RWMutex
	docs map[string]entry
}

type entry struct {
	doc    vectorstore.Document
	vector []float32
}

func New(embedder vectorstore.Embedder) *Store {
	return &Store{
		embedder: embedder,
		docs:     make(map[string]entry),
	}
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

	s.mu.Lock()
	for i, d := range out {
		s.docs[d.ID] = entry{doc: d, vector: vectors[i]}
	}
	s.mu.Unlock()
	return out, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	for _, id := range ids {
		delete(s.docs, id)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteByFilter(ctx context.Context, f filter.Expr) error {
	if f == nil {
		return fmt.Errorf("filter is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.docs {
		ok, err := filter.Eval(f, e.doc.Metadata)
		if err != nil {
			return err
		}
		if ok {
			delete(s.docs, id)
		}
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

	s.mu.RLock()
	candidates := make([]vectorstore.Document, 0, len(s.docs))
	for _, e := range s.docs {
		if req.Filter != nil {
			ok, err := filter.Eval(req.Filter, e.doc.Metadata)
			if err != nil {
				s.mu.RUnlock()
				return nil, err
			}
			if !ok {
				continue
			}
		}
		score, err := aiwire.CosineSimilarity(qv, e.vector)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if req.SimilarityThreshold > 0 && score < req.SimilarityThreshold {
			continue
		}
		d := e.doc
		d.Score = score
		candidates = append(candidates, d)
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

type persistedEntry struct {
	Document vectorstore.Document `json:"document"`
	Vector   []float32            `json:"vector"`
}

// Save writes the full store contents, vectors included, as JSON.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	entries := make([]persistedEntry, 0, len(s.docs))
	for _, e := range s.docs {
		entries = append(entries, persistedEntry{Document: e.doc, Vector: e.vector})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Document.ID < entries[j].Document.ID
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load replaces the store contents with a previously saved snapshot.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries []persistedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	docs := make(map[string]entry, len(entries))
	for _, e := range entries {
		if e.Document.ID == "" {
			return fmt.Errorf("snapshot entry missing document id")
		}
		docs[e.Document.ID] = entry{doc: e.Document, vector: e.Vector}
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
	return nil
}

var _ vectorstore.Store = (*Store)(nil)

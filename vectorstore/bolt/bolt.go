// Package bolt implements a bbolt-backed vector store. Documents and their
// vectors persist in a single bucket; search is brute-force cosine over an
// in-memory cache loaded at open time.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/aiwire-dev/aiwire"
	"github.com/aiwire-dev/aiwire/vectorstore"
	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

var bucketDocuments = []byte("documents")

type Store struct {
	db       *bbolt.DB
	embedder vectorstore.Embedder

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	doc    vectorstore.Document
	vector []float32
}

type storedDocument struct {
	Document vectorstore.Document `json:"d"`
	Vector   []float32            `json:"v"`
}

// New wraps an already opened bbolt database. The caller owns the database
// handle and its lifecycle.
func New(db *bbolt.DB, embedder vectorstore.Embedder) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create documents bucket: %w", err)
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		entries:  make(map[string]entry),
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return s, nil
}

// Open opens (or creates) the database file at path.
func Open(path string, embedder vectorstore.Embedder) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s, err := New(db, embedder)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) load() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedDocument
			if err := json.Unmarshal(v, &stored); err != nil {
				slog.Warn("skipping corrupted document entry", "id", string(k), "err", err)
				return nil
			}
			s.entries[string(k)] = entry{doc: stored.Document, vector: stored.Vector}
			return nil
		})
	})
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
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b == nil {
			return fmt.Errorf("documents bucket not found")
		}
		for i, d := range out {
			data, err := json.Marshal(storedDocument{Document: d, Vector: vectors[i]})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(d.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, d := range out {
		s.entries[d.ID] = entry{doc: d, vector: vectors[i]}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Debug("deleting documents", "count", len(ids))
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b == nil {
			return nil
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.entries, id)
		}
		return nil
	})
}

func (s *Store) DeleteByFilter(ctx context.Context, f filter.Expr) error {
	if f == nil {
		return fmt.Errorf("filter is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []string
	for id, e := range s.entries {
		ok, err := filter.Eval(f, e.doc.Metadata)
		if err != nil {
			return err
		}
		if ok {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	slog.Debug("deleting documents by filter", "count", len(matched))
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b == nil {
			return nil
		}
		for _, id := range matched {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.entries, id)
		}
		return nil
	})
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
	defer s.mu.RUnlock()

	results := make([]vectorstore.Document, 0, len(s.entries))
	for _, e := range s.entries {
		if req.Filter != nil {
			ok, err := filter.Eval(req.Filter, e.doc.Metadata)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		score, err := aiwire.CosineSimilarity(qv, e.vector)
		if err != nil {
			return nil, err
		}
		if req.SimilarityThreshold > 0 && score < req.SimilarityThreshold {
			continue
		}
		d := e.doc
		d.Score = score
		results = append(results, d)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count reports the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ vectorstore.Store = (*Store)(nil)

// Package vectorstore defines the document model and the store contract
// shared by the backend packages (memory, bolt, opensearch, qdrant).
package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/aiwire-dev/aiwire/vectorstore/filter"
)

// Document is a chunk of text with free-form metadata. Score is populated
// on search results only.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Score float64 `json:"score,omitempty"`
}

// NewDocument assigns a random ID.
func NewDocument(content string, metadata map[string]any) Document {
	return Document{
		ID:       uuid.NewString(),
		Content:  content,
		Metadata: metadata,
	}
}

type SearchRequest struct {
	Query string
	TopK  int

	// SimilarityThreshold drops results scoring below it. Zero keeps
	// everything.
	SimilarityThreshold float64

	Filter filter.Expr
}

const DefaultTopK = 4

// Embedder turns text into vectors. aiwire.ModelEmbedder adapts an
// embedding model ref to this shape.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

type Store interface {
	// Add embeds and stores the documents. Documents without an ID get one
	// assigned; the stored documents are returned.
	Add(ctx context.Context, docs []Document) ([]Document, error)

	// Delete removes documents by ID.
	Delete(ctx context.Context, ids []string) error

	// DeleteByFilter removes every document whose metadata matches the
	// expression.
	DeleteByFilter(ctx context.Context, f filter.Expr) error

	// Search embeds the query and returns the nearest documents, most
	// similar first.
	Search(ctx context.Context, req SearchRequest) ([]Document, error)
}

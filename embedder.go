package aiwire

import (
	"context"
	"sync"
)

// ModelEmbedder adapts an embedding model ref to the vectorstore.Embedder
// shape: batch embed plus a lazily probed dimension count.
type ModelEmbedder struct {
	Model            ModelRef
	MaxParallelCalls int

	mu   sync.Mutex
	dims int
}

func NewModelEmbedder(model ModelRef) *ModelEmbedder {
	return &ModelEmbedder{Model: model}
}

func (e *ModelEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := EmbedMany(ctx, EmbedManyRequest{
		Model:            e.Model,
		Input:            texts,
		MaxParallelCalls: e.MaxParallelCalls,
	})
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.dims == 0 && len(resp.Vectors) > 0 {
		e.dims = len(resp.Vectors[0])
	}
	e.mu.Unlock()
	return resp.Vectors, nil
}

// Dimensions reports the vector width, probing the model with a one-token
// input on first use. It returns 0 when the probe fails; callers that need
// a hard guarantee should Embed first.
func (e *ModelEmbedder) Dimensions() int {
	e.mu.Lock()
	dims := e.dims
	e.mu.Unlock()
	if dims > 0 {
		return dims
	}
	vecs, err := e.Embed(context.Background(), []string{"dimension probe"})
	if err != nil || len(vecs) == 0 {
		return 0
	}
	return len(vecs[0])
}

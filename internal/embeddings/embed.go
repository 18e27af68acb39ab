// Package embeddings fans an embedding request out over parallel batches
// while preserving input order in the merged result.
package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/aiwire-dev/aiwire/internal/provider"
)

type Result struct {
	Vectors [][]float32
	Usage   provider.Usage

	// RawResponse holds the vendor body of one of the underlying calls,
	// kept for callers that need vendor fields outside the typed surface.
	RawResponse []byte
}

func EmbedMany(ctx context.Context, ep provider.EmbeddingProvider, req provider.EmbeddingRequest, maxParallel int) (*Result, error) {
	n := len(req.Inputs)
	if n == 0 {
		return nil, fmt.Errorf("input is required")
	}
	if maxParallel <= 1 || n == 1 {
		resp, err := ep.Embed(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Vectors) != n {
			return nil, fmt.Errorf("embedding response count mismatch: got %d want %d", len(resp.Vectors), n)
		}
		return &Result{Vectors: resp.Vectors, Usage: resp.Usage, RawResponse: resp.RawResponse}, nil
	}
	if maxParallel > n {
		maxParallel = n
	}

	batches := splitIntoBatches(n, maxParallel)

	outVectors := make([][]float32, n)
	var aggUsage provider.Usage

	var firstRaw []byte
	var firstRawOnce sync.Once

	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, len(batches))

	for _, b := range batches {
		wg.Add(1)
		go func(b span) {
			defer wg.Done()

			subReq := req
			subReq.Inputs = append([]string(nil), req.Inputs[b.start:b.end]...)

			resp, err := ep.Embed(ctx, subReq)
			if err != nil {
				errCh <- err
				return
			}
			if len(resp.Vectors) != len(subReq.Inputs) {
				errCh <- fmt.Errorf("embedding response count mismatch: got %d want %d", len(resp.Vectors), len(subReq.Inputs))
				return
			}

			mu.Lock()
			for i := range resp.Vectors {
				outVectors[b.start+i] = resp.Vectors[i]
			}
			aggUsage.PromptTokens += resp.Usage.PromptTokens
			aggUsage.CompletionTokens += resp.Usage.CompletionTokens
			aggUsage.TotalTokens += resp.Usage.TotalTokens
			mu.Unlock()

			firstRawOnce.Do(func() {
				firstRaw = resp.RawResponse
			})
		}(b)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	return &Result{Vectors: outVectors, Usage: aggUsage, RawResponse: firstRaw}, nil
}

type span struct{ start, end int }

func splitIntoBatches(n, parts int) []span {
	if parts <= 0 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([]span, 0, parts)
	base := n / parts
	rem := n % parts

	start := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < rem {
			size++
		}
		end := start + size
		out = append(out, span{start: start, end: end})
		start = end
	}
	return out
}

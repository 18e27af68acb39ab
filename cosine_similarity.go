package aiwire

import (
	"fmt"
	"math"
)

// CosineSimilarity reports the cosine of the angle between two equal-length
// vectors on a -1..1 scale. Inputs are float32 because that is what the
// embedding endpoints return; accumulation runs in float64 so long vectors
// do not lose precision. The local vector stores rank candidates with this.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length mismatch: %d != %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors must be non-empty")
	}

	var dot, normA, normB float64
	for i, av := range a {
		x, y := float64(av), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("zero vector")
	}
	return dot / math.Sqrt(normA*normB), nil
}

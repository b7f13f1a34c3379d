// Package embedding provides similarity computation over precomputed
// fixed-length embeddings. Embeddings themselves are produced elsewhere.
package embedding

import "math"

// CosineSimilarity computes the cosine of the angle between a and b.
// Returns a value in [-1, 1]; 1.0 for identical directions, 0.0 for orthogonal vectors.
// Returns 0.0 if the vectors have different lengths, are empty, or either is a zero vector.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	// Handle zero vectors
	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package cluster

import "math"

// CosineSimilarity returns dot(a,b)/(|a||b|). Vectors of different length and
// zero vectors have similarity 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NewCentroid returns the running mean after adding next as the n-th member:
// old*(1-1/n) + next*(1/n). old is not modified.
func NewCentroid(old, next []float64, n int) []float64 {
	out := make([]float64, len(next))
	if n <= 1 || len(old) != len(next) {
		copy(out, next)
		return out
	}

	w := 1 / float64(n)
	for i := range next {
		out[i] = old[i]*(1-w) + next[i]*w
	}
	return out
}

// Package embedding holds helpers shared by the embedding strategies. Every
// strategy must emit vectors of exactly the configured dimension because the
// vector index is created with a fixed size.
package embedding

import (
	"math"
	"math/rand/v2"
)

// DefaultDimension is the system-wide vector size.
const DefaultDimension = 384

// Resize zero-pads or truncates v to dim entries.
func Resize(v []float64, dim int) []float64 {
	out := make([]float64, dim)
	copy(out, v)
	return out
}

// RandomVectors returns n vectors with components drawn uniformly from [0, 1).
func RandomVectors(n, dim int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		v := make([]float64, dim)
		for j := range v {
			v[j] = rand.Float64()
		}
		out[i] = v
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

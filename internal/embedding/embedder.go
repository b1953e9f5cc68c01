// Package embedding encodes text into fixed-dimension vectors.
package embedding

import (
	"context"
	"fmt"
	"math"
)

// Embedder encodes a batch of texts. The i-th vector encodes texts[i].
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}

// Normalize scales v to unit L2 length in place. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Dot is the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// EmbedOne is a convenience wrapper for single-text encoding.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder %s returned %d vectors for 1 text", e.Name(), len(vectors))
	}
	return vectors[0], nil
}

package vectorstore

import (
	"context"
	"math"

	"ragchitchat/internal/domain"
)

// Index persists chunk embeddings and supports similarity search.
type Index interface {
	// Init prepares the index for vectors of the given dimension. A dimension of
	// zero defers the check to the first Upsert.
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []domain.Chunk) error
	Search(ctx context.Context, vector []float32, topK int) ([]domain.Hit, error)
	Clear(ctx context.Context) error
}

// Cosine returns the cosine similarity of a and b clamped to [-1, 1].
// Zero-norm vectors have similarity 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return Clamp(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Clamp bounds a similarity value to [-1, 1].
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

// Package embed provides deterministic text encoders for the toolkit. The
// encoders are hash based: no model files, no network, identical output for
// identical input. Semantic quality is deliberately modest; the toolkit
// studies ranking behavior, not embedding quality.
package embed

import (
	"context"

	"github.com/searchlab-dev/searchlab/internal/provider"
)

// DenseEncoder produces fixed-width embeddings for text.
type DenseEncoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// SparseEncoder produces term-weighted sparse embeddings for text.
type SparseEncoder interface {
	EncodeSparse(ctx context.Context, text string) (provider.SparseVector, error)
	Name() string
}

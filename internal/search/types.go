// Package search implements the hybrid query path: encode a text query into
// both vector spaces, search them in parallel, fuse the candidate lists, and
// optionally diversify the top results with MMR.
package search

import (
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

// EngineConfig holds engine-level defaults and bounds.
type EngineConfig struct {
	// DefaultLimit applies when Options.Limit is zero.
	DefaultLimit int

	// MaxLimit caps Options.Limit.
	MaxLimit int

	// DefaultDenseWeight applies when Options.DenseWeight is nil.
	DefaultDenseWeight float64

	// FetchMultiplier widens the per-space fetch before fusion so the
	// fused list has candidates from both sources to choose from.
	FetchMultiplier int
}

// DefaultEngineConfig returns the usual defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:       10,
		MaxLimit:           100,
		DefaultDenseWeight: rank.DefaultDenseWeight,
		FetchMultiplier:    2,
	}
}

// MMROptions enables diversity re-ranking of the fused candidates.
type MMROptions struct {
	// Lambda trades relevance against diversity in [0, 1].
	Lambda float64

	// PoolSize is how many fused candidates MMR selects from. Zero means
	// three times the result limit.
	PoolSize int
}

// Options tunes a single search.
type Options struct {
	// Limit is the number of results to return. Zero uses the engine
	// default.
	Limit int

	// DenseWeight overrides the engine's dense weight when non-nil.
	DenseWeight *float64

	// Filter restricts results by payload fields.
	Filter *provider.Filter

	// ScoreThreshold drops per-space hits scoring below it when positive.
	ScoreThreshold float64

	// MMR enables diversity re-ranking when non-nil.
	MMR *MMROptions
}

// Result is one hybrid search hit.
type Result = rank.Candidate

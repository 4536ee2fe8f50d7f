package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchlab-dev/searchlab/internal/embed"
	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

// Engine runs hybrid searches against a provider.
type Engine struct {
	dense   embed.DenseEncoder
	sparse  embed.SparseEncoder
	backend provider.Provider
	config  EngineConfig
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithConfig replaces the default engine configuration.
func WithConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// NewEngine creates a hybrid search engine. All three dependencies are
// required.
func NewEngine(dense embed.DenseEncoder, sparse embed.SparseEncoder, backend provider.Provider, opts ...EngineOption) (*Engine, error) {
	if dense == nil {
		return nil, errors.InternalError("dense encoder is required", nil)
	}
	if sparse == nil {
		return nil, errors.InternalError("sparse encoder is required", nil)
	}
	if backend == nil {
		return nil, errors.InternalError("search backend is required", nil)
	}

	e := &Engine{
		dense:   dense,
		sparse:  sparse,
		backend: backend,
		config:  DefaultEngineConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Search runs a hybrid search: both vector spaces in parallel, weighted
// fusion, then optional MMR diversification.
//
// A whitespace-only query yields an empty result with no error. A backend
// failure in either space fails the whole search; results are never partial.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	opts, err := e.applyDefaults(opts)
	if err != nil {
		return nil, err
	}

	weight := *opts.DenseWeight
	if weight < 0 || weight > 1 {
		return nil, errors.InvalidArgument("dense weight must be in [0, 1], got %g", weight)
	}

	poolSize := opts.Limit
	withVectors := false
	if opts.MMR != nil {
		withVectors = true
		poolSize = opts.MMR.PoolSize
		if poolSize <= 0 {
			poolSize = opts.Limit * 3
		}
	}

	fetchLimit := poolSize * e.config.FetchMultiplier
	denseVec, denseHits, sparseHits, err := e.parallelSearch(ctx, query, provider.SearchParams{
		Limit:          fetchLimit,
		Filter:         opts.Filter,
		WithVectors:    withVectors,
		ScoreThreshold: opts.ScoreThreshold,
	})
	if err != nil {
		return nil, err
	}

	fused, err := rank.Fuse(denseHits, sparseHits, weight, poolSize)
	if err != nil {
		return nil, err
	}

	results := fused
	if opts.MMR != nil {
		results, err = rank.MMRRerank(denseVec, fused, opts.MMR.Lambda, opts.Limit)
		if err != nil {
			return nil, err
		}
	} else if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	slog.Debug("hybrid_search",
		slog.String("query", query),
		slog.Int("dense_hits", len(denseHits)),
		slog.Int("sparse_hits", len(sparseHits)),
		slog.Int("results", len(results)),
		slog.Bool("mmr", opts.MMR != nil),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// parallelSearch encodes the query and runs both provider searches
// concurrently. Any failure cancels the sibling search and is returned; the
// backend's error is preserved in the chain, never masked.
func (e *Engine) parallelSearch(ctx context.Context, query string, params provider.SearchParams) (
	denseVec []float32,
	denseHits []rank.Candidate,
	sparseHits []rank.Candidate,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vec, err := e.dense.Encode(gctx, query)
		if err != nil {
			return err
		}
		denseVec = vec

		hits, err := e.backend.Search(gctx, provider.DenseQuery(vec), params)
		if err != nil {
			return errors.Upstream(err)
		}
		denseHits = hits
		return nil
	})

	g.Go(func() error {
		sv, err := e.sparse.EncodeSparse(gctx, query)
		if err != nil {
			return err
		}
		if len(sv.Indices) == 0 {
			// Query reduced to stop words; the sparse space contributes
			// nothing.
			sparseHits = []rank.Candidate{}
			return nil
		}

		hits, err := e.backend.Search(gctx, provider.SparseQuery(sv), params)
		if err != nil {
			return errors.Upstream(err)
		}
		sparseHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return denseVec, denseHits, sparseHits, nil
}

// applyDefaults fills in limits and the dense weight.
func (e *Engine) applyDefaults(opts Options) (Options, error) {
	if opts.Limit < 0 {
		return opts, errors.InvalidArgument("limit must be >= 0, got %d", opts.Limit)
	}
	if opts.Limit == 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if e.config.MaxLimit > 0 && opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	if opts.DenseWeight == nil {
		w := e.config.DefaultDenseWeight
		opts.DenseWeight = &w
	}
	if opts.MMR != nil && (opts.MMR.Lambda < 0 || opts.MMR.Lambda > 1) {
		return opts, errors.InvalidArgument("mmr lambda must be in [0, 1], got %g", opts.MMR.Lambda)
	}
	return opts, nil
}

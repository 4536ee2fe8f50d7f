// Package local provides an embedded vector-search backend: an HNSW graph
// for dense queries, a Bleve index for sparse queries, and a SQLite store
// for payloads and original vectors. It exists so the toolkit runs without
// a remote search service.
package local

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

const (
	denseIndexFile  = "dense.hnsw"
	lexicalIndexDir = "lexical.bleve"
	payloadDBFile   = "points.db"
	lockFile        = "lock"

	// filterOverfetch widens dense searches when a payload filter is set,
	// since the graph knows nothing about payloads.
	filterOverfetch = 4
)

// Config configures the local backend.
type Config struct {
	// Dir is the index directory. Empty runs everything in memory.
	Dir string

	// Dimensions is the dense embedding dimension. Required.
	Dimensions int

	// M is the HNSW max connections per layer.
	M int

	// EfSearch is the HNSW query-time search width.
	EfSearch int

	// DefaultLimit applies when SearchParams.Limit is zero.
	DefaultLimit int

	// CacheSize bounds the payload LRU cache.
	CacheSize int
}

// DefaultConfig returns a config with the usual defaults.
func DefaultConfig(dir string, dimensions int) Config {
	return Config{
		Dir:          dir,
		Dimensions:   dimensions,
		M:            16,
		EfSearch:     64,
		DefaultLimit: 10,
		CacheSize:    1024,
	}
}

// Local is an embedded provider.Provider.
type Local struct {
	mu       sync.RWMutex
	cfg      Config
	dense    *denseIndex
	lexical  *lexicalIndex
	payloads *payloadStore
	lock     *flock.Flock
	closed   bool
}

var _ provider.Provider = (*Local)(nil)

// New opens the backend. A directory-backed instance takes an exclusive
// file lock and reloads any previously saved dense index.
func New(cfg Config) (*Local, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.InvalidArgument("dimensions must be > 0, got %d", cfg.Dimensions)
	}
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 64
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}

	var lock *flock.Flock
	var payloadPath, lexicalPath string
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, errors.StoreError("create index directory", err)
		}
		lock = flock.New(filepath.Join(cfg.Dir, lockFile))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, errors.StoreError("acquire index lock", err)
		}
		if !locked {
			return nil, errors.Newf(errors.ErrCodeStoreLocked,
				"index directory %s is locked by another process", cfg.Dir)
		}
		payloadPath = filepath.Join(cfg.Dir, payloadDBFile)
		lexicalPath = filepath.Join(cfg.Dir, lexicalIndexDir)
	}

	payloads, err := newPayloadStore(payloadPath, cfg.CacheSize)
	if err != nil {
		unlock(lock)
		return nil, err
	}

	lexical, err := newLexicalIndex(lexicalPath)
	if err != nil {
		_ = payloads.close()
		unlock(lock)
		return nil, err
	}

	dense := newDenseIndex(cfg.Dimensions, cfg.M, cfg.EfSearch)
	if cfg.Dir != "" {
		if err := dense.load(filepath.Join(cfg.Dir, denseIndexFile)); err != nil {
			_ = lexical.close()
			_ = payloads.close()
			unlock(lock)
			return nil, err
		}
	}

	slog.Debug("local_backend_opened",
		slog.String("dir", cfg.Dir),
		slog.Int("dimensions", cfg.Dimensions),
		slog.Int("points", dense.count()))

	return &Local{
		cfg:      cfg,
		dense:    dense,
		lexical:  lexical,
		payloads: payloads,
		lock:     lock,
	}, nil
}

func unlock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

// Upsert stores points across all three indexes.
func (l *Local) Upsert(ctx context.Context, points []provider.Point) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return errors.Newf(errors.ErrCodeStoreClosed, "backend is closed")
	}
	if len(points) == 0 {
		return nil
	}

	stored := make([]storedPoint, 0, len(points))
	for _, p := range points {
		if len(p.Dense) != l.cfg.Dimensions {
			return errors.Newf(errors.ErrCodeDimensionMismatch,
				"point %d: expected %d dimensions, got %d", p.ID, l.cfg.Dimensions, len(p.Dense))
		}
		if p.Sparse != nil {
			if err := p.Sparse.Validate(); err != nil {
				return err
			}
		}
		stored = append(stored, storedPoint{id: p.ID, payload: p.Payload, dense: p.Dense})
	}

	if err := l.payloads.upsert(ctx, stored); err != nil {
		return err
	}
	for _, p := range points {
		if err := l.dense.add(p.ID, p.Dense); err != nil {
			return err
		}
	}
	return l.lexical.indexPoints(points)
}

// Search answers a dense or sparse top-k query.
func (l *Local) Search(ctx context.Context, query provider.QueryVector, params provider.SearchParams) ([]rank.Candidate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, errors.Newf(errors.ErrCodeStoreClosed, "backend is closed")
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if params.Limit < 0 {
		return nil, errors.InvalidArgument("limit must be >= 0, got %d", params.Limit)
	}
	limit := params.Limit
	if limit == 0 {
		limit = l.cfg.DefaultLimit
	}

	switch query.Kind {
	case provider.QueryKindDense:
		return l.searchDense(ctx, query.Dense, params, limit)
	case provider.QueryKindSparse:
		return l.searchSparse(ctx, *query.Sparse, params, limit)
	default:
		return nil, errors.InvalidArgument("unknown query kind %q", string(query.Kind))
	}
}

func (l *Local) searchDense(ctx context.Context, vec []float32, params provider.SearchParams, limit int) ([]rank.Candidate, error) {
	fetch := limit
	if params.Filter != nil {
		fetch = limit * filterOverfetch
	}

	hits, err := l.dense.search(vec, fetch)
	if err != nil {
		return nil, err
	}
	return l.assemble(ctx, hits, params, limit)
}

func (l *Local) searchSparse(ctx context.Context, sv provider.SparseVector, params provider.SearchParams, limit int) ([]rank.Candidate, error) {
	if len(sv.Terms) == 0 {
		return nil, errors.InvalidArgument("sparse query has no term annotations; this backend executes sparse vectors as term queries")
	}

	hits, err := l.lexical.search(ctx, sv, params.Filter, limit)
	if err != nil {
		return nil, err
	}

	scored := make([]denseHit, len(hits))
	for i, h := range hits {
		scored[i] = denseHit{ID: h.ID, Score: h.Score}
	}
	// The lexical index already applied the filter.
	noFilter := params
	noFilter.Filter = nil
	return l.assemble(ctx, scored, noFilter, limit)
}

// assemble joins hits with payloads, applies the filter and score
// threshold, truncates to limit, and optionally attaches stored vectors.
func (l *Local) assemble(ctx context.Context, hits []denseHit, params provider.SearchParams, limit int) ([]rank.Candidate, error) {
	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	payloads, err := l.payloads.payloads(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]rank.Candidate, 0, len(hits))
	for _, h := range hits {
		payload, ok := payloads[h.ID]
		if !ok {
			continue
		}
		if !params.Filter.Matches(payload) {
			continue
		}
		if params.ScoreThreshold > 0 && h.Score < params.ScoreThreshold {
			continue
		}
		candidates = append(candidates, rank.Candidate{ID: h.ID, Score: h.Score, Payload: payload})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if params.WithVectors {
		remaining := make([]uint64, len(candidates))
		for i, c := range candidates {
			remaining[i] = c.ID
		}
		vectors, err := l.payloads.denseVectors(ctx, remaining)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			candidates[i].Vector = vectors[candidates[i].ID]
		}
	}
	return candidates, nil
}

// AllDense returns every stored ID and original dense vector, ordered by
// ID. Evaluation tooling uses it to compute exact ground truth; it is not
// part of the provider contract.
func (l *Local) AllDense(ctx context.Context) ([]uint64, [][]float32, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, nil, errors.Newf(errors.ErrCodeStoreClosed, "backend is closed")
	}
	return l.payloads.allDense(ctx)
}

// Count returns the number of stored points.
func (l *Local) Count(ctx context.Context) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, errors.Newf(errors.ErrCodeStoreClosed, "backend is closed")
	}
	return l.payloads.count(ctx)
}

// Close saves the dense index, closes all stores, and releases the lock.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if l.cfg.Dir != "" {
		if err := l.dense.save(filepath.Join(l.cfg.Dir, denseIndexFile)); err != nil {
			firstErr = err
		}
	}
	if err := l.lexical.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.payloads.close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if l.lock != nil {
		if err := l.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = errors.StoreError("release index lock", err)
		}
	}
	return firstErr
}

package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchlab-dev/searchlab/internal/embed"
	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

// fakeProvider returns canned candidates per query kind and records the
// params it was called with.
type fakeProvider struct {
	denseHits  []rank.Candidate
	sparseHits []rank.Candidate
	denseErr   error
	sparseErr  error
	lastParams provider.SearchParams
	calls      int
}

func (f *fakeProvider) Search(_ context.Context, query provider.QueryVector, params provider.SearchParams) ([]rank.Candidate, error) {
	f.calls++
	f.lastParams = params
	switch query.Kind {
	case provider.QueryKindDense:
		return f.denseHits, f.denseErr
	case provider.QueryKindSparse:
		return f.sparseHits, f.sparseErr
	}
	return nil, errors.InvalidArgument("unknown kind")
}

func (f *fakeProvider) Upsert(context.Context, []provider.Point) error { return nil }
func (f *fakeProvider) Count(context.Context) (uint64, error)          { return 0, nil }
func (f *fakeProvider) Close() error                                   { return nil }

// fixedDenseEncoder always returns the same query vector, making MMR
// relevance deterministic in tests.
type fixedDenseEncoder struct {
	vec []float32
}

func (f *fixedDenseEncoder) Encode(context.Context, string) ([]float32, error) {
	return f.vec, nil
}

func (f *fixedDenseEncoder) EncodeBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}

func (f *fixedDenseEncoder) Dimensions() int { return len(f.vec) }
func (f *fixedDenseEncoder) Name() string    { return "fixed" }

func newTestEngine(t *testing.T, backend provider.Provider) *Engine {
	t.Helper()
	engine, err := NewEngine(embed.NewHashEncoder(64), embed.NewTermEncoder(), backend)
	require.NoError(t, err)
	return engine
}

func scoredCandidates(ids []uint64, scores []float64) []rank.Candidate {
	out := make([]rank.Candidate, len(ids))
	for i, id := range ids {
		out[i] = rank.Candidate{ID: id, Score: scores[i]}
	}
	return out
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	backend := &fakeProvider{}

	_, err := NewEngine(nil, embed.NewTermEncoder(), backend)
	require.Error(t, err)

	_, err = NewEngine(embed.NewHashEncoder(64), nil, backend)
	require.Error(t, err)

	_, err = NewEngine(embed.NewHashEncoder(64), embed.NewTermEncoder(), nil)
	require.Error(t, err)
}

func TestEngine_EmptyQueryYieldsEmptyResult(t *testing.T) {
	backend := &fakeProvider{}
	engine := newTestEngine(t, backend)

	results, err := engine.Search(context.Background(), "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, backend.calls, "backend must not be queried for an empty query")
}

func TestEngine_FusesBothSpaces(t *testing.T) {
	backend := &fakeProvider{
		denseHits:  scoredCandidates([]uint64{1, 2}, []float64{0.9, 0.5}),
		sparseHits: scoredCandidates([]uint64{2, 3}, []float64{0.8, 0.6}),
	}
	engine := newTestEngine(t, backend)

	results, err := engine.Search(context.Background(), "reset password", Options{Limit: 10})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, uint64(2), results[0].ID)
	assert.InDelta(t, 0.65, results[0].Score, 1e-9)
	assert.Equal(t, uint64(1), results[1].ID)
	assert.InDelta(t, 0.45, results[1].Score, 1e-9)
	assert.Equal(t, uint64(3), results[2].ID)
	assert.InDelta(t, 0.30, results[2].Score, 1e-9)
	assert.Equal(t, 2, backend.calls, "both spaces queried")
}

func TestEngine_DenseWeightOverride(t *testing.T) {
	backend := &fakeProvider{
		denseHits:  scoredCandidates([]uint64{1}, []float64{0.9}),
		sparseHits: scoredCandidates([]uint64{2}, []float64{0.8}),
	}
	engine := newTestEngine(t, backend)

	w := 1.0
	results, err := engine.Search(context.Background(), "reset password", Options{Limit: 10, DenseWeight: &w})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, uint64(1), results[0].ID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)
}

func TestEngine_UpstreamFailurePropagates(t *testing.T) {
	boom := fmt.Errorf("connection refused")
	backend := &fakeProvider{denseErr: boom}
	engine := newTestEngine(t, backend)

	_, err := engine.Search(context.Background(), "reset password", Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstream, errors.GetCode(err))
	assert.ErrorIs(t, err, boom, "original backend error preserved in the chain")
}

func TestEngine_NoPartialResultsOnSparseFailure(t *testing.T) {
	backend := &fakeProvider{
		denseHits: scoredCandidates([]uint64{1}, []float64{0.9}),
		sparseErr: fmt.Errorf("timeout"),
	}
	engine := newTestEngine(t, backend)

	results, err := engine.Search(context.Background(), "reset password", Options{})
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestEngine_MMRRequestsVectorsAndDiversifies(t *testing.T) {
	// Candidate vectors: 10 and 11 nearly duplicate each other, 12 is
	// orthogonal. MMR with lambda=0.5 must pick 10 then 12.
	backend := &fakeProvider{
		denseHits: []rank.Candidate{
			{ID: 10, Score: 0.95, Vector: []float32{0.8, 0.6, 0}},
			{ID: 11, Score: 0.94, Vector: []float32{0.78, 0.62, 0.06}},
			{ID: 12, Score: 0.40, Vector: []float32{0, 0, 1}},
		},
		sparseHits: []rank.Candidate{},
	}
	engine, err := NewEngine(&fixedDenseEncoder{vec: []float32{1, 0, 0}}, embed.NewTermEncoder(), backend)
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), "reset password",
		Options{Limit: 2, MMR: &MMROptions{Lambda: 0.5}})
	require.NoError(t, err)

	assert.True(t, backend.lastParams.WithVectors, "MMR needs stored vectors")
	require.Len(t, results, 2)
	assert.Equal(t, uint64(10), results[0].ID)
	assert.Equal(t, uint64(12), results[1].ID)
}

func TestEngine_InvalidOptions(t *testing.T) {
	engine := newTestEngine(t, &fakeProvider{})

	t.Run("negative limit", func(t *testing.T) {
		_, err := engine.Search(context.Background(), "q", Options{Limit: -1})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidArgument(err))
	})

	t.Run("weight out of range", func(t *testing.T) {
		w := 1.5
		_, err := engine.Search(context.Background(), "q", Options{DenseWeight: &w})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidArgument(err))
	})

	t.Run("lambda out of range", func(t *testing.T) {
		_, err := engine.Search(context.Background(), "q", Options{MMR: &MMROptions{Lambda: -0.1}})
		require.Error(t, err)
		assert.True(t, errors.IsInvalidArgument(err))
	})
}

func TestEngine_LimitCappedAtMax(t *testing.T) {
	backend := &fakeProvider{
		denseHits:  scoredCandidates([]uint64{1, 2, 3}, []float64{0.9, 0.8, 0.7}),
		sparseHits: []rank.Candidate{},
	}
	engine, err := NewEngine(embed.NewHashEncoder(64), embed.NewTermEncoder(), backend,
		WithConfig(EngineConfig{DefaultLimit: 10, MaxLimit: 2, DefaultDenseWeight: 0.5, FetchMultiplier: 2}))
	require.NoError(t, err)

	results, err := engine.Search(context.Background(), "reset password", Options{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

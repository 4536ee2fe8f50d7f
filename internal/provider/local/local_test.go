package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/provider"
)

func newTestBackend(t *testing.T, dir string) *Local {
	t.Helper()
	backend, err := New(DefaultConfig(dir, 3))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func seedTestPoints(t *testing.T, backend *Local) {
	t.Helper()
	points := []provider.Point{
		{
			ID:    1,
			Dense: []float32{1, 0, 0},
			Payload: map[string]string{
				"text": "how to reset your password", "category": "howto", "lang": "en",
			},
		},
		{
			ID:    2,
			Dense: []float32{0.9, 0.1, 0},
			Payload: map[string]string{
				"text": "password policy for accounts", "category": "policy", "lang": "en",
			},
		},
		{
			ID:    3,
			Dense: []float32{0, 0, 1},
			Payload: map[string]string{
				"text": "release notes for version two", "category": "release", "lang": "en",
			},
		},
	}
	require.NoError(t, backend.Upsert(context.Background(), points))
}

func TestLocal_DenseSearch(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	results, err := backend.Search(context.Background(),
		provider.DenseQuery([]float32{1, 0, 0}),
		provider.SearchParams{Limit: 2})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, uint64(1), results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Equal(t, uint64(2), results[1].ID)
	assert.Equal(t, "how to reset your password", results[0].Payload["text"])
}

func TestLocal_SparseSearch(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	results, err := backend.Search(context.Background(),
		provider.SparseQuery(provider.SparseVector{
			Indices: []uint32{1, 2},
			Values:  []float32{1.0, 0.5},
			Terms:   []string{"release", "notes"},
		}),
		provider.SearchParams{Limit: 5})
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, uint64(3), results[0].ID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestLocal_SparseSearchWithoutTermsFails(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	_, err := backend.Search(context.Background(),
		provider.SparseQuery(provider.SparseVector{
			Indices: []uint32{1},
			Values:  []float32{1.0},
		}),
		provider.SearchParams{Limit: 5})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestLocal_FilterRestrictsResults(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	t.Run("dense with category filter", func(t *testing.T) {
		results, err := backend.Search(context.Background(),
			provider.DenseQuery([]float32{1, 0, 0}),
			provider.SearchParams{Limit: 5, Filter: &provider.Filter{Category: "policy"}})
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, uint64(2), results[0].ID)
	})

	t.Run("sparse with category filter", func(t *testing.T) {
		results, err := backend.Search(context.Background(),
			provider.SparseQuery(provider.SparseVector{
				Indices: []uint32{1},
				Values:  []float32{1.0},
				Terms:   []string{"password"},
			}),
			provider.SearchParams{Limit: 5, Filter: &provider.Filter{Category: "howto"}})
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, uint64(1), results[0].ID)
	})
}

func TestLocal_WithVectorsReturnsStoredVectors(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	results, err := backend.Search(context.Background(),
		provider.DenseQuery([]float32{0, 0, 1}),
		provider.SearchParams{Limit: 1, WithVectors: true})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, []float32{0, 0, 1}, results[0].Vector)
}

func TestLocal_EmptyIndexYieldsEmptyResults(t *testing.T) {
	backend := newTestBackend(t, "")

	results, err := backend.Search(context.Background(),
		provider.DenseQuery([]float32{1, 0, 0}),
		provider.SearchParams{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestLocal_UpsertReplacesExistingPoint(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	require.NoError(t, backend.Upsert(context.Background(), []provider.Point{{
		ID:    1,
		Dense: []float32{0, 1, 0},
		Payload: map[string]string{
			"text": "updated entry", "category": "faq", "lang": "en",
		},
	}}))

	count, err := backend.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	results, err := backend.Search(context.Background(),
		provider.DenseQuery([]float32{0, 1, 0}),
		provider.SearchParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].ID)
	assert.Equal(t, "updated entry", results[0].Payload["text"])
}

func TestLocal_DimensionMismatchOnUpsert(t *testing.T) {
	backend := newTestBackend(t, "")

	err := backend.Upsert(context.Background(), []provider.Point{{
		ID:    1,
		Dense: []float32{1, 0},
	}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestLocal_PersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	backend, err := New(DefaultConfig(dir, 3))
	require.NoError(t, err)
	seedTestPoints(t, backend)
	require.NoError(t, backend.Close())

	reopened := newTestBackend(t, dir)
	count, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	results, err := reopened.Search(context.Background(),
		provider.DenseQuery([]float32{1, 0, 0}),
		provider.SearchParams{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].ID)
}

func TestLocal_LockPreventsSecondOpen(t *testing.T) {
	dir := t.TempDir()
	_ = newTestBackend(t, dir)

	_, err := New(DefaultConfig(dir, 3))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreLocked, errors.GetCode(err))
}

func TestLocal_ClosedBackendFails(t *testing.T) {
	backend, err := New(DefaultConfig("", 3))
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = backend.Search(context.Background(),
		provider.DenseQuery([]float32{1, 0, 0}), provider.SearchParams{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreClosed, errors.GetCode(err))

	_, err = backend.Count(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStoreClosed, errors.GetCode(err))
}

func TestLocal_AllDenseReturnsVectorsInIDOrder(t *testing.T) {
	backend := newTestBackend(t, "")
	seedTestPoints(t, backend)

	ids, vectors, err := backend.AllDense(context.Background())
	require.NoError(t, err)

	require.Equal(t, []uint64{1, 2, 3}, ids)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 0, 1}, vectors[2])
}

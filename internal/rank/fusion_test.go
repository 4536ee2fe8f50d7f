package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// --- Test Helpers ---

func makeCandidates(ids []uint64, scores []float64) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Score: scores[i]}
	}
	return out
}

func resultIDs(results []Candidate) []uint64 {
	ids := make([]uint64, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}

func TestFuse_ConcreteScenario(t *testing.T) {
	// Given: dense [(1,0.9),(2,0.5)], sparse [(2,0.8),(3,0.6)], weight 0.5
	dense := makeCandidates([]uint64{1, 2}, []float64{0.9, 0.5})
	sparse := makeCandidates([]uint64{2, 3}, []float64{0.8, 0.6})

	results, err := Fuse(dense, sparse, 0.5, 10)
	require.NoError(t, err)

	// Then: fused scores id1=0.45, id2=0.65, id3=0.30 → ranking [2,1,3]
	require.Len(t, results, 3)
	assert.Equal(t, []uint64{2, 1, 3}, resultIDs(results))
	assert.InDelta(t, 0.65, results[0].Score, 1e-9)
	assert.InDelta(t, 0.45, results[1].Score, 1e-9)
	assert.InDelta(t, 0.30, results[2].Score, 1e-9)
}

func TestFuse_WeightBoundaries(t *testing.T) {
	dense := makeCandidates([]uint64{1, 2, 3}, []float64{0.9, 0.8, 0.7})
	sparse := makeCandidates([]uint64{3, 2, 1}, []float64{0.95, 0.85, 0.75})

	t.Run("weight 1.0 equals dense-only ranking", func(t *testing.T) {
		results, err := Fuse(dense, sparse, 1.0, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint64{1, 2, 3}, resultIDs(results))
	})

	t.Run("weight 0.0 equals sparse-only ranking", func(t *testing.T) {
		results, err := Fuse(dense, sparse, 0.0, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint64{3, 2, 1}, resultIDs(results))
	})
}

func TestFuse_Deterministic(t *testing.T) {
	dense := makeCandidates([]uint64{4, 1, 7, 2}, []float64{0.5, 0.5, 0.5, 0.5})
	sparse := makeCandidates([]uint64{9, 7, 3}, []float64{0.5, 0.5, 0.5})

	first, err := Fuse(dense, sparse, 0.4, 10)
	require.NoError(t, err)

	for range 10 {
		again, err := Fuse(dense, sparse, 0.4, 10)
		require.NoError(t, err)
		assert.Equal(t, resultIDs(first), resultIDs(again))
	}
}

func TestFuse_UnionCoverage(t *testing.T) {
	// id 3 only appears in sparse; its dense score is treated as 0.0,
	// not an exclusion.
	dense := makeCandidates([]uint64{1}, []float64{0.9})
	sparse := makeCandidates([]uint64{3}, []float64{0.6})

	results, err := Fuse(dense, sparse, 0.5, 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Contains(t, resultIDs(results), uint64(3))
	for _, r := range results {
		if r.ID == 3 {
			assert.InDelta(t, 0.30, r.Score, 1e-9)
		}
	}
}

func TestFuse_TieBreak_DenseRankThenSparseRankThenID(t *testing.T) {
	t.Run("equal fused scores keep dense list order", func(t *testing.T) {
		dense := makeCandidates([]uint64{8, 2, 5}, []float64{0.5, 0.5, 0.5})
		results, err := Fuse(dense, nil, 1.0, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint64{8, 2, 5}, resultIDs(results))
	})

	t.Run("dense hit sorts before equal-scored sparse-only hit", func(t *testing.T) {
		dense := makeCandidates([]uint64{5}, []float64{0.4})
		sparse := makeCandidates([]uint64{3}, []float64{0.4})
		results, err := Fuse(dense, sparse, 0.5, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint64{5, 3}, resultIDs(results))
	})

	t.Run("sparse rank breaks remaining ties", func(t *testing.T) {
		sparse := makeCandidates([]uint64{9, 4}, []float64{0.4, 0.4})
		results, err := Fuse(nil, sparse, 0.5, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint64{9, 4}, resultIDs(results))
	})
}

func TestFuse_Truncation(t *testing.T) {
	dense := makeCandidates([]uint64{1, 2, 3, 4}, []float64{0.9, 0.8, 0.7, 0.6})

	results, err := Fuse(dense, nil, 1.0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, resultIDs(results))

	results, err = Fuse(dense, nil, 1.0, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFuse_DenseMetadataWinsOnCollision(t *testing.T) {
	dense := []Candidate{{ID: 2, Score: 0.5, Payload: map[string]string{"text": "from dense"}}}
	sparse := []Candidate{{ID: 2, Score: 0.8, Payload: map[string]string{"text": "from sparse"}}}

	results, err := Fuse(dense, sparse, 0.5, 10)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "from dense", results[0].Payload["text"])
	assert.InDelta(t, 0.65, results[0].Score, 1e-9)
}

func TestFuse_DuplicateWithinSourceLastWriteWins(t *testing.T) {
	dense := makeCandidates([]uint64{7, 7}, []float64{0.2, 0.9})

	results, err := Fuse(dense, nil, 1.0, 10)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
}

func TestFuse_EmptyInputsNotAnError(t *testing.T) {
	results, err := Fuse(nil, nil, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFuse_InvalidArguments(t *testing.T) {
	dense := makeCandidates([]uint64{1}, []float64{0.9})

	tests := []struct {
		name   string
		weight float64
		limit  int
	}{
		{"weight below range", -0.1, 10},
		{"weight above range", 1.1, 10},
		{"negative limit", 0.5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := Fuse(dense, nil, tt.weight, tt.limit)
			require.Error(t, err)
			assert.Nil(t, results)
			assert.True(t, errors.IsInvalidArgument(err))
		})
	}
}

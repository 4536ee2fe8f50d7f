package rank

import (
	"sort"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// Neighbor is one entry of an exact top-k result: the index of a vector in
// the input slice and its cosine similarity to the query.
type Neighbor struct {
	Index int
	Score float64
}

// ExactTopK computes the exact k nearest vectors to query by brute-force
// cosine similarity. It is the ground-truth baseline for recall evaluation
// of approximate indexes.
//
// Results are sorted by score descending with ties broken by lowest index;
// the ordering never depends on sort stability. A negative k or any
// zero-norm vector fails with a validation error. An empty vector set or
// k == 0 yields an empty slice.
func ExactTopK(query []float32, vectors [][]float32, k int) ([]Neighbor, error) {
	if k < 0 {
		return nil, errors.InvalidArgument("k must be >= 0, got %d", k)
	}
	if len(vectors) == 0 || k == 0 {
		return []Neighbor{}, nil
	}

	q, err := Normalize(query)
	if err != nil {
		return nil, err
	}

	neighbors := make([]Neighbor, len(vectors))
	for i, v := range vectors {
		if err := checkDim(len(q), len(v)); err != nil {
			return nil, err
		}
		u, err := Normalize(v)
		if err != nil {
			return nil, err
		}
		neighbors[i] = Neighbor{Index: i, Score: Dot(u, q)}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].Index < neighbors[j].Index
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

package rank

import (
	"math"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// DefaultMMRLambda balances relevance and diversity equally.
const DefaultMMRLambda = 0.5

// MMRRerank greedily re-orders candidates with Maximal Marginal Relevance,
// balancing relevance to the query against diversity from already-selected
// items:
//
//	mmr(i) = lambda*relevance(i) - (1-lambda)*max_sim(i, selected)
//
// The query and every candidate vector are unit-normalized first, so both
// relevance and pairwise similarity are plain dot products in [-1, 1].
// The first pick is the most relevant candidate; each subsequent pick
// maximizes the MMR score. All ties break toward the lowest original
// index, making the output deterministic.
//
// Returns min(k, len(candidates)) candidates in selection order — that
// order is the diversified ranking. lambda outside [0,1], negative k,
// a missing candidate vector, or any zero-norm vector fails with a
// validation error. Empty candidates yield an empty slice.
func MMRRerank(query []float32, candidates []Candidate, lambda float64, k int) ([]Candidate, error) {
	if lambda < 0 || lambda > 1 {
		return nil, errors.InvalidArgument("lambda must be in [0,1], got %v", lambda)
	}
	if k < 0 {
		return nil, errors.InvalidArgument("k must be >= 0, got %d", k)
	}
	if len(candidates) == 0 || k == 0 {
		return []Candidate{}, nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	q, err := Normalize(query)
	if err != nil {
		return nil, err
	}

	n := len(candidates)
	unit := make([][]float32, n)
	relevance := make([]float64, n)
	for i, c := range candidates {
		if c.Vector == nil {
			return nil, errors.InvalidArgument("candidate %d (id %d) has no embedding vector", i, c.ID)
		}
		if err := checkDim(len(q), len(c.Vector)); err != nil {
			return nil, err
		}
		u, err := Normalize(c.Vector)
		if err != nil {
			return nil, err
		}
		unit[i] = u
		relevance[i] = Dot(u, q)
	}

	// First selection: pure relevance. The diversity term is undefined
	// while the selected set is empty.
	best := 0
	for i := 1; i < n; i++ {
		if relevance[i] > relevance[best] {
			best = i
		}
	}

	selected := make([]int, 1, k)
	selected[0] = best
	taken := make([]bool, n)
	taken[best] = true

	// maxSim[i] tracks the maximum similarity from candidate i to any
	// already-selected candidate. Each round only the last selected
	// vector can raise it.
	maxSim := make([]float64, n)
	for i := range maxSim {
		maxSim[i] = math.Inf(-1)
	}
	last := best

	for len(selected) < k {
		best = -1
		bestScore := math.Inf(-1)

		for i := 0; i < n; i++ {
			if taken[i] {
				continue
			}
			if sim := Dot(unit[i], unit[last]); sim > maxSim[i] {
				maxSim[i] = sim
			}
			score := lambda*relevance[i] - (1-lambda)*maxSim[i]
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		if best == -1 {
			break
		}
		selected = append(selected, best)
		taken[best] = true
		last = best
	}

	out := make([]Candidate, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out, nil
}

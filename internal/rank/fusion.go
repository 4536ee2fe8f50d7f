package rank

import (
	"math"
	"sort"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// DefaultDenseWeight is the default weight of the dense source in fusion.
// 0.5 gives both sources equal influence on the fused ranking.
const DefaultDenseWeight = 0.5

// rankAbsent marks an id that never appeared in a source list.
// Sorts after every real rank so single-source hits break ties last.
const rankAbsent = math.MaxInt

// Fuse merges two independently ranked result lists into a single ranking
// using weighted linear combination of raw scores:
//
//	fused(id) = denseWeight*dense(id) + (1-denseWeight)*sparse(id)
//
// An id absent from one source contributes 0.0 from that source, not an
// exclusion. This inflates the fused rank of single-source hits relative
// to score-normalized schemes; the asymmetry is deliberate and documented.
//
// Within one source, a duplicated id keeps its last score (last write
// wins). Across sources, the candidate's identity (payload, vector) comes
// from the dense list when both returned it.
//
// Results are sorted by: fused score (desc) → dense rank (asc) →
// sparse rank (asc) → id (asc), then truncated to finalLimit. The
// secondary keys make equal-score ordering deterministic.
//
// denseWeight outside [0,1] or a negative finalLimit fails with a
// validation error. Two empty inputs yield an empty slice, not an error.
func Fuse(dense, sparse []Candidate, denseWeight float64, finalLimit int) ([]Candidate, error) {
	if denseWeight < 0 || denseWeight > 1 {
		return nil, errors.InvalidArgument("dense weight must be in [0,1], got %v", denseWeight)
	}
	if finalLimit < 0 {
		return nil, errors.InvalidArgument("final limit must be >= 0, got %d", finalLimit)
	}
	if len(dense) == 0 && len(sparse) == 0 {
		return []Candidate{}, nil
	}

	denseScores, denseRanks := scoreTable(dense)
	sparseScores, sparseRanks := scoreTable(sparse)

	// Union of ids across both tables.
	ids := make([]uint64, 0, len(denseScores)+len(sparseScores))
	for id := range denseScores {
		ids = append(ids, id)
	}
	for id := range sparseScores {
		if _, seen := denseScores[id]; !seen {
			ids = append(ids, id)
		}
	}

	fused := make(map[uint64]float64, len(ids))
	for _, id := range ids {
		fused[id] = denseWeight*denseScores[id] + (1-denseWeight)*sparseScores[id]
	}

	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if fused[a] != fused[b] {
			return fused[a] > fused[b]
		}
		if ra, rb := rankOrAbsent(denseRanks, a), rankOrAbsent(denseRanks, b); ra != rb {
			return ra < rb
		}
		if ra, rb := rankOrAbsent(sparseRanks, a), rankOrAbsent(sparseRanks, b); ra != rb {
			return ra < rb
		}
		return a < b
	})

	if len(ids) > finalLimit {
		ids = ids[:finalLimit]
	}

	// Re-attach full candidate metadata, dense source first so dense
	// identity wins on id collision.
	byID := make(map[uint64]Candidate, len(dense)+len(sparse))
	for _, c := range dense {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}
	for _, c := range sparse {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}

	results := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		c := byID[id]
		c.Score = fused[id]
		results = append(results, c)
	}
	return results, nil
}

// scoreTable builds the per-source id→score mapping and the 0-indexed rank
// of each id's last occurrence. Later duplicates overwrite earlier ones.
func scoreTable(list []Candidate) (map[uint64]float64, map[uint64]int) {
	scores := make(map[uint64]float64, len(list))
	ranks := make(map[uint64]int, len(list))
	for i, c := range list {
		scores[c.ID] = c.Score
		ranks[c.ID] = i
	}
	return scores, ranks
}

func rankOrAbsent(ranks map[uint64]int, id uint64) int {
	if r, ok := ranks[id]; ok {
		return r
	}
	return rankAbsent
}

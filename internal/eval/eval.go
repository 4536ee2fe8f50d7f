// Package eval provides offline quality and performance measurements for
// search pipelines: recall against an exact baseline, redundancy of a result
// set, and wall-clock latency statistics.
package eval

import (
	"strings"

	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

// RecallAtK returns the fraction of the top-k ground-truth ids that appear in
// the top-k predicted ids. Both lists are truncated to k before comparison.
// An empty truncated ground truth yields 0.0 rather than an error.
func RecallAtK(predicted, groundTruth []uint64, k int) (float64, error) {
	if k < 0 {
		return 0, errors.InvalidArgument("k must be >= 0, got %d", k)
	}

	truthSet := make(map[uint64]struct{})
	for _, id := range truncate(groundTruth, k) {
		truthSet[id] = struct{}{}
	}
	if len(truthSet) == 0 {
		return 0.0, nil
	}

	predSet := make(map[uint64]struct{})
	for _, id := range truncate(predicted, k) {
		predSet[id] = struct{}{}
	}

	hits := 0
	for id := range truthSet {
		if _, ok := predSet[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truthSet)), nil
}

func truncate(ids []uint64, k int) []uint64 {
	if len(ids) > k {
		return ids[:k]
	}
	return ids
}

// Redundancy returns the mean cosine similarity over all unordered pairs of
// vectors. Every pair contributes, including pairs with zero or negative
// similarity. Fewer than two vectors yields 0.0; a zero-norm vector fails
// with a validation error.
func Redundancy(vectors [][]float32) (float64, error) {
	if len(vectors) < 2 {
		return 0.0, nil
	}

	normed := make([][]float32, len(vectors))
	for i, v := range vectors {
		u, err := rank.Normalize(v)
		if err != nil {
			return 0, err
		}
		normed[i] = u
	}

	var sum float64
	var pairs int
	for i := 0; i < len(normed); i++ {
		for j := i + 1; j < len(normed); j++ {
			sum += rank.Dot(normed[i], normed[j])
			pairs++
		}
	}
	return sum / float64(pairs), nil
}

// TextRedundancy returns the mean Jaccard similarity of lowercased word sets
// over all unordered pairs of texts. It is a cheap proxy for Redundancy when
// vectors are unavailable. Fewer than two texts yields 0.0.
func TextRedundancy(texts []string) float64 {
	if len(texts) < 2 {
		return 0.0
	}

	wordSets := make([]map[string]struct{}, len(texts))
	for i, text := range texts {
		set := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(text)) {
			set[w] = struct{}{}
		}
		wordSets[i] = set
	}

	var sum float64
	var pairs int
	for i := 0; i < len(wordSets); i++ {
		for j := i + 1; j < len(wordSets); j++ {
			sum += jaccard(wordSets[i], wordSets[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func jaccard(a, b map[string]struct{}) float64 {
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

package embed

import (
	"context"
	"math"
	"sort"

	"github.com/searchlab-dev/searchlab/internal/provider"
)

// sparseVocabSpace is the hash space for sparse term indices. Collisions
// are tolerable; scores come from the lexical index, not the indices.
const sparseVocabSpace = 1 << 20

// TermEncoder produces sparse embeddings as term-frequency weights. Each
// distinct token becomes one dimension, weighted 1 + ln(tf), with the
// surface term carried as an annotation so lexical backends can execute
// the vector as a term query.
type TermEncoder struct{}

var _ SparseEncoder = (*TermEncoder)(nil)

// NewTermEncoder creates a sparse term encoder.
func NewTermEncoder() *TermEncoder {
	return &TermEncoder{}
}

// EncodeSparse generates the sparse embedding for a text. Terms are sorted
// so identical input yields identical output. Whitespace-only text yields
// an empty vector.
func (e *TermEncoder) EncodeSparse(_ context.Context, text string) (provider.SparseVector, error) {
	tokens := filterStopWords(tokenize(text))
	if len(tokens) == 0 {
		return provider.SparseVector{}, nil
	}

	counts := make(map[string]int)
	for _, t := range tokens {
		counts[t]++
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	sv := provider.SparseVector{
		Indices: make([]uint32, len(terms)),
		Values:  make([]float32, len(terms)),
		Terms:   terms,
	}
	for i, term := range terms {
		sv.Indices[i] = uint32(hashToIndex(term, sparseVocabSpace))
		sv.Values[i] = float32(1 + math.Log(float64(counts[term])))
	}
	return sv, nil
}

// Name returns the encoder identifier.
func (e *TermEncoder) Name() string { return "term" }

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/searchlab-dev/searchlab/internal/errors"
)

// DefaultDimensions is the dense embedding width when none is configured.
const DefaultDimensions = 256

// Weights for vector generation. Word tokens carry most of the signal;
// character trigrams add robustness to morphology and typos.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// HashEncoder generates dense embeddings by hashing word tokens and
// character trigrams into a fixed-width vector, then unit-normalizing.
type HashEncoder struct {
	dims int
}

var _ DenseEncoder = (*HashEncoder)(nil)

// NewHashEncoder creates a dense encoder with the given width. A
// non-positive width falls back to DefaultDimensions.
func NewHashEncoder(dims int) *HashEncoder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashEncoder{dims: dims}
}

// Encode generates the embedding for a single text. Whitespace-only text
// yields a zero vector.
func (e *HashEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}

	vector := make([]float32, e.dims)

	tokens := filterStopWords(tokenize(trimmed))
	for _, token := range tokens {
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}

	normalized := normalizeForNgrams(trimmed)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, e.dims)] += ngramWeight
	}

	return unitNormalize(vector), nil
}

// EncodeBatch generates embeddings for multiple texts.
func (e *HashEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Encode(ctx, text)
		if err != nil {
			return nil, errors.InternalError("encode batch item "+strconv.Itoa(i), err)
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding width.
func (e *HashEncoder) Dimensions() int { return e.dims }

// Name returns the encoder identifier.
func (e *HashEncoder) Name() string { return "hash" }

// normalizeForNgrams strips everything but letters and digits.
func normalizeForNgrams(text string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// extractNgrams extracts n-character sliding windows.
func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return []string{}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to an index.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// unitNormalize scales the vector to unit length. A zero vector is
// returned unchanged.
func unitNormalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
	return v
}

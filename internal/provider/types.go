// Package provider defines the contract between the search engine and a
// vector-search backend. A backend stores points carrying a dense embedding,
// an optional sparse embedding, and a string payload, and answers top-k
// queries for either vector space.
package provider

import (
	"context"

	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

// QueryKind discriminates the two query vector spaces.
type QueryKind string

const (
	QueryKindDense  QueryKind = "dense"
	QueryKindSparse QueryKind = "sparse"
)

// SparseVector is a term-weighted embedding in index/value form. Terms is an
// optional parallel annotation carrying the surface term for each index;
// lexical backends use it to execute the vector as a weighted term query.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
	Terms   []string  `json:"terms,omitempty"`
}

// Validate checks the parallel-slice shape of the sparse vector.
func (v SparseVector) Validate() error {
	if len(v.Indices) != len(v.Values) {
		return errors.InvalidArgument("sparse vector shape mismatch: %d indices, %d values",
			len(v.Indices), len(v.Values))
	}
	if len(v.Terms) > 0 && len(v.Terms) != len(v.Indices) {
		return errors.InvalidArgument("sparse vector term annotations mismatch: %d terms, %d indices",
			len(v.Terms), len(v.Indices))
	}
	return nil
}

// QueryVector is a tagged union: exactly one of Dense or Sparse is set,
// according to Kind. Construct values with DenseQuery or SparseQuery.
type QueryVector struct {
	Kind   QueryKind
	Dense  []float32
	Sparse *SparseVector
}

// DenseQuery wraps a dense embedding as a query vector.
func DenseQuery(v []float32) QueryVector {
	return QueryVector{Kind: QueryKindDense, Dense: v}
}

// SparseQuery wraps a sparse embedding as a query vector.
func SparseQuery(v SparseVector) QueryVector {
	return QueryVector{Kind: QueryKindSparse, Sparse: &v}
}

// Validate checks that the tag and the populated arm agree.
func (q QueryVector) Validate() error {
	switch q.Kind {
	case QueryKindDense:
		if len(q.Dense) == 0 {
			return errors.InvalidArgument("dense query vector is empty")
		}
		if q.Sparse != nil {
			return errors.InvalidArgument("dense query carries a sparse vector")
		}
		return nil
	case QueryKindSparse:
		if q.Sparse == nil || len(q.Sparse.Indices) == 0 {
			return errors.InvalidArgument("sparse query vector is empty")
		}
		if len(q.Dense) > 0 {
			return errors.InvalidArgument("sparse query carries a dense vector")
		}
		return q.Sparse.Validate()
	default:
		return errors.InvalidArgument("unknown query kind %q", string(q.Kind))
	}
}

// Filter restricts search results by payload fields. Empty fields match
// everything.
type Filter struct {
	Category string
	Lang     string
}

// Matches reports whether the payload satisfies every set field.
func (f *Filter) Matches(payload map[string]string) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && payload["category"] != f.Category {
		return false
	}
	if f.Lang != "" && payload["lang"] != f.Lang {
		return false
	}
	return true
}

// SearchParams tunes a single search call.
type SearchParams struct {
	// Limit is the maximum number of results. Zero falls back to the
	// backend's default.
	Limit int

	// Filter restricts results by payload fields. Nil matches everything.
	Filter *Filter

	// WithVectors asks the backend to return each hit's stored dense
	// vector, needed for MMR re-ranking.
	WithVectors bool

	// ScoreThreshold drops hits scoring strictly below it when positive.
	ScoreThreshold float64
}

// Point is one stored record: a dense embedding, an optional sparse
// embedding, and a payload of string fields.
type Point struct {
	ID      uint64
	Dense   []float32
	Sparse  *SparseVector
	Payload map[string]string
}

// Provider is a vector-search backend. Implementations must surface their
// failures unchanged; callers never retry or mask upstream errors.
type Provider interface {
	// Search returns the top candidates for the query in descending score
	// order. An empty index yields an empty slice, not an error.
	Search(ctx context.Context, query QueryVector, params SearchParams) ([]rank.Candidate, error)

	// Upsert inserts points, replacing any existing point with the same ID.
	Upsert(ctx context.Context, points []Point) error

	// Count returns the number of stored points.
	Count(ctx context.Context) (uint64, error)

	// Close releases backend resources.
	Close() error
}

// Package rank implements client-side post-processing of search provider
// results: weighted score fusion of dense and sparse result lists, Maximal
// Marginal Relevance (MMR) re-ranking, and a brute-force exact top-k
// baseline used as ground truth for recall evaluation.
//
// Everything in this package is a pure function over in-memory data. There
// is no shared state between calls; each invocation is safe to run
// concurrently on disjoint inputs.
package rank

// Candidate is a single search result returned by a provider.
type Candidate struct {
	// ID identifies the result. Unique within one query's result set.
	ID uint64

	// Score is the relevance score. Treated as "higher is better"
	// regardless of the underlying similarity metric.
	Score float64

	// Payload carries opaque record fields (text, category, ...).
	Payload map[string]string

	// Vector is the dense embedding, when requested from the provider.
	// Required by MMRRerank, optional everywhere else.
	Vector []float32
}

package local

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/provider"
)

// lexicalIndex executes sparse queries against a Bleve index. A sparse
// vector's term annotations become a disjunction of term queries, each
// boosted by its weight, so the hit score tracks the weighted term overlap.
type lexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// lexicalDoc is the Bleve document shape. Category and lang use the keyword
// analyzer so filters match exact values.
type lexicalDoc struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Lang     string `json:"lang"`
}

type lexicalHit struct {
	ID    uint64
	Score float64
}

func lexicalIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", bleve.NewTextFieldMapping())

	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("category", kw)
	doc.AddFieldMappingsAt("lang", kw)

	m.DefaultMapping = doc
	return m
}

// newLexicalIndex opens or creates a Bleve index at path. An empty path
// creates an in-memory index.
func newLexicalIndex(path string) (*lexicalIndex, error) {
	var idx bleve.Index
	var err error

	if path == "" {
		idx, err = bleve.NewMemOnly(lexicalIndexMapping())
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, lexicalIndexMapping())
		}
	}
	if err != nil {
		return nil, errors.StoreError("open lexical index", err)
	}
	return &lexicalIndex{index: idx}, nil
}

// indexPoints adds documents for the given points in one batch.
func (l *lexicalIndex) indexPoints(points []provider.Point) error {
	if len(points) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.Newf(errors.ErrCodeStoreClosed, "lexical index is closed")
	}

	batch := l.index.NewBatch()
	for _, p := range points {
		doc := lexicalDoc{
			Text:     p.Payload["text"],
			Category: p.Payload["category"],
			Lang:     p.Payload["lang"],
		}
		if err := batch.Index(strconv.FormatUint(p.ID, 10), doc); err != nil {
			return errors.StoreError("index lexical document", err)
		}
	}
	if err := l.index.Batch(batch); err != nil {
		return errors.StoreError("execute lexical batch", err)
	}
	return nil
}

// search executes a sparse vector as a boosted term disjunction, optionally
// conjoined with exact-match payload filters.
func (l *lexicalIndex) search(ctx context.Context, sv provider.SparseVector, filter *provider.Filter, limit int) ([]lexicalHit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, errors.Newf(errors.ErrCodeStoreClosed, "lexical index is closed")
	}

	dis := bleve.NewDisjunctionQuery()
	for i, term := range sv.Terms {
		tq := bleve.NewTermQuery(strings.ToLower(term))
		tq.SetField("text")
		tq.SetBoost(float64(sv.Values[i]))
		dis.AddQuery(tq)
	}

	var q query.Query = dis
	if filter != nil && (filter.Category != "" || filter.Lang != "") {
		conj := bleve.NewConjunctionQuery(dis)
		if filter.Category != "" {
			tq := bleve.NewTermQuery(filter.Category)
			tq.SetField("category")
			conj.AddQuery(tq)
		}
		if filter.Lang != "" {
			tq := bleve.NewTermQuery(filter.Lang)
			tq.SetField("lang")
			conj.AddQuery(tq)
		}
		q = conj
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit

	result, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.StoreError("lexical search", err)
	}

	hits := make([]lexicalHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeCorruptIndex, "non-numeric lexical document ID "+hit.ID, err)
		}
		hits = append(hits, lexicalHit{ID: id, Score: hit.Score})
	}
	return hits, nil
}

func (l *lexicalIndex) count() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, errors.Newf(errors.ErrCodeStoreClosed, "lexical index is closed")
	}
	return l.index.DocCount()
}

func (l *lexicalIndex) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.index.Close(); err != nil {
		return errors.StoreError("close lexical index", err)
	}
	return nil
}

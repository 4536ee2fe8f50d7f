package local

import (
	"bufio"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/searchlab-dev/searchlab/internal/errors"
	"github.com/searchlab-dev/searchlab/internal/rank"
)

// denseIndex is an HNSW graph over unit-normalized embeddings, keyed by an
// internal counter so point IDs can be re-upserted without touching graph
// nodes. Replaced nodes are lazily orphaned rather than deleted; coder/hnsw
// misbehaves when the last node is removed.
type denseIndex struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	dims    int
	idMap   map[uint64]uint64 // point ID -> graph key
	keyMap  map[uint64]uint64 // graph key -> point ID
	nextKey uint64
}

type denseHit struct {
	ID    uint64
	Score float64
}

// denseMetadata stores key mappings for persistence.
type denseMetadata struct {
	Dims    int
	IDMap   map[uint64]uint64
	NextKey uint64
}

func newDenseIndex(dims, m, efSearch int) *denseIndex {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = m
	graph.EfSearch = efSearch
	graph.Ml = 0.25

	return &denseIndex{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[uint64]uint64),
		keyMap: make(map[uint64]uint64),
	}
}

// add inserts a vector under the point ID, replacing any previous vector.
func (d *denseIndex) add(id uint64, vector []float32) error {
	if len(vector) != d.dims {
		return errors.Newf(errors.ErrCodeDimensionMismatch,
			"point %d: expected %d dimensions, got %d", id, d.dims, len(vector))
	}
	normed, err := rank.Normalize(vector)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if oldKey, exists := d.idMap[id]; exists {
		delete(d.keyMap, oldKey)
	}

	key := d.nextKey
	d.nextKey++
	d.graph.Add(hnsw.MakeNode(key, normed))
	d.idMap[id] = key
	d.keyMap[key] = id
	return nil
}

// search returns up to k point IDs by descending cosine similarity.
func (d *denseIndex) search(query []float32, k int) ([]denseHit, error) {
	if len(query) != d.dims {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"query: expected %d dimensions, got %d", d.dims, len(query))
	}
	normed, err := rank.Normalize(query)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.graph.Len() == 0 {
		return []denseHit{}, nil
	}

	nodes := d.graph.Search(normed, k)
	hits := make([]denseHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := d.keyMap[node.Key]
		if !ok {
			// Orphaned by a re-upsert.
			continue
		}
		// CosineDistance is 1 - similarity over unit vectors.
		score := 1.0 - float64(d.graph.Distance(normed, node.Value))
		hits = append(hits, denseHit{ID: id, Score: score})
	}
	return hits, nil
}

func (d *denseIndex) count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.idMap)
}

// save persists the graph and key mappings with a temp-file rename.
func (d *denseIndex) save(path string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.StoreError("create index directory", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return errors.StoreError("create dense index file", err)
	}
	if err := d.graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return errors.StoreError("export dense graph", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.StoreError("close dense index file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.StoreError("rename dense index file", err)
	}

	return d.saveMetadata(path + ".meta")
}

func (d *denseIndex) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return errors.StoreError("create dense metadata file", err)
	}

	meta := denseMetadata{Dims: d.dims, IDMap: d.idMap, NextKey: d.nextKey}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return errors.StoreError("encode dense metadata", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.StoreError("close dense metadata file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.StoreError("rename dense metadata file", err)
	}
	return nil
}

// load restores a previously saved graph. Missing files are not an error;
// the index simply starts empty.
func (d *denseIndex) load(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	metaFile, err := os.Open(path + ".meta")
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.StoreError("open dense metadata file", err)
	}
	defer metaFile.Close()

	var meta denseMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return errors.New(errors.ErrCodeCorruptIndex, "decode dense metadata", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.StoreError("open dense index file", err)
	}
	defer file.Close()

	// Import requires an io.ByteReader.
	if err := d.graph.Import(bufio.NewReader(file)); err != nil {
		return errors.New(errors.ErrCodeCorruptIndex, "import dense graph", err)
	}

	d.dims = meta.Dims
	d.idMap = meta.IDMap
	d.nextKey = meta.NextKey
	d.keyMap = make(map[uint64]uint64, len(meta.IDMap))
	for id, key := range meta.IDMap {
		d.keyMap[key] = id
	}
	return nil
}

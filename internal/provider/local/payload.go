package local

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/searchlab-dev/searchlab/internal/errors"
)

const payloadSchema = `
CREATE TABLE IF NOT EXISTS points (
	id      INTEGER PRIMARY KEY,
	payload TEXT NOT NULL,
	dense   BLOB NOT NULL
);`

// payloadStore persists payloads and original (unnormalized) dense vectors
// in SQLite, with an LRU cache in front of payload reads.
type payloadStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	cache  *lru.Cache[uint64, map[string]string]
	closed bool
}

// newPayloadStore opens or creates the database at path. An empty path
// creates an in-memory database.
func newPayloadStore(path string, cacheSize int) (*payloadStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.StoreError("create payload directory", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.StoreError("open payload database", err)
	}

	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA with modernc.org/sqlite, DSN params are
	// ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.StoreError("set pragma", err)
		}
	}

	if _, err := db.Exec(payloadSchema); err != nil {
		_ = db.Close()
		return nil, errors.StoreError("create points table", err)
	}

	cache, err := lru.New[uint64, map[string]string](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, errors.InternalError("create payload cache", err)
	}

	return &payloadStore{db: db, cache: cache}, nil
}

type storedPoint struct {
	id      uint64
	payload map[string]string
	dense   []float32
}

// upsert writes points in one transaction, replacing existing rows.
func (s *payloadStore) upsert(ctx context.Context, points []storedPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Newf(errors.ErrCodeStoreClosed, "payload store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.StoreError("begin payload transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO points (id, payload, dense) VALUES (?, ?, ?)")
	if err != nil {
		return errors.StoreError("prepare payload upsert", err)
	}
	defer stmt.Close()

	for _, p := range points {
		payloadJSON, err := json.Marshal(p.payload)
		if err != nil {
			return errors.InternalError("marshal payload", err)
		}
		if _, err := stmt.ExecContext(ctx, int64(p.id), string(payloadJSON), encodeVector(p.dense)); err != nil {
			return errors.StoreError("upsert point", err)
		}
		s.cache.Remove(p.id)
	}

	if err := tx.Commit(); err != nil {
		return errors.StoreError("commit payload transaction", err)
	}
	return nil
}

// payloads returns payloads for the given IDs. Missing IDs are omitted.
func (s *payloadStore) payloads(ctx context.Context, ids []uint64) (map[uint64]map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.Newf(errors.ErrCodeStoreClosed, "payload store is closed")
	}

	out := make(map[uint64]map[string]string, len(ids))
	var missing []uint64
	for _, id := range ids {
		if payload, ok := s.cache.Get(id); ok {
			out[id] = payload
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, payload FROM points WHERE id IN ("+placeholders(len(missing))+")",
		idArgs(missing)...)
	if err != nil {
		return nil, errors.StoreError("query payloads", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var payloadJSON string
		if err := rows.Scan(&id, &payloadJSON); err != nil {
			return nil, errors.StoreError("scan payload row", err)
		}
		var payload map[string]string
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, errors.New(errors.ErrCodeCorruptIndex, "decode payload", err)
		}
		out[uint64(id)] = payload
		s.cache.Add(uint64(id), payload)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError("iterate payload rows", err)
	}
	return out, nil
}

// denseVectors returns stored dense vectors for the given IDs. Missing IDs
// are omitted.
func (s *payloadStore) denseVectors(ctx context.Context, ids []uint64) (map[uint64][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.Newf(errors.ErrCodeStoreClosed, "payload store is closed")
	}
	if len(ids) == 0 {
		return map[uint64][]float32{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, dense FROM points WHERE id IN ("+placeholders(len(ids))+")",
		idArgs(ids)...)
	if err != nil {
		return nil, errors.StoreError("query dense vectors", err)
	}
	defer rows.Close()

	out := make(map[uint64][]float32, len(ids))
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, errors.StoreError("scan dense row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		out[uint64(id)] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreError("iterate dense rows", err)
	}
	return out, nil
}

// allDense returns every stored ID and dense vector, ordered by ID.
func (s *payloadStore) allDense(ctx context.Context) ([]uint64, [][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, nil, errors.Newf(errors.ErrCodeStoreClosed, "payload store is closed")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, dense FROM points ORDER BY id")
	if err != nil {
		return nil, nil, errors.StoreError("query all dense vectors", err)
	}
	defer rows.Close()

	var ids []uint64
	var vectors [][]float32
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, errors.StoreError("scan dense row", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, uint64(id))
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.StoreError("iterate dense rows", err)
	}
	return ids, vectors, nil
}

func (s *payloadStore) count(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, errors.Newf(errors.ErrCodeStoreClosed, "payload store is closed")
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM points").Scan(&n); err != nil {
		return 0, errors.StoreError("count points", err)
	}
	return uint64(n), nil
}

func (s *payloadStore) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cache.Purge()
	if err := s.db.Close(); err != nil {
		return errors.StoreError("close payload database", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}

// encodeVector packs float32 values little-endian.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, errors.Newf(errors.ErrCodeCorruptIndex, "dense blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

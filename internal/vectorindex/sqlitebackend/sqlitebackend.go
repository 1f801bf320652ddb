// Package sqlitebackend implements vectorindex.Backend on top of
// modernc.org/sqlite, the pure-Go SQLite driver. Embeddings are stored as
// little-endian float32 blobs and scored by a brute-force scan; there is no
// ANN index, so this backend trades query speed for having zero cgo
// dependency, appropriate for the default "sqlite" backend kind.
package sqlitebackend

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"gik/internal/vectorindex"
)

// Backend implements vectorindex.Backend using a plain SQLite table and an
// in-process cosine/dot/L2 scan over every row.
type Backend struct {
	db     *sql.DB
	metric vectorindex.Metric
	dim    int
	path   string
}

// New returns an unopened backend; call Create or Open before use.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Kind() string { return "sqlite" }

func dbPath(dir string) string {
	return filepath.Join(dir, "vectors.sqlite")
}

func (b *Backend) open(cfg vectorindex.Config) error {
	db, err := sql.Open("sqlite", dbPath(cfg.Path))
	if err != nil {
		return fmt.Errorf("opening sqlite vector database: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			id INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL,
			payload BLOB
		)
	`); err != nil {
		db.Close()
		return fmt.Errorf("creating vectors table: %w", err)
	}
	b.db = db
	b.metric = cfg.Metric
	b.dim = cfg.Dimension
	b.path = cfg.Path
	return nil
}

func (b *Backend) Create(cfg vectorindex.Config) error { return b.open(cfg) }
func (b *Backend) Open(cfg vectorindex.Config) error    { return b.open(cfg) }

func (b *Backend) Exists() bool {
	_, err := os.Stat(dbPath(b.path))
	return err == nil
}

func (b *Backend) Upsert(records []vectorindex.Record) (int, error) {
	tx, err := b.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		blob := serializeFloat32(r.Embedding)
		if _, err := tx.Exec(
			`INSERT INTO vectors (id, embedding, payload) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET embedding = excluded.embedding, payload = excluded.payload`,
			r.ID, blob, []byte(r.Payload),
		); err != nil {
			return 0, fmt.Errorf("upserting record %d: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing upsert: %w", err)
	}
	return len(records), nil
}

func (b *Backend) Query(embedding []float32, topK int) ([]vectorindex.ScoredRecord, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := b.db.Query(`SELECT id, embedding, payload FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("scanning vectors: %w", err)
	}
	defer rows.Close()

	var results []vectorindex.ScoredRecord
	for rows.Next() {
		var id uint64
		var blob, payload []byte
		if err := rows.Scan(&id, &blob, &payload); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		vec := deserializeFloat32(blob)
		score := score(b.metric, embedding, vec)
		results = append(results, vectorindex.ScoredRecord{ID: id, Score: score, Payload: payload})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (b *Backend) Delete(ids []uint64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := b.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, id := range ids {
		res, err := tx.Exec(`DELETE FROM vectors WHERE id = ?`, id)
		if err != nil {
			return n, fmt.Errorf("deleting record %d: %w", id, err)
		}
		affected, _ := res.RowsAffected()
		n += int(affected)
	}
	if err := tx.Commit(); err != nil {
		return n, fmt.Errorf("committing delete: %w", err)
	}
	return n, nil
}

func (b *Backend) Count() (int, error) {
	var n int
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func score(metric vectorindex.Metric, a, c []float32) float64 {
	switch metric {
	case vectorindex.MetricDot:
		return dot(a, c)
	case vectorindex.MetricL2:
		return -l2(a, c)
	default:
		return cosine(a, c)
	}
}

func dot(a, c []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(c[i])
	}
	return sum
}

func cosine(a, c []float32) float64 {
	d := dot(a, c)
	na := math.Sqrt(dot(a, a))
	nc := math.Sqrt(dot(c, c))
	if na == 0 || nc == 0 {
		return 0
	}
	return d / (na * nc)
}

func l2(a, c []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(c[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

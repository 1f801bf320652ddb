// Package sqlitevecbackend implements vectorindex.Backend using the
// sqlite-vec extension's vec0 virtual table for approximate nearest-
// neighbor search. It requires cgo (via mattn/go-sqlite3) and is selected
// by setting backends.vector.kind to "sqlite-vec"; bases opened with this
// backend cannot be read by the pure-Go sqlitebackend or vice versa.
package sqlitevecbackend

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"gik/internal/vectorindex"
)

// Backend implements vectorindex.Backend on top of a vec0 virtual table.
// vec0 does not support UPDATE, so upserts of an existing id are done as
// DELETE-then-INSERT within a transaction.
type Backend struct {
	db   *sql.DB
	dim  int
	path string
}

func New() *Backend { return &Backend{} }

func (b *Backend) Kind() string { return "sqlite-vec" }

func dbPath(dir string) string {
	return filepath.Join(dir, "vectors_vec.sqlite")
}

func (b *Backend) open(cfg vectorindex.Config) error {
	sqlite_vec.Auto()

	db, err := sql.Open("sqlite3", dbPath(cfg.Path))
	if err != nil {
		return fmt.Errorf("opening sqlite-vec database: %w", err)
	}

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		db.Close()
		return fmt.Errorf("sqlite-vec extension not available: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_records (
			rowid INTEGER PRIMARY KEY,
			payload BLOB
		)
	`); err != nil {
		db.Close()
		return fmt.Errorf("creating records table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d])`,
		cfg.Dimension,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return fmt.Errorf("creating vec0 table: %w", err)
	}

	b.db = db
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

		if _, err := tx.Exec(`DELETE FROM vec_embeddings WHERE rowid = ?`, r.ID); err != nil {
			return 0, fmt.Errorf("clearing old embedding for record %d: %w", r.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`, r.ID, blob); err != nil {
			return 0, fmt.Errorf("inserting embedding for record %d: %w", r.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO vec_records (rowid, payload) VALUES (?, ?)
			 ON CONFLICT(rowid) DO UPDATE SET payload = excluded.payload`,
			r.ID, []byte(r.Payload),
		); err != nil {
			return 0, fmt.Errorf("upserting record %d payload: %w", r.ID, err)
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

	blob := serializeFloat32(embedding)
	rows, err := b.db.Query(`
		SELECT r.rowid, r.payload, ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_records r ON r.rowid = ve.rowid
		WHERE ve.embedding MATCH ? AND ve.k = ?
		ORDER BY ve.distance
	`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vec0 table: %w", err)
	}
	defer rows.Close()

	var results []vectorindex.ScoredRecord
	for rows.Next() {
		var id uint64
		var payload []byte
		var distance float64
		if err := rows.Scan(&id, &payload, &distance); err != nil {
			return nil, fmt.Errorf("scanning query row: %w", err)
		}
		results = append(results, vectorindex.ScoredRecord{
			ID:      id,
			Score:   1.0 / (1.0 + distance),
			Payload: payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
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
		res, err := tx.Exec(`DELETE FROM vec_embeddings WHERE rowid = ?`, id)
		if err != nil {
			return n, fmt.Errorf("deleting embedding %d: %w", id, err)
		}
		if _, err := tx.Exec(`DELETE FROM vec_records WHERE rowid = ?`, id); err != nil {
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
	if err := b.db.QueryRow(`SELECT COUNT(*) FROM vec_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

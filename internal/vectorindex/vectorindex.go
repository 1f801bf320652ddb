// Package vectorindex defines the backend-agnostic vector index capability
// used by commit and retrieval: a fixed-dimension record store keyed by
// integer id, queryable by nearest neighbor. Concrete backends live in
// sqlitebackend and sqlitevecbackend; Adapter owns the on-disk meta.json
// bookkeeping that every backend shares.
package vectorindex

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

// Metric identifies the distance function a backend scores with.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
	MetricL2     Metric = "l2"
)

// Record is one vector plus an opaque caller-defined payload, upserted by id.
// ID is shared with the BM25 index's docID so the retrieval pipeline's
// fusion step can align dense and sparse ranks for the same chunk.
type Record struct {
	ID        uint64
	Embedding []float32
	Payload   json.RawMessage
}

// ScoredRecord is one nearest-neighbor hit.
type ScoredRecord struct {
	ID      uint64
	Score   float64
	Payload json.RawMessage
}

// Config parameterizes a fresh backend at Create time. Dimension and Metric
// are fixed for the lifetime of the index; a base that wants to change
// either must be reindexed (§4.5), which builds a fresh index, never
// converted in place.
type Config struct {
	Dimension int
	Metric    Metric
	Path      string
}

// Backend is the capability every vector storage engine implements. A
// backend never resolves backend-mismatch or dimension-mismatch on its own;
// that enforcement belongs to Adapter so every backend gets it uniformly.
type Backend interface {
	Create(cfg Config) error
	Open(cfg Config) error
	Upsert(records []Record) (int, error)
	Query(embedding []float32, topK int) ([]ScoredRecord, error)
	Delete(ids []uint64) (int, error)
	Count() (int, error)
	Exists() bool
	Close() error
	Kind() string
}

// Meta is the on-disk record of what a base's vector index is: which
// backend created it, the embedding provider/model it was built from, and
// the fixed dimension every record must match. Persisted as meta.json next
// to the backend's own data file per §6.
type Meta struct {
	Backend            string    `json:"backend"`
	Metric             Metric    `json:"metric"`
	Dimension          int       `json:"dimension"`
	Base               string    `json:"base"`
	EmbeddingProvider  string    `json:"embeddingProvider"`
	EmbeddingModelID   string    `json:"embeddingModelId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func metaPath(dir string) string {
	return filepath.Join(dir, "meta.json")
}

func loadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(metaPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, gikerrors.Wrap(gikerrors.IoFailed, err, "reading vector index meta.json")
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing vector index meta.json")
	}
	return &m, nil
}

func saveMeta(dir string, m *Meta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding vector index meta.json")
	}
	if err := fsutil.WriteFileAtomic(metaPath(dir), data, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing vector index meta.json")
	}
	return nil
}

// Adapter wraps a Backend with the bookkeeping every base's vector index
// needs regardless of which backend stores it: meta.json creation/loading,
// dimension enforcement on every upsert, and a clean refusal (rather than
// silent corruption or auto-conversion) when a base's existing meta.json
// names a different backend or embedding model than the caller expects.
// This is the "pluggable backends without versioned data" design: an index
// is pinned to one backend/model/dimension for its lifetime; switching
// means reindexing the base, which replaces its index with a new one.
type Adapter struct {
	dir     string
	backend Backend
	meta    *Meta
}

// Open opens (or, if absent, creates) the vector index for a base at dir
// using backend. want describes what the caller expects this base's index
// to be; if an existing meta.json disagrees on backend, dimension, or
// embedding model, Open refuses rather than reconciling.
func Open(dir string, backend Backend, want Meta) (*Adapter, error) {
	existing, err := loadMeta(dir)
	if err != nil {
		return nil, err
	}

	cfg := Config{Dimension: want.Dimension, Metric: want.Metric, Path: dir}

	if existing == nil {
		if err := backend.Create(cfg); err != nil {
			return nil, gikerrors.Wrap(gikerrors.BackendFailed, err, "creating vector index")
		}
		now := want.CreatedAt
		meta := want
		meta.Backend = backend.Kind()
		meta.CreatedAt = now
		meta.UpdatedAt = now
		if err := saveMeta(dir, &meta); err != nil {
			return nil, err
		}
		return &Adapter{dir: dir, backend: backend, meta: &meta}, nil
	}

	if existing.Backend != backend.Kind() {
		return nil, gikerrors.Newf(gikerrors.BaseEmbeddingIncompatible,
			"base %q was indexed with backend %q, not %q", want.Base, existing.Backend, backend.Kind()).
			WithNextAction("reindex the base under the new backend")
	}
	if existing.Dimension != want.Dimension {
		return nil, gikerrors.Newf(gikerrors.EmbeddingDimensionMismatch,
			"base %q vector index has dimension %d, embedding provider produces %d", want.Base, existing.Dimension, want.Dimension).
			WithNextAction("reindex the base")
	}
	if existing.EmbeddingModelID != "" && existing.EmbeddingModelID != want.EmbeddingModelID {
		return nil, gikerrors.Newf(gikerrors.EmbeddingModelMismatch,
			"base %q was embedded with model %q, current model is %q", want.Base, existing.EmbeddingModelID, want.EmbeddingModelID).
			WithNextAction("reindex the base")
	}

	if err := backend.Open(Config{Dimension: existing.Dimension, Metric: existing.Metric, Path: dir}); err != nil {
		return nil, gikerrors.Wrap(gikerrors.BackendFailed, err, "opening vector index")
	}
	return &Adapter{dir: dir, backend: backend, meta: existing}, nil
}

// Upsert enforces that every record's embedding has the index's fixed
// dimension before delegating to the backend.
func (a *Adapter) Upsert(records []Record, now time.Time) (int, error) {
	for _, r := range records {
		if len(r.Embedding) != a.meta.Dimension {
			return 0, gikerrors.Newf(gikerrors.EmbeddingDimensionMismatch,
				"record %d has embedding dimension %d, index expects %d", r.ID, len(r.Embedding), a.meta.Dimension)
		}
	}
	n, err := a.backend.Upsert(records)
	if err != nil {
		return n, gikerrors.Wrap(gikerrors.BackendFailed, err, "upserting vector records")
	}
	a.meta.UpdatedAt = now
	if err := saveMeta(a.dir, a.meta); err != nil {
		return n, err
	}
	return n, nil
}

// Query enforces the query embedding's dimension and delegates.
func (a *Adapter) Query(embedding []float32, topK int) ([]ScoredRecord, error) {
	if len(embedding) != a.meta.Dimension {
		return nil, gikerrors.Newf(gikerrors.EmbeddingDimensionMismatch,
			"query embedding dimension %d does not match index dimension %d", len(embedding), a.meta.Dimension)
	}
	results, err := a.backend.Query(embedding, topK)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.BackendFailed, err, "querying vector index")
	}
	return results, nil
}

// Delete removes records by id.
func (a *Adapter) Delete(ids []uint64) (int, error) {
	n, err := a.backend.Delete(ids)
	if err != nil {
		return n, gikerrors.Wrap(gikerrors.BackendFailed, err, "deleting vector records")
	}
	return n, nil
}

// Count returns the number of records currently stored.
func (a *Adapter) Count() (int, error) {
	n, err := a.backend.Count()
	if err != nil {
		return 0, gikerrors.Wrap(gikerrors.BackendFailed, err, "counting vector records")
	}
	return n, nil
}

// Meta returns the index's persisted metadata.
func (a *Adapter) Meta() Meta {
	return *a.meta
}

// Close releases backend resources.
func (a *Adapter) Close() error {
	return a.backend.Close()
}

package vectorindex

import (
	"encoding/json"
	"testing"
	"time"

	gikerrors "gik/internal/errors"
)

// fakeBackend is a minimal in-memory Backend used to test Adapter's
// bookkeeping in isolation from any real storage engine.
type fakeBackend struct {
	kind    string
	created bool
	records map[uint64]Record
}

func newFakeBackend(kind string) *fakeBackend {
	return &fakeBackend{kind: kind, records: make(map[uint64]Record)}
}

func (f *fakeBackend) Create(cfg Config) error { f.created = true; return nil }
func (f *fakeBackend) Open(cfg Config) error    { return nil }
func (f *fakeBackend) Upsert(records []Record) (int, error) {
	for _, r := range records {
		f.records[r.ID] = r
	}
	return len(records), nil
}
func (f *fakeBackend) Query(embedding []float32, topK int) ([]ScoredRecord, error) {
	var out []ScoredRecord
	for id, r := range f.records {
		out = append(out, ScoredRecord{ID: id, Score: float64(len(r.Embedding))})
	}
	return out, nil
}
func (f *fakeBackend) Delete(ids []uint64) (int, error) {
	n := 0
	for _, id := range ids {
		if _, ok := f.records[id]; ok {
			delete(f.records, id)
			n++
		}
	}
	return n, nil
}
func (f *fakeBackend) Count() (int, error) { return len(f.records), nil }
func (f *fakeBackend) Exists() bool        { return f.created }
func (f *fakeBackend) Close() error        { return nil }
func (f *fakeBackend) Kind() string        { return f.kind }

func TestOpenCreatesMetaOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	backend := newFakeBackend("sqlite")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	adapter, err := Open(dir, backend, Meta{
		Dimension: 4, Metric: MetricCosine, Base: "code", EmbeddingModelID: "local-hash-v1", CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !backend.created {
		t.Fatalf("expected backend.Create to be called")
	}
	if adapter.Meta().Backend != "sqlite" {
		t.Fatalf("expected meta.Backend=sqlite, got %q", adapter.Meta().Backend)
	}
}

func TestOpenRefusesBackendMismatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 4, Base: "code", CreatedAt: now}); err != nil {
		t.Fatalf("first open: %v", err)
	}

	_, err := Open(dir, newFakeBackend("sqlite-vec"), Meta{Dimension: 4, Base: "code", CreatedAt: now})
	if gikerrors.CodeOf(err) != gikerrors.BaseEmbeddingIncompatible {
		t.Fatalf("expected BaseEmbeddingIncompatible, got %v", err)
	}
}

func TestOpenRefusesDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 4, Base: "code", CreatedAt: now}); err != nil {
		t.Fatalf("first open: %v", err)
	}

	_, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 8, Base: "code", CreatedAt: now})
	if gikerrors.CodeOf(err) != gikerrors.EmbeddingDimensionMismatch {
		t.Fatalf("expected EmbeddingDimensionMismatch, got %v", err)
	}
}

func TestOpenRefusesEmbeddingModelMismatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 4, Base: "code", EmbeddingModelID: "v1", CreatedAt: now}); err != nil {
		t.Fatalf("first open: %v", err)
	}

	_, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 4, Base: "code", EmbeddingModelID: "v2", CreatedAt: now})
	if gikerrors.CodeOf(err) != gikerrors.EmbeddingModelMismatch {
		t.Fatalf("expected EmbeddingModelMismatch, got %v", err)
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 4, Base: "code", CreatedAt: now})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_, err = adapter.Upsert([]Record{{ID: 1, Embedding: []float32{1, 2}}}, now)
	if gikerrors.CodeOf(err) != gikerrors.EmbeddingDimensionMismatch {
		t.Fatalf("expected EmbeddingDimensionMismatch, got %v", err)
	}
}

func TestUpsertAndQueryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter, err := Open(dir, newFakeBackend("sqlite"), Meta{Dimension: 3, Base: "code", CreatedAt: now})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"chunk": "a"})
	n, err := adapter.Upsert([]Record{{ID: 1, Embedding: []float32{1, 2, 3}, Payload: payload}}, now)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 upserted, got %d", n)
	}

	results, err := adapter.Query([]float32{1, 2, 3}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

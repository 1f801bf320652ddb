package sqlitebackend

import (
	"testing"

	"gik/internal/vectorindex"
)

func TestCreateUpsertQueryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := New()
	cfg := vectorindex.Config{Dimension: 3, Metric: vectorindex.MetricCosine, Path: dir}
	if err := b.Create(cfg); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer b.Close()

	records := []vectorindex.Record{
		{ID: 1, Embedding: []float32{1, 0, 0}},
		{ID: 2, Embedding: []float32{0, 1, 0}},
		{ID: 3, Embedding: []float32{0.9, 0.1, 0}},
	}
	n, err := b.Upsert(records)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 upserted, got %d", n)
	}

	results, err := b.Query([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 1 {
		t.Fatalf("expected closest match id=1, got %d", results[0].ID)
	}
}

func TestUpsertOverwritesExistingID(t *testing.T) {
	dir := t.TempDir()
	b := New()
	if err := b.Create(vectorindex.Config{Dimension: 2, Path: dir}); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer b.Close()

	if _, err := b.Upsert([]vectorindex.Record{{ID: 1, Embedding: []float32{1, 1}}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if _, err := b.Upsert([]vectorindex.Record{{ID: 1, Embedding: []float32{2, 2}}}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := b.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count=1 after overwrite, got %d", count)
	}
}

func TestDeleteRemovesRecords(t *testing.T) {
	dir := t.TempDir()
	b := New()
	if err := b.Create(vectorindex.Config{Dimension: 2, Path: dir}); err != nil {
		t.Fatalf("create: %v", err)
	}
	defer b.Close()

	if _, err := b.Upsert([]vectorindex.Record{{ID: 1, Embedding: []float32{1, 1}}, {ID: 2, Embedding: []float32{2, 2}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	n, err := b.Delete([]uint64{1})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}

	count, err := b.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count=1 after delete, got %d", count)
	}
}

package kg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUpsertNodesAppendsAndFolds(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.UpsertNodes([]Node{{ID: "file:a.go", Kind: NodeFile, Label: "a.go"}}, now); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	later := now.Add(time.Hour)
	if err := s.UpsertNodes([]Node{{ID: "file:a.go", Kind: NodeFile, Label: "a.go", Props: map[string]any{"x": 1}}}, later); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	nodes, err := s.Nodes()
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected one folded node, got %d", len(nodes))
	}
	if !nodes[0].CreatedAt.Equal(now) {
		t.Fatalf("expected CreatedAt preserved across updates, got %v", nodes[0].CreatedAt)
	}
	if !nodes[0].UpdatedAt.Equal(later) {
		t.Fatalf("expected UpdatedAt bumped, got %v", nodes[0].UpdatedAt)
	}
}

func TestNodesEmptyWhenFileAbsent(t *testing.T) {
	s := Open(t.TempDir())
	nodes, err := s.Nodes()
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if len(nodes) != 0 {
		t.Fatalf("expected empty, got %v", nodes)
	}
}

func TestRebuildReplacesGraph(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.UpsertNodes([]Node{{ID: "file:old.go", Kind: NodeFile}}, now); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	if err := s.Rebuild(
		[]Node{{ID: "file:new.go", Kind: NodeFile}},
		[]Edge{{ID: "e1", From: "file:new.go", To: "sym:x", Kind: EdgeDefines}},
		now,
	); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	nodes, err := s.Nodes()
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "file:new.go" {
		t.Fatalf("expected only the rebuilt node, got %+v", nodes)
	}

	statsData, err := os.ReadFile(filepath.Join(dir, "stats.json"))
	if err != nil {
		t.Fatalf("reading stats.json: %v", err)
	}
	if len(statsData) == 0 {
		t.Fatalf("expected non-empty stats.json")
	}
}

func TestNodesByKindFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.UpsertNodes([]Node{
		{ID: "file:b.go", Kind: NodeFile},
		{ID: "file:a.go", Kind: NodeFile},
		{ID: "sym:go:a.go:function:Foo", Kind: NodeSymbol},
	}, now); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	files, err := s.NodesByKind(NodeFile)
	if err != nil {
		t.Fatalf("nodesByKind: %v", err)
	}
	if len(files) != 2 || files[0].ID != "file:a.go" {
		t.Fatalf("expected sorted file nodes, got %+v", files)
	}
}

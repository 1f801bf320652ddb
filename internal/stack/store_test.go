package stack

import (
	"testing"
	"time"
)

func TestSaveAndReadBackRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := Open(dir)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	result := Result{
		Files:        []FileEntry{{Path: "main.go", Kind: KindFile, Languages: []string{"go"}}},
		Dependencies: []DependencyEntry{{Manager: "go", Name: "github.com/google/uuid", Version: "v1.6.0", Scope: "runtime", ManifestPath: "go.mod"}},
		Tech:         []TechEntry{{Kind: "language", Name: "go", Source: "go.mod", Confidence: 1.0}},
		Stats:        Stats{TotalFiles: 1, Languages: map[string]int{"go": 1}, Managers: []string{"go"}, GeneratedAt: now},
	}

	if err := s.Save(result); err != nil {
		t.Fatalf("save: %v", err)
	}

	files, err := s.Files()
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 || files[0].Path != "main.go" {
		t.Fatalf("unexpected files: %+v", files)
	}

	deps, err := s.Dependencies()
	if err != nil {
		t.Fatalf("dependencies: %v", err)
	}
	if len(deps) != 1 || deps[0].Name != "github.com/google/uuid" {
		t.Fatalf("unexpected deps: %+v", deps)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 1 || !stats.GeneratedAt.Equal(now) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStatsMissingFileReturnsZeroValue(t *testing.T) {
	s := Open(t.TempDir())
	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 0 {
		t.Fatalf("expected zero-value stats, got %+v", stats)
	}
}

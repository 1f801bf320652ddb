package engine

import (
	"os"
	"path/filepath"
	"testing"

	"gik/internal/engineresult"
	gikerrors "gik/internal/errors"
	"gik/internal/memory"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	e, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return e
}

func TestInitIsIdempotent(t *testing.T) {
	e := openTestEngine(t)

	result, err := e.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if result.RevisionID == "" {
		t.Fatalf("expected a revision id")
	}

	again, err := e.Init()
	if !gikerrors.Is(err, gikerrors.AlreadyInitialized) {
		t.Fatalf("expected AlreadyInitialized, got %v", err)
	}
	if !again.AlreadyInitialized {
		t.Fatalf("expected AlreadyInitialized=true in result")
	}
}

func TestAddStagesTargetsAndDedupes(t *testing.T) {
	e := openTestEngine(t)
	if _, err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	src := filepath.Join(e.WorkspaceRoot, "hello.go")
	if err := os.WriteFile(src, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	result, err := e.Add([]string{src}, AddOptions{Base: "code"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(result.Added) != 1 || result.SkippedCount != 0 {
		t.Fatalf("expected one added source, got %+v", result)
	}

	again, err := e.Add([]string{src}, AddOptions{Base: "code"})
	if err != nil {
		t.Fatalf("Add (dup): %v", err)
	}
	if len(again.Added) != 0 || again.SkippedCount != 1 {
		t.Fatalf("expected the duplicate to be skipped, got %+v", again)
	}
}

func TestAddMemoryShortCircuitsStaging(t *testing.T) {
	e := openTestEngine(t)
	if _, err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	result, err := e.Add(nil, AddOptions{
		MemoryText:   "remember this",
		MemoryScope:  memory.ScopeProject,
		MemorySource: memory.SourceManualNote,
		MemoryTitle:  "note",
	})
	if err != nil {
		t.Fatalf("Add (memory): %v", err)
	}
	if result.MemoryIngest == nil || result.MemoryIngest.IngestedCount != 1 {
		t.Fatalf("expected one ingested entry, got %+v", result.MemoryIngest)
	}
	if result.MemoryRevID == "" {
		t.Fatalf("expected a memory revision id")
	}

	metrics, err := e.MemoryMetrics()
	if err != nil {
		t.Fatalf("MemoryMetrics: %v", err)
	}
	if metrics.Metrics.EntryCount != 1 {
		t.Fatalf("expected 1 live entry, got %d", metrics.Metrics.EntryCount)
	}
}

func TestCommitAndStatusReportHealthyBase(t *testing.T) {
	e := openTestEngine(t)
	if _, err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	src := filepath.Join(e.WorkspaceRoot, "hello.go")
	if err := os.WriteFile(src, []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatalf("seed source: %v", err)
	}
	if _, err := e.Add([]string{src}, AddOptions{Base: "code"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	commitResult, err := e.Commit("feat: add hello")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if commitResult.RevisionID == "" {
		t.Fatalf("expected a commit revision id")
	}

	status, err := e.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status.Bases) != 1 || status.Bases[0].Base != "code" {
		t.Fatalf("expected one code base, got %+v", status.Bases)
	}
	if status.Bases[0].Health != engineresult.HealthHealthy {
		t.Fatalf("expected the code base to be healthy, got %s", status.Bases[0].Health)
	}
}

func TestMemoryPruneRemovesNothingUnderGenerousBound(t *testing.T) {
	e := openTestEngine(t)
	if _, err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := e.Add(nil, AddOptions{MemoryText: "x", MemoryScope: memory.ScopeProject, MemorySource: memory.SourceManualNote}); err != nil {
		t.Fatalf("Add (memory): %v", err)
	}

	maxEntries := 10
	result, err := e.MemoryPrune(&memory.PruningPolicy{Mode: memory.PruneModeDelete, MaxEntries: &maxEntries})
	if err != nil {
		t.Fatalf("MemoryPrune: %v", err)
	}
	if result.Result.Count != 0 {
		t.Fatalf("expected nothing pruned under a bound well above entry count, got %+v", result.Result)
	}
	if result.RevisionID != "" {
		t.Fatalf("expected no revision appended when nothing was pruned")
	}
}

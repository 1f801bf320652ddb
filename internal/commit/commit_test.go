package commit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gik/internal/basestore"
	"gik/internal/config"
	gikerrors "gik/internal/errors"
	"gik/internal/embedding"
	"gik/internal/ignore"
	"gik/internal/staging"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
	"gik/internal/vectorindex/sqlitebackend"
)

func fixedNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func newTestDeps(t *testing.T, workspaceRoot, branchDir string) Dependencies {
	t.Helper()
	return Dependencies{
		WorkspaceRoot: workspaceRoot,
		Branch:        "main",
		BranchDir:     branchDir,
		Timeline:      timeline.Open(branchDir),
		Staging:       staging.Open(branchDir),
		Config:        config.DefaultConfig(),
		Embedder:      embedding.NewHashingProvider("local-hash", "local-hash-v1", 8),
		NewBackend:    func() vectorindex.Backend { return sqlitebackend.New() },
		Ignore:        &ignore.Matcher{},
		Now:           fixedNow,
	}
}

func TestRunCommitsPendingFileIntoBase(t *testing.T) {
	workspaceRoot := t.TempDir()
	branchDir := filepath.Join(workspaceRoot, ".guided", "knowledge", "main")
	if err := os.MkdirAll(branchDir, 0o755); err != nil {
		t.Fatalf("seed branch dir: %v", err)
	}

	srcPath := filepath.Join(workspaceRoot, "hello.go")
	if err := os.WriteFile(srcPath, []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatalf("seed source file: %v", err)
	}

	deps := newTestDeps(t, workspaceRoot, branchDir)
	initRev := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := deps.Timeline.Append(initRev); err != nil {
		t.Fatalf("seed init revision: %v", err)
	}

	if _, _, err := deps.Staging.AddPending("main", srcPath, "code", nil); err != nil {
		t.Fatalf("add pending: %v", err)
	}

	result, err := Run(deps, Options{Message: "first commit"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.RevisionID == "" {
		t.Fatalf("expected a revision id")
	}
	if len(result.Bases) != 1 || result.Bases[0].Base != "code" {
		t.Fatalf("expected one base result for %q, got %+v", "code", result.Bases)
	}
	if result.Bases[0].ChunkCount != 1 {
		t.Fatalf("expected 1 chunk, got %d", result.Bases[0].ChunkCount)
	}

	bstore := basestore.Open(filepath.Join(branchDir, "bases", "code"), "code")
	entries, err := bstore.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "hello.go" {
		t.Fatalf("expected one entry for hello.go, got %+v", entries)
	}

	pending, err := deps.Staging.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected staging drained, got %d still pending", len(pending))
	}
}

func TestRunRejectsEmptyStaging(t *testing.T) {
	workspaceRoot := t.TempDir()
	branchDir := filepath.Join(workspaceRoot, ".guided", "knowledge", "main")
	if err := os.MkdirAll(branchDir, 0o755); err != nil {
		t.Fatalf("seed branch dir: %v", err)
	}
	deps := newTestDeps(t, workspaceRoot, branchDir)

	_, err := Run(deps, Options{})
	if !gikerrors.Is(err, gikerrors.NothingToCommit) {
		t.Fatalf("expected NothingToCommit, got %v", err)
	}
}

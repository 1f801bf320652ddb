package reindex

import (
	"path/filepath"
	"testing"
	"time"

	"gik/internal/basestore"
	gikerrors "gik/internal/errors"
	"gik/internal/embedding"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
	"gik/internal/vectorindex/sqlitebackend"
)

func fixedNow() time.Time {
	return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
}

func seedBase(t *testing.T, branchDir, base string, modelID string, dim int) {
	t.Helper()
	bstore := basestore.Open(filepath.Join(branchDir, "bases", base), base)
	if err := bstore.AppendEntries([]basestore.Entry{
		{ID: "c1", Base: base, Path: "a.go", StartLine: 1, EndLine: 3, Text: "package a\n\nfunc A() {}"},
	}); err != nil {
		t.Fatalf("seed entries: %v", err)
	}
	if err := bstore.SaveModelInfo(basestore.ModelInfo{Provider: "local-hash", ModelID: modelID, Dimension: dim, CreatedAt: fixedNow()}); err != nil {
		t.Fatalf("seed model info: %v", err)
	}
}

func TestRunRebuildsUnderNewModel(t *testing.T) {
	branchDir := t.TempDir()
	seedBase(t, branchDir, "code", "local-hash-v1", 8)

	deps := Dependencies{
		WorkspaceRoot: t.TempDir(),
		Branch:        "main",
		BranchDir:     branchDir,
		Base:          "code",
		Timeline:      timeline.Open(branchDir),
		Embedder:      embedding.NewHashingProvider("local-hash", "local-hash-v2", 8),
		NewBackend:    func() vectorindex.Backend { return sqlitebackend.New() },
		Now:           fixedNow,
	}
	initRev := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := deps.Timeline.Append(initRev); err != nil {
		t.Fatalf("seed init: %v", err)
	}

	result, err := Run(deps, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FromModelID != "local-hash-v1" || result.ToModelID != "local-hash-v2" {
		t.Fatalf("unexpected model transition: %+v", result)
	}
	if result.ChunkCount != 1 {
		t.Fatalf("expected 1 chunk, got %d", result.ChunkCount)
	}

	bstore := basestore.Open(filepath.Join(branchDir, "bases", "code"), "code")
	info, err := bstore.ModelInfo()
	if err != nil {
		t.Fatalf("ModelInfo: %v", err)
	}
	if info.ModelID != "local-hash-v2" {
		t.Fatalf("expected stored model to be updated, got %+v", info)
	}
}

func TestRunGuardsAgainstNoOpReindex(t *testing.T) {
	branchDir := t.TempDir()
	seedBase(t, branchDir, "code", "local-hash-v1", 8)

	deps := Dependencies{
		BranchDir:  branchDir,
		Base:       "code",
		Timeline:   timeline.Open(branchDir),
		Embedder:   embedding.NewHashingProvider("local-hash", "local-hash-v1", 8),
		NewBackend: func() vectorindex.Backend { return sqlitebackend.New() },
		Now:        fixedNow,
	}

	_, err := Run(deps, Options{Force: false})
	if !gikerrors.Is(err, gikerrors.NotReindexed) {
		t.Fatalf("expected NotReindexed, got %v", err)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	branchDir := t.TempDir()
	seedBase(t, branchDir, "code", "local-hash-v1", 8)

	deps := Dependencies{
		BranchDir:  branchDir,
		Base:       "code",
		Timeline:   timeline.Open(branchDir),
		Embedder:   embedding.NewHashingProvider("local-hash", "local-hash-v2", 8),
		NewBackend: func() vectorindex.Backend { return sqlitebackend.New() },
		Now:        fixedNow,
	}

	result, err := Run(deps, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DryRun || result.ChunkCount != 1 {
		t.Fatalf("unexpected dry run result: %+v", result)
	}

	bstore := basestore.Open(filepath.Join(branchDir, "bases", "code"), "code")
	info, err := bstore.ModelInfo()
	if err != nil {
		t.Fatalf("ModelInfo: %v", err)
	}
	if info.ModelID != "local-hash-v1" {
		t.Fatalf("expected dry run to leave model info untouched, got %+v", info)
	}
}

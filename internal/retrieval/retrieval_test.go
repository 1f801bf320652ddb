package retrieval

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gik/internal/basestore"
	"gik/internal/bm25"
	"gik/internal/commit"
	"gik/internal/config"
	"gik/internal/embedding"
	"gik/internal/memory"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
	"gik/internal/vectorindex/sqlitebackend"
)

func fixedNow() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }

func openVectorFor(branchDir string, embedder embedding.Provider) VectorOpener {
	return func(base string, want vectorindex.Meta) (*vectorindex.Adapter, error) {
		dir := filepath.Join(branchDir, "bases", base, "index")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		want.Dimension = embedder.Dimensions()
		want.EmbeddingModelID = embedder.ModelID()
		return vectorindex.Open(dir, sqlitebackend.New(), want)
	}
}

func seedCodeBase(t *testing.T, branchDir string, embedder embedding.Provider, now time.Time) {
	t.Helper()
	bstore := basestore.Open(filepath.Join(branchDir, "bases", "code"), "code")
	entries := []basestore.Entry{
		{Base: "code", Path: "auth.go", StartLine: 1, EndLine: 5, Text: "package auth\n\nfunc Login(user string) error { return nil }"},
		{Base: "code", Path: "widgets.go", StartLine: 1, EndLine: 5, Text: "package widgets\n\nfunc Render() string { return \"ok\" }"},
	}
	for i := range entries {
		id, _ := commit.ChunkID(entries[i].Base, entries[i].Path)
		entries[i].ID = id
	}
	if err := bstore.AppendEntries(entries); err != nil {
		t.Fatalf("seed entries: %v", err)
	}
	if err := bstore.SaveModelInfo(basestore.ModelInfo{Provider: "local-hash", ModelID: embedder.ModelID(), Dimension: embedder.Dimensions(), CreatedAt: now}); err != nil {
		t.Fatalf("seed model info: %v", err)
	}

	dir := filepath.Join(branchDir, "bases", "code", "index")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir index: %v", err)
	}
	adapter, err := vectorindex.Open(dir, sqlitebackend.New(), vectorindex.Meta{
		Metric: vectorindex.MetricCosine, Dimension: embedder.Dimensions(), Base: "code",
		EmbeddingProvider: embedder.ModelID(), EmbeddingModelID: embedder.ModelID(), CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("open vector index: %v", err)
	}
	defer adapter.Close()

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	vecs, err := embedder.EmbedBatch(texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	records := make([]vectorindex.Record, len(entries))
	idx := bm25.NewIndex()
	for i, e := range entries {
		_, vecID := commit.ChunkID(e.Base, e.Path)
		records[i] = vectorindex.Record{ID: vecID, Embedding: vecs[i]}
		idx.AddDocument(vecID, e.Text)
	}
	if _, err := adapter.Upsert(records, now); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.Save(filepath.Join(dir, "..", "index", "bm25.bin")); err != nil {
		t.Fatalf("save bm25: %v", err)
	}
}

func newTestDeps(t *testing.T, branchDir string, embedder embedding.Provider) Dependencies {
	t.Helper()
	return Dependencies{
		WorkspaceRoot: t.TempDir(),
		Branch:        "main",
		BranchDir:     branchDir,
		Timeline:      timeline.Open(branchDir),
		Config:        config.DefaultConfig(),
		Embedder:      embedder,
		OpenVector:    openVectorFor(branchDir, embedder),
		Now:           fixedNow,
	}
}

func TestRunReturnsRagChunksForMatchingQuestion(t *testing.T) {
	branchDir := t.TempDir()
	embedder := embedding.NewHashingProvider("local-hash", "local-hash-v1", 8)
	seedCodeBase(t, branchDir, embedder, fixedNow())

	deps := newTestDeps(t, branchDir, embedder)
	initRev := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := deps.Timeline.Append(initRev); err != nil {
		t.Fatalf("seed init: %v", err)
	}

	bundle, err := Run(deps, "how does Login work in auth.go", Options{TopK: 5})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(bundle.RagChunks) == 0 {
		t.Fatalf("expected at least one rag chunk, got none")
	}
	if bundle.RevisionID != initRev.ID {
		t.Fatalf("expected bundle revision to be HEAD, got %q want %q", bundle.RevisionID, initRev.ID)
	}

	askLogPath := filepath.Join(filepath.Dir(branchDir), "asks", "ask.log.jsonl")
	if _, err := os.Stat(askLogPath); err != nil {
		t.Fatalf("expected ask log to be written: %v", err)
	}
}

func TestRunTopKZeroReturnsEmptyWithoutError(t *testing.T) {
	branchDir := t.TempDir()
	embedder := embedding.NewHashingProvider("local-hash", "local-hash-v1", 8)
	seedCodeBase(t, branchDir, embedder, fixedNow())

	deps := newTestDeps(t, branchDir, embedder)
	initRev := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := deps.Timeline.Append(initRev); err != nil {
		t.Fatalf("seed init: %v", err)
	}

	bundle, err := Run(deps, "anything", Options{TopK: 0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(bundle.RagChunks) != 0 {
		t.Fatalf("expected zero rag chunks for top-k=0, got %d", len(bundle.RagChunks))
	}
}

func TestRunRefusesIncompatibleRequestedBase(t *testing.T) {
	branchDir := t.TempDir()
	seedEmbedder := embedding.NewHashingProvider("local-hash", "local-hash-v1", 8)
	seedCodeBase(t, branchDir, seedEmbedder, fixedNow())

	activeEmbedder := embedding.NewHashingProvider("local-hash", "local-hash-v2", 8)
	deps := newTestDeps(t, branchDir, activeEmbedder)
	initRev := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := deps.Timeline.Append(initRev); err != nil {
		t.Fatalf("seed init: %v", err)
	}

	_, err := Run(deps, "anything", Options{Bases: []string{"code"}, TopK: 5})
	if err == nil {
		t.Fatalf("expected an embedding incompatibility error")
	}
}

func TestRunIncludesMemoryEvents(t *testing.T) {
	branchDir := t.TempDir()
	embedder := embedding.NewHashingProvider("local-hash", "local-hash-v1", 8)
	seedCodeBase(t, branchDir, embedder, fixedNow())

	memDir := filepath.Join(branchDir, "bases", "memory")
	mstore := memory.Open(memDir)
	entry := memory.Entry{ID: "m1", Scope: memory.ScopeProject, Source: memory.SourceDecision, Text: "we decided to use sqlite for the default backend", Tags: []string{"decision"}}
	if err := mstore.Append(entry, fixedNow()); err != nil {
		t.Fatalf("seed memory entry: %v", err)
	}

	bstore := basestore.Open(memDir, "memory")
	if err := bstore.SaveModelInfo(basestore.ModelInfo{Provider: "local-hash", ModelID: embedder.ModelID(), Dimension: embedder.Dimensions(), CreatedAt: fixedNow()}); err != nil {
		t.Fatalf("seed memory model info: %v", err)
	}

	dir := filepath.Join(memDir, "index")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir memory index: %v", err)
	}
	adapter, err := vectorindex.Open(dir, sqlitebackend.New(), vectorindex.Meta{
		Metric: vectorindex.MetricCosine, Dimension: embedder.Dimensions(), Base: "memory",
		EmbeddingProvider: embedder.ModelID(), EmbeddingModelID: embedder.ModelID(), CreatedAt: fixedNow(),
	})
	if err != nil {
		t.Fatalf("open memory vector index: %v", err)
	}
	vecs, err := embedder.EmbedBatch([]string{entry.Text})
	if err != nil {
		t.Fatalf("embed memory entry: %v", err)
	}
	if _, err := adapter.Upsert([]vectorindex.Record{{ID: memory.VectorID(entry.ID), Embedding: vecs[0]}}, fixedNow()); err != nil {
		t.Fatalf("upsert memory vector: %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Fatalf("close memory adapter: %v", err)
	}
	idx := bm25.NewIndex()
	idx.AddDocument(memory.VectorID(entry.ID), entry.Text)
	if err := idx.Save(filepath.Join(dir, "bm25.bin")); err != nil {
		t.Fatalf("save memory bm25: %v", err)
	}

	deps := newTestDeps(t, branchDir, embedder)
	initRev := timeline.NewRevision("", "main", "", "init", fixedNow(), timeline.InitOp())
	if err := deps.Timeline.Append(initRev); err != nil {
		t.Fatalf("seed init: %v", err)
	}

	bundle, err := Run(deps, "why did we pick sqlite as the default backend", Options{TopK: 5, IncludeMemory: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(bundle.MemoryEvents) == 0 {
		t.Fatalf("expected at least one memory event")
	}
	if bundle.MemoryEvents[0].Scope != string(memory.ScopeProject) {
		t.Fatalf("expected memory event scope to survive, got %+v", bundle.MemoryEvents[0])
	}
}

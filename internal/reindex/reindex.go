// Package reindex implements the reindex pipeline: rebuilding one base's
// vector index and BM25 storage from scratch under a new embedding
// configuration, per §4.5. Content never changes, only the vectors and
// the ModelInfo pinned to them; the knowledge graph and staging log are
// untouched since they carry no embedding-dependent state.
package reindex

import (
	"bufio"
	"os"
	"path/filepath"
	"time"

	"gik/internal/basestore"
	"gik/internal/bm25"
	"gik/internal/commit"
	gikerrors "gik/internal/errors"
	"gik/internal/embedding"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
)

// VectorBackendFactory constructs a fresh, unopened vectorindex.Backend.
type VectorBackendFactory func() vectorindex.Backend

// Dependencies are the collaborators Run needs for one base.
type Dependencies struct {
	WorkspaceRoot string
	Branch        string
	BranchDir     string
	Base          string
	Timeline      *timeline.Timeline
	Embedder      embedding.Provider
	NewBackend    VectorBackendFactory
	Now           func() time.Time
}

// Options parameterizes one reindex invocation.
type Options struct {
	Force  bool
	DryRun bool
}

// Result describes what a reindex did (or, for a dry run, would do).
type Result struct {
	Base        string
	ChunkCount  int
	FromModelID string
	ToModelID   string
	RevisionID  string
	DryRun      bool
}

// Run rebuilds deps.Base's vector index and BM25 storage under the active
// embedding configuration. If force is false and the active model already
// matches the base's stored ModelInfo, it returns NotReindexed without
// touching storage (the guard named in §4.5).
func Run(deps Dependencies, opts Options) (Result, error) {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	baseDir := filepath.Join(deps.BranchDir, "bases", deps.Base)
	bstore := basestore.Open(baseDir, deps.Base)

	existing, err := bstore.ModelInfo()
	if err != nil {
		return Result{}, err
	}

	fromModelID := ""
	if existing != nil {
		fromModelID = existing.ModelID
		if !opts.Force && existing.ModelID == deps.Embedder.ModelID() && existing.Dimension == deps.Embedder.Dimensions() {
			return Result{}, gikerrors.Newf(gikerrors.NotReindexed,
				"base %q is already indexed with model %q", deps.Base, existing.ModelID)
		}
	}

	entries, err := bstore.Entries()
	if err != nil {
		return Result{}, err
	}

	if opts.DryRun {
		return Result{
			Base: deps.Base, ChunkCount: len(entries),
			FromModelID: fromModelID, ToModelID: deps.Embedder.ModelID(), DryRun: true,
		}, nil
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		text := e.Text
		if text == "" {
			lines, err := readLines(filepath.Join(deps.WorkspaceRoot, e.Path), e.StartLine, e.EndLine)
			if err != nil {
				return Result{}, gikerrors.Wrap(gikerrors.SourceReadFailed, err, "re-reading chunk content for reindex")
			}
			text = lines
		}
		texts[i] = text
	}

	var embeddings [][]float32
	if len(texts) > 0 {
		embeddings, err = deps.Embedder.EmbedBatch(texts)
		if err != nil {
			return Result{}, gikerrors.Wrap(gikerrors.EmbeddingProviderUnavailable, err, "embedding batch failed during reindex")
		}
	}

	if err := rebuildVectorIndex(deps, bstore, entries, embeddings, now()); err != nil {
		return Result{}, err
	}
	if err := rebuildBM25(entries, filepath.Join(baseDir, "index", "bm25.bin")); err != nil {
		return Result{}, err
	}

	if err := bstore.ReplaceEntries(entries); err != nil {
		return Result{}, err
	}
	if _, err := bstore.RecomputeStats(now()); err != nil {
		return Result{}, err
	}

	modelInfo := basestore.ModelInfo{
		Provider:        providerName(deps.Embedder),
		ModelID:         deps.Embedder.ModelID(),
		Dimension:       deps.Embedder.Dimensions(),
		CreatedAt:       now(),
		LastReindexedAt: ptrTime(now()),
	}
	if existing != nil {
		modelInfo.CreatedAt = existing.CreatedAt
	}
	if err := bstore.SaveModelInfo(modelInfo); err != nil {
		return Result{}, err
	}

	head, err := headOrEmpty(deps.Timeline)
	if err != nil {
		return Result{}, err
	}
	rev := timeline.NewRevision(head, deps.Branch, "", "", now(),
		timeline.ReindexOp(deps.Base, fromModelID, deps.Embedder.ModelID()))
	if err := deps.Timeline.Append(rev); err != nil {
		return Result{}, err
	}

	return Result{
		Base: deps.Base, ChunkCount: len(entries),
		FromModelID: fromModelID, ToModelID: deps.Embedder.ModelID(), RevisionID: rev.ID,
	}, nil
}

// rebuildVectorIndex builds a fresh index under index.new next to the
// base's current index, then swaps it in. Building into a side directory
// first and renaming it over the old one keeps the "atomic substitution
// point" named in §4.5 step 3, even though the new dimension/model means
// vectorindex.Open on the live directory would otherwise refuse the
// mismatch by design.
func rebuildVectorIndex(deps Dependencies, bstore *basestore.Store, entries []basestore.Entry, embeddings [][]float32, now time.Time) error {
	liveDir := bstore.IndexDir()
	newDir := liveDir + ".new"

	if err := os.RemoveAll(newDir); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "clearing stale reindex scratch directory")
	}
	if err := os.MkdirAll(newDir, 0o755); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "creating reindex scratch directory")
	}

	adapter, err := vectorindex.Open(newDir, deps.NewBackend(), vectorindex.Meta{
		Metric:            vectorindex.MetricCosine,
		Dimension:         deps.Embedder.Dimensions(),
		Base:              deps.Base,
		EmbeddingProvider: providerName(deps.Embedder),
		EmbeddingModelID:  deps.Embedder.ModelID(),
		CreatedAt:         now,
	})
	if err != nil {
		return err
	}

	records := make([]vectorindex.Record, len(entries))
	for i, e := range entries {
		_, vecID := commit.ChunkID(e.Base, e.Path)
		records[i] = vectorindex.Record{ID: vecID, Embedding: embeddings[i]}
	}
	if _, err := adapter.Upsert(records, now); err != nil {
		_ = adapter.Close()
		return err
	}
	if err := adapter.Close(); err != nil {
		return err
	}

	if err := os.RemoveAll(liveDir); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "removing previous vector index")
	}
	if err := os.Rename(newDir, liveDir); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "swapping in rebuilt vector index")
	}
	return nil
}

func rebuildBM25(entries []basestore.Entry, path string) error {
	idx := bm25.NewIndex()
	for _, e := range entries {
		_, vecID := commit.ChunkID(e.Base, e.Path)
		idx.AddDocument(vecID, e.Text)
	}
	return idx.Save(path)
}

func headOrEmpty(t *timeline.Timeline) (string, error) {
	if !t.Exists() {
		return "", nil
	}
	return t.Head()
}

func providerName(p embedding.Provider) string {
	type named interface{ Provider() string }
	if n, ok := p.(named); ok {
		return n.Provider()
	}
	return p.ModelID()
}

func ptrTime(t time.Time) *time.Time { return &t }

// readLines re-reads lines [start, end] (1-indexed, inclusive) from path,
// for entries whose Text was never persisted.
func readLines(path string, start, end int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var out []byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		if line < start {
			continue
		}
		if line > end {
			break
		}
		if len(out) > 0 {
			out = append(out, '\n')
		}
		out = append(out, scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return string(out), nil
}

// Package commit implements the commit pipeline: turning the pending
// sources staged for a branch into durable chunks, vectors, BM25 postings,
// knowledge-graph edges, and a new revision, per §4.4. The pipeline computes
// every base's writes first (Phase A), then persists the bases whose Phase A
// succeeded in a fixed order ending with the revision append, so a failure
// partway through persistence never leaves HEAD pointing at a revision whose
// base data isn't fully on disk.
package commit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gik/internal/basestore"
	"gik/internal/bm25"
	"gik/internal/config"
	gikerrors "gik/internal/errors"
	"gik/internal/embedding"
	"gik/internal/ignore"
	"gik/internal/kg"
	"gik/internal/logging"
	"gik/internal/staging"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
)

// VectorBackendFactory constructs a fresh, unopened vectorindex.Backend for
// a base; commit calls it once per base touched.
type VectorBackendFactory func() vectorindex.Backend

// Dependencies are the collaborators Run needs, threaded through rather
// than constructed internally so tests can substitute fakes.
type Dependencies struct {
	WorkspaceRoot string
	Branch        string
	BranchDir     string
	Timeline      *timeline.Timeline
	Staging       *staging.Store
	Config        *config.Config
	Embedder      embedding.Provider
	NewBackend    VectorBackendFactory
	Ignore        *ignore.Matcher
	Logger        *logging.Logger
	Now           func() time.Time
}

// Options parameterizes one commit invocation.
type Options struct {
	Message string
}

// BaseResult summarizes what commit did to one base.
type BaseResult struct {
	Base        string
	ChunkCount  int
	FileCount   int
	SourceCount int
}

// Result is what a successful commit produced.
type Result struct {
	RevisionID string
	Bases      []BaseResult
}

// chunk is one file's worth of content staged for embedding, before the
// vector/BM25/entry writes it will become.
type chunk struct {
	id        string
	vectorID  uint64
	base      string
	path      string
	text      string
	lineCount int
}

// baseWork accumulates everything Phase A computed for one base, ready to
// be persisted in Phase B once every base has succeeded.
type baseWork struct {
	base       string
	chunks     []chunk
	embeddings [][]float32
	sourceIDs  []string
	modelInfo  basestore.ModelInfo
}

// Run executes one commit: resolve pending sources into chunks, embed
// them, and persist every base whose Phase A succeeded. A base whose Phase
// A fails has its sources marked failed and is left out of the revision; an
// embedding-model mismatch, or every base failing, aborts the commit.
func Run(deps Dependencies, opts Options) (Result, error) {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	pending, err := deps.Staging.Pending()
	if err != nil {
		return Result{}, err
	}
	if len(pending) == 0 {
		return Result{}, gikerrors.New(gikerrors.NothingToCommit, "no pending sources to commit")
	}

	byBase := make(map[string][]staging.PendingSource)
	for _, p := range pending {
		byBase[p.Base] = append(byBase[p.Base], p)
	}
	bases := make([]string, 0, len(byBase))
	for b := range byBase {
		bases = append(bases, b)
	}
	sort.Strings(bases)

	work := make(map[string]*baseWork, len(bases))
	failed := make(map[string]error)

	for _, base := range bases {
		w, err := runPhaseA(deps, base, byBase[base], now())
		if err != nil {
			// An embedding-compatibility mismatch is fatal per §4.4 step 1 and
			// §7: the whole commit aborts here, before any base is persisted
			// and before the revision is appended, so HEAD does not advance.
			if gikerrors.Is(err, gikerrors.EmbeddingModelMismatch) {
				return Result{}, err
			}
			for _, p := range byBase[base] {
				failed[p.ID] = err
			}
			continue
		}
		work[base] = w
	}

	if len(work) == 0 {
		for id, ferr := range failed {
			_ = deps.Staging.MarkStatus(id, staging.StatusFailed, ferr.Error())
		}
		return Result{}, gikerrors.Wrap(gikerrors.EmbeddingProviderUnavailable, firstErr(failed), "commit aborted: no base could be embedded")
	}

	results, err := runPhaseB(deps, work, now())
	if err != nil {
		return Result{}, err
	}

	committedBases := make([]string, 0, len(work))
	sourceCount := 0
	for base, w := range work {
		committedBases = append(committedBases, base)
		sourceCount += len(w.sourceIDs)
		for _, id := range w.sourceIDs {
			if err := deps.Staging.MarkStatus(id, staging.StatusIndexed, ""); err != nil {
				return Result{}, err
			}
		}
	}
	for id, ferr := range failed {
		_ = deps.Staging.MarkStatus(id, staging.StatusFailed, ferr.Error())
	}
	sort.Strings(committedBases)

	head, err := headOrEmpty(deps.Timeline)
	if err != nil {
		return Result{}, err
	}
	rev := timeline.NewRevision(head, deps.Branch, "", opts.Message, now(),
		timeline.CommitOp(committedBases, sourceCount))
	if err := deps.Timeline.Append(rev); err != nil {
		return Result{}, err
	}

	return Result{RevisionID: rev.ID, Bases: results}, nil
}

func headOrEmpty(t *timeline.Timeline) (string, error) {
	if !t.Exists() {
		return "", nil
	}
	return t.Head()
}

func firstErr(m map[string]error) error {
	for _, e := range m {
		return e
	}
	return fmt.Errorf("unknown commit failure")
}

// runPhaseA enumerates, reads, and embeds every file named by one base's
// pending sources, without writing anything durable. A single source
// failure (size/line cap, read error) is recorded against that source and
// skipped; the base still proceeds with whatever files did succeed.
func runPhaseA(deps Dependencies, base string, sources []staging.PendingSource, now time.Time) (*baseWork, error) {
	bstore := basestore.Open(filepath.Join(deps.BranchDir, "bases", base), base)
	existingInfo, err := bstore.ModelInfo()
	if err != nil {
		return nil, err
	}
	if existingInfo != nil && existingInfo.ModelID != deps.Embedder.ModelID() {
		return nil, gikerrors.Newf(gikerrors.EmbeddingModelMismatch,
			"base %q was embedded with model %q, active model is %q", base, existingInfo.ModelID, deps.Embedder.ModelID()).
			WithNextAction("reindex the base or switch back to its original model")
	}

	var chunks []chunk
	var texts []string
	var sourceIDs []string

	for _, src := range sources {
		var srcErr error
		start := len(chunks)
		candidates, err := enumerate(deps.WorkspaceRoot, src.URI, deps.Ignore)
		if err != nil {
			srcErr = gikerrors.Wrap(gikerrors.SourceReadFailed, err, fmt.Sprintf("enumerating %s", src.URI))
		}
		for _, cand := range candidates {
			content, _, err := readCapped(cand.AbsPath, deps.Config.Commit.MaxFileSizeBytes, deps.Config.Commit.MaxFileLines)
			if err != nil {
				if err == errTooLarge {
					srcErr = gikerrors.Newf(gikerrors.SourceTooLarge, "%s exceeds the file size or line cap", cand.RelPath)
				} else {
					srcErr = gikerrors.Wrap(gikerrors.SourceReadFailed, err, fmt.Sprintf("reading %s", cand.RelPath))
				}
				break
			}
			idHex, vecID := ChunkID(base, cand.RelPath)
			chunks = append(chunks, chunk{
				id: idHex, vectorID: vecID, base: base, path: cand.RelPath,
				text: content, lineCount: countLines([]byte(content)),
			})
			texts = append(texts, content)
		}
		if srcErr != nil {
			chunks, texts = chunks[:start], texts[:start]
			_ = deps.Staging.MarkStatus(src.ID, staging.StatusFailed, srcErr.Error())
			continue
		}
		sourceIDs = append(sourceIDs, src.ID)
	}

	if len(chunks) == 0 {
		return &baseWork{base: base, sourceIDs: sourceIDs}, nil
	}

	batchSize := deps.Config.Commit.BatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		batch, err := deps.Embedder.EmbedBatch(texts[start:min(start+batchSize, len(texts))])
		if err != nil {
			return nil, gikerrors.Wrap(gikerrors.EmbeddingProviderUnavailable, err, "embedding batch failed")
		}
		embeddings = append(embeddings, batch...)
	}

	modelInfo := basestore.ModelInfo{
		Provider:  providerName(deps.Embedder),
		ModelID:   deps.Embedder.ModelID(),
		Dimension: deps.Embedder.Dimensions(),
		CreatedAt: now,
	}
	if existingInfo != nil {
		modelInfo.CreatedAt = existingInfo.CreatedAt
		modelInfo.LastReindexedAt = existingInfo.LastReindexedAt
	}

	return &baseWork{
		base: base, chunks: chunks, embeddings: embeddings,
		sourceIDs: sourceIDs, modelInfo: modelInfo,
	}, nil
}

// providerName extracts the provider string from an embedding.Provider
// that also exposes it; a minimal implementation of the interface falls
// back to its model id.
func providerName(p embedding.Provider) string {
	type named interface{ Provider() string }
	if n, ok := p.(named); ok {
		return n.Provider()
	}
	return p.ModelID()
}

// runPhaseB persists every base's Phase A output: vector upsert, BM25
// rebuild, entry log append, stats. Once every base is durable, the
// knowledge graph is synced once across the union of all bases' files
// (not just the ones touched by this commit), since kg.Sync's full-rebuild
// strategy would otherwise erase the graph for bases this commit didn't
// touch. The revision append that follows in Run is the last, global step.
func runPhaseB(deps Dependencies, work map[string]*baseWork, now time.Time) ([]BaseResult, error) {
	bases := make([]string, 0, len(work))
	for b := range work {
		bases = append(bases, b)
	}
	sort.Strings(bases)

	var results []BaseResult
	touchedBases := make([]string, 0, len(bases))
	for _, base := range bases {
		w := work[base]
		res, err := persistBase(deps, w, now)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if len(w.chunks) > 0 {
			touchedBases = append(touchedBases, base)
		}
	}

	if len(touchedBases) > 0 {
		if err := syncKnowledgeGraph(deps, now); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// syncKnowledgeGraph rebuilds the branch's knowledge graph from every
// base's current entry log, so a commit that only touches one base still
// keeps the graph's view of every other base's files.
func syncKnowledgeGraph(deps Dependencies, now time.Time) error {
	basesRoot := filepath.Join(deps.BranchDir, "bases")
	dirEntries, err := os.ReadDir(basesRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return gikerrors.Wrap(gikerrors.IoFailed, err, "listing bases")
	}

	var files []kg.FileContent
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		bstore := basestore.Open(filepath.Join(basesRoot, de.Name()), de.Name())
		entries, err := bstore.Entries()
		if err != nil {
			return err
		}
		for _, e := range entries {
			files = append(files, kg.FileContent{Path: e.Path, Text: e.Text})
		}
	}

	kgStore := kg.Open(filepath.Join(deps.BranchDir, "kg"))
	return kg.Sync(kgStore, deps.Branch, files, kg.ExtractOptions{}, now)
}

func persistBase(deps Dependencies, w *baseWork, now time.Time) (BaseResult, error) {
	baseDir := filepath.Join(deps.BranchDir, "bases", w.base)
	bstore := basestore.Open(baseDir, w.base)

	if len(w.chunks) == 0 {
		stats, err := bstore.Stats()
		if err != nil {
			return BaseResult{}, err
		}
		return BaseResult{Base: w.base, ChunkCount: stats.ChunkCount, FileCount: stats.FileCount, SourceCount: len(w.sourceIDs)}, nil
	}

	if err := os.MkdirAll(bstore.IndexDir(), 0o755); err != nil {
		return BaseResult{}, gikerrors.Wrap(gikerrors.IoFailed, err, "creating vector index directory")
	}
	vecAdapter, err := vectorindex.Open(bstore.IndexDir(), deps.NewBackend(), vectorindex.Meta{
		Metric:            vectorindex.MetricCosine,
		Dimension:         w.modelInfo.Dimension,
		Base:              w.base,
		EmbeddingProvider: w.modelInfo.Provider,
		EmbeddingModelID:  w.modelInfo.ModelID,
		CreatedAt:         now,
	})
	if err != nil {
		return BaseResult{}, err
	}
	defer vecAdapter.Close()

	records := make([]vectorindex.Record, len(w.chunks))
	for i, c := range w.chunks {
		records[i] = vectorindex.Record{ID: c.vectorID, Embedding: w.embeddings[i]}
	}
	if _, err := vecAdapter.Upsert(records, now); err != nil {
		return BaseResult{}, err
	}

	entries := make([]basestore.Entry, len(w.chunks))
	for i, c := range w.chunks {
		entries[i] = basestore.Entry{
			ID: c.id, Base: c.base, Path: c.path,
			StartLine: 1, EndLine: c.lineCount, Text: c.text,
		}
	}
	if err := bstore.AppendEntries(entries); err != nil {
		return BaseResult{}, err
	}
	if err := bstore.SaveModelInfo(w.modelInfo); err != nil {
		return BaseResult{}, err
	}

	if err := rebuildBM25(bstore, filepath.Join(baseDir, "index", "bm25.bin")); err != nil {
		return BaseResult{}, err
	}

	stats, err := bstore.RecomputeStats(now)
	if err != nil {
		return BaseResult{}, err
	}

	return BaseResult{Base: w.base, ChunkCount: stats.ChunkCount, FileCount: stats.FileCount, SourceCount: len(w.sourceIDs)}, nil
}

// rebuildBM25 rebuilds the base's sparse index from its full entry log.
// BM25 has no incremental update API, so every commit rebuilds it from
// sources.jsonl, mirroring the KG's own full-rebuild sync strategy.
func rebuildBM25(bstore *basestore.Store, path string) error {
	entries, err := bstore.Entries()
	if err != nil {
		return err
	}
	idx := bm25.NewIndex()
	for _, e := range entries {
		_, vecID := ChunkID(e.Base, e.Path)
		idx.AddDocument(vecID, e.Text)
	}
	return idx.Save(path)
}

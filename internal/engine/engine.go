// Package engine implements the façade every surface (CLI, tests, a future
// MCP server) drives instead of touching the pipeline packages directly
// (§4.1): one method per operation, each resolving the branch, loading
// config, and wiring the same collaborators the commit/reindex/retrieval
// packages already expect.
package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gik/internal/basestore"
	"gik/internal/commit"
	"gik/internal/config"
	"gik/internal/embedding"
	gikerrors "gik/internal/errors"
	"gik/internal/engineresult"
	"gik/internal/fsutil"
	"gik/internal/ignore"
	"gik/internal/kg"
	"gik/internal/kgexport"
	"gik/internal/logging"
	"gik/internal/memory"
	"gik/internal/reindex"
	"gik/internal/release"
	"gik/internal/retrieval"
	"gik/internal/rerank"
	"gik/internal/staging"
	"gik/internal/stack"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
	"gik/internal/vectorindex/sqlitebackend"
	"gik/internal/vectorindex/sqlitevecbackend"
	"gik/internal/workspace"
)

// Engine is the façade bound to one workspace and one active branch.
type Engine struct {
	WorkspaceRoot string
	Branch        string
	BranchDir     string
	Config        *config.Config
	Embedder      embedding.Provider
	Reranker      rerank.Reranker
	Ignore        *ignore.Matcher
	Logger        *logging.Logger
	Timeline      *timeline.Timeline
	Staging       *staging.Store
	Now           func() time.Time
}

// Open resolves the workspace rooted at or above startDir, loads its
// configuration and collaborators, and binds an Engine to the active
// branch. It never creates anything on disk; Init is the only operation
// that does.
func Open(startDir string) (*Engine, error) {
	root, err := workspace.Resolve(startDir)
	if err != nil {
		return nil, err
	}
	branch, err := workspace.ResolveBranch(root)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(workspace.KnowledgeRoot(root))
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.IoFailed, err, "loading config")
	}
	ignoreMatcher, err := ignore.Load(root)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.IoFailed, err, "loading ignore rules")
	}

	branchDir := workspace.BranchDir(root, branch)
	logLevel := logging.LogLevel(cfg.Logging.Level)
	if cfg.Verbose {
		logLevel = logging.DebugLevel
	}
	e := &Engine{
		WorkspaceRoot: root,
		Branch:        branch,
		BranchDir:     branchDir,
		Config:        cfg,
		Embedder:      embedding.NewHashingProvider(cfg.Embeddings.Default.Provider, cfg.Embeddings.Default.ModelID, cfg.Embeddings.Default.Dimension),
		Ignore:        ignoreMatcher,
		Logger:        logging.NewLogger(logging.Config{Format: logging.Format(cfg.Logging.Format), Level: logLevel}),
		Timeline:      timeline.Open(branchDir),
		Staging:       staging.Open(branchDir),
		Now:           func() time.Time { return time.Now().UTC() },
	}
	if cfg.Reranker.Enabled {
		e.Reranker = rerank.NewLexicalOverlapReranker()
	}
	return e, nil
}

// newVectorBackend returns the backend factory matching the active
// configuration's kind, the VectorBackendFactory shape commit and reindex
// both accept.
func (e *Engine) newVectorBackend() vectorindex.Backend {
	return backendByKind(e.Config.Backends.Vector.Kind)
}

func backendByKind(kind string) vectorindex.Backend {
	if kind == "sqlite-vec" {
		return sqlitevecbackend.New()
	}
	return sqlitebackend.New()
}

func providerName(p embedding.Provider) string {
	if named, ok := p.(interface{ Provider() string }); ok {
		return named.Provider()
	}
	return "unknown"
}

func headOrEmpty(tl *timeline.Timeline) (string, error) {
	if !tl.Exists() {
		return "", nil
	}
	return tl.Head()
}

// Init creates the branch's timeline with a single Init revision and seeds
// a fresh memory base's default pruning policy, per §4.1's idempotency
// requirement: if HEAD already exists, Init returns AlreadyInitialized
// rather than duplicating the Init revision.
func (e *Engine) Init() (engineresult.InitResult, error) {
	if e.Timeline.Exists() {
		return engineresult.InitResult{AlreadyInitialized: true},
			gikerrors.New(gikerrors.AlreadyInitialized, "branch "+e.Branch+" is already initialized")
	}

	if err := os.MkdirAll(e.BranchDir, 0o755); err != nil {
		return engineresult.InitResult{}, gikerrors.Wrap(gikerrors.IoFailed, err, "creating branch directory")
	}

	now := e.Now()
	rev := timeline.NewRevision("", e.Branch, workspace.HeadCommit(e.WorkspaceRoot), "", now, timeline.InitOp())
	if err := e.Timeline.Append(rev); err != nil {
		return engineresult.InitResult{}, err
	}

	if err := e.writeDefaultMemoryConfig(); err != nil {
		return engineresult.InitResult{}, err
	}

	return engineresult.InitResult{RevisionID: rev.ID}, nil
}

func (e *Engine) memoryDir() string {
	return filepath.Join(e.BranchDir, "bases", "memory")
}

// writeDefaultMemoryConfig seeds bases/memory/config.json from the active
// configuration's defaultPruningPolicy, so a later MemoryPrune call with no
// explicit policy has something to fall back to.
func (e *Engine) writeDefaultMemoryConfig() error {
	data, err := json.MarshalIndent(e.Config.Memory.DefaultPruningPolicy, "", "  ")
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding memory config")
	}
	path := filepath.Join(e.memoryDir(), "config.json")
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing memory config")
	}
	return nil
}

func policyFromConfig(c config.PruningPolicyConfig) memory.PruningPolicy {
	p := memory.PruningPolicy{Mode: memory.PruneMode(c.Mode), ObsoleteTags: c.ObsoleteTags}
	if c.MaxEntries > 0 {
		v := c.MaxEntries
		p.MaxEntries = &v
	}
	if c.MaxEstimatedTokens > 0 {
		v := c.MaxEstimatedTokens
		p.MaxEstimatedTokens = &v
	}
	if c.MaxAgeDays > 0 {
		v := c.MaxAgeDays
		p.MaxAgeDays = &v
	}
	return p
}

// readMemoryConfig loads bases/memory/config.json if present, returning
// ok=false when the memory base has never been initialized.
func (e *Engine) readMemoryConfig() (memory.PruningPolicy, bool, error) {
	data, err := os.ReadFile(filepath.Join(e.memoryDir(), "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return memory.PruningPolicy{}, false, nil
		}
		return memory.PruningPolicy{}, false, gikerrors.Wrap(gikerrors.IoFailed, err, "reading memory config")
	}
	var c config.PruningPolicyConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return memory.PruningPolicy{}, false, gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing memory config")
	}
	return policyFromConfig(c), true, nil
}

// AddOptions parameterizes Engine.Add. A non-empty MemoryText takes the
// §4.10 short-circuit path into memory.Ingest instead of staging targets.
type AddOptions struct {
	Base     string
	Metadata map[string]string

	MemoryText       string
	MemoryScope      memory.Scope
	MemorySource     memory.Source
	MemoryTitle      string
	MemoryTags       []string
	MemoryImportance *float64
}

// Add stages one or more source targets for the next commit, or, when
// opts.MemoryText is set, ingests a memory entry immediately.
func (e *Engine) Add(targets []string, opts AddOptions) (engineresult.AddResult, error) {
	if opts.MemoryText != "" {
		return e.addMemory(opts)
	}

	var added []staging.PendingSource
	skipped := 0
	for _, target := range targets {
		entry, created, err := e.Staging.AddPending(e.Branch, target, opts.Base, opts.Metadata)
		if err != nil {
			return engineresult.AddResult{}, err
		}
		if created {
			added = append(added, entry)
		} else {
			skipped++
		}
	}

	summary, err := e.Staging.Summary()
	if err != nil {
		return engineresult.AddResult{}, err
	}
	return engineresult.AddResult{Added: added, SkippedCount: skipped, Summary: summary}, nil
}

// singleEmbedder adapts embedding.Provider's batch interface to the single
// call memory.Ingest expects.
type singleEmbedder struct{ provider embedding.Provider }

func (s singleEmbedder) Embed(text string) ([]float32, error) {
	vecs, err := s.provider.EmbedBatch([]string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Engine) addMemory(opts AddOptions) (engineresult.AddResult, error) {
	now := e.Now()
	memDir := e.memoryDir()
	mstore := memory.Open(memDir)
	bstore := basestore.Open(memDir, "memory")

	existing, err := bstore.ModelInfo()
	if err != nil {
		return engineresult.AddResult{}, err
	}
	if existing != nil && (existing.ModelID != e.Embedder.ModelID() || existing.Dimension != e.Embedder.Dimensions()) {
		return engineresult.AddResult{}, gikerrors.Newf(gikerrors.EmbeddingModelMismatch,
			"memory base was embedded with model %q, active model is %q", existing.ModelID, e.Embedder.ModelID()).
			WithNextAction("reindex the memory base or switch back to its original model")
	}

	indexDir := filepath.Join(memDir, "index")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return engineresult.AddResult{}, gikerrors.Wrap(gikerrors.IoFailed, err, "creating memory index directory")
	}
	adapter, err := vectorindex.Open(indexDir, e.newVectorBackend(), vectorindex.Meta{
		Metric: vectorindex.MetricCosine, Dimension: e.Embedder.Dimensions(), Base: "memory",
		EmbeddingProvider: providerName(e.Embedder), EmbeddingModelID: e.Embedder.ModelID(), CreatedAt: now,
	})
	if err != nil {
		return engineresult.AddResult{}, err
	}
	defer adapter.Close()

	head, err := headOrEmpty(e.Timeline)
	if err != nil {
		return engineresult.AddResult{}, err
	}

	entry := memory.Entry{
		Scope:      opts.MemoryScope,
		Source:     opts.MemorySource,
		Title:      opts.MemoryTitle,
		Text:       opts.MemoryText,
		Tags:       opts.MemoryTags,
		Branch:     e.Branch,
		Importance: opts.MemoryImportance,
	}
	result, err := memory.Ingest(mstore, adapter, singleEmbedder{e.Embedder}, entry, head, now)
	if err != nil {
		return engineresult.AddResult{MemoryIngest: &result}, err
	}

	if existing == nil {
		if err := bstore.SaveModelInfo(basestore.ModelInfo{
			Provider: providerName(e.Embedder), ModelID: e.Embedder.ModelID(), Dimension: e.Embedder.Dimensions(), CreatedAt: now,
		}); err != nil {
			return engineresult.AddResult{MemoryIngest: &result}, err
		}
	}

	rev := timeline.NewRevision(head, e.Branch, "", "", now, timeline.MemoryIngestOp(1))
	if err := e.Timeline.Append(rev); err != nil {
		return engineresult.AddResult{MemoryIngest: &result}, err
	}

	summary, err := e.Staging.Summary()
	if err != nil {
		return engineresult.AddResult{MemoryIngest: &result, MemoryRevID: rev.ID}, err
	}
	return engineresult.AddResult{MemoryIngest: &result, MemoryRevID: rev.ID, Summary: summary}, nil
}

// Remove drops pending sources from the staging log by id.
func (e *Engine) Remove(ids []string) (engineresult.RemoveResult, error) {
	n, err := e.Staging.Remove(ids)
	if err != nil {
		return engineresult.RemoveResult{}, err
	}
	summary, err := e.Staging.Summary()
	if err != nil {
		return engineresult.RemoveResult{}, err
	}
	return engineresult.RemoveResult{RemovedCount: n, Summary: summary}, nil
}

// Commit runs the commit pipeline over every pending source (§4.4).
func (e *Engine) Commit(message string) (commit.Result, error) {
	deps := commit.Dependencies{
		WorkspaceRoot: e.WorkspaceRoot,
		Branch:        e.Branch,
		BranchDir:     e.BranchDir,
		Timeline:      e.Timeline,
		Staging:       e.Staging,
		Config:        e.Config,
		Embedder:      e.Embedder,
		NewBackend:    e.newVectorBackend,
		Ignore:        e.Ignore,
		Logger:        e.Logger,
		Now:           e.Now,
	}
	return commit.Run(deps, commit.Options{Message: message})
}

// Reindex rebuilds one base's vector index under the active embedding
// configuration (§4.5).
func (e *Engine) Reindex(base string, opts reindex.Options) (reindex.Result, error) {
	deps := reindex.Dependencies{
		WorkspaceRoot: e.WorkspaceRoot,
		Branch:        e.Branch,
		BranchDir:     e.BranchDir,
		Base:          base,
		Timeline:      e.Timeline,
		Embedder:      e.Embedder,
		NewBackend:    e.newVectorBackend,
		Now:           e.Now,
	}
	return reindex.Run(deps, opts)
}

// Ask answers question against the indexed bases (§4.6), translating the
// pipeline's internal bundle shape into the decoupled result type.
func (e *Engine) Ask(question string, opts retrieval.Options) (engineresult.AskContextBundle, error) {
	deps := retrieval.Dependencies{
		WorkspaceRoot: e.WorkspaceRoot,
		Branch:        e.Branch,
		BranchDir:     e.BranchDir,
		Timeline:      e.Timeline,
		Config:        e.Config,
		Embedder:      e.Embedder,
		Reranker:      e.Reranker,
		OpenVector:    e.openVectorForRead,
		Now:           e.Now,
	}
	bundle, err := retrieval.Run(deps, question, opts)
	if err != nil {
		return engineresult.AskContextBundle{}, err
	}
	return toResultBundle(bundle), nil
}

func (e *Engine) openVectorForRead(base string, want vectorindex.Meta) (*vectorindex.Adapter, error) {
	dir := filepath.Join(e.BranchDir, "bases", base, "index")
	return vectorindex.Open(dir, e.newVectorBackend(), want)
}

func toResultBundle(b retrieval.AskContextBundle) engineresult.AskContextBundle {
	chunks := make([]engineresult.RagChunk, len(b.RagChunks))
	for i, c := range b.RagChunks {
		chunks[i] = engineresult.RagChunk{Base: c.Base, Path: c.Path, Text: c.Text, Score: c.Score, DenseScore: c.DenseScore, RerankerScore: c.RerankerScore}
	}
	events := make([]engineresult.MemoryEvent, len(b.MemoryEvents))
	for i, m := range b.MemoryEvents {
		events[i] = engineresult.MemoryEvent{ID: m.ID, Scope: m.Scope, Source: m.Source, Tags: m.Tags, Text: m.Text, Score: m.Score}
	}
	kgResults := make([]engineresult.KgSubgraph, len(b.KgResults))
	for i, k := range b.KgResults {
		kgResults[i] = engineresult.KgSubgraph{Roots: k.Roots, Nodes: k.Nodes, Edges: k.Edges, Reason: k.Reason}
	}
	return engineresult.AskContextBundle{
		RevisionID:   b.RevisionID,
		Question:     b.Question,
		Bases:        b.Bases,
		RagChunks:    chunks,
		KgResults:    kgResults,
		MemoryEvents: events,
		Debug: engineresult.AskDebug{
			EmbeddingModelID: b.Debug.EmbeddingModelID,
			UsedBases:        b.Debug.UsedBases,
			PerBaseCounts:    b.Debug.PerBaseCounts,
			EmbedTimeMs:      b.Debug.EmbedTimeMs,
			SearchTimeMs:     b.Debug.SearchTimeMs,
		},
	}
}

// Status reports the branch's staging queue, file/dependency inventory, and
// per-base health (§4.11).
func (e *Engine) Status() (engineresult.StatusReport, error) {
	head, err := headOrEmpty(e.Timeline)
	if err != nil {
		return engineresult.StatusReport{}, err
	}

	summary, err := e.Staging.Summary()
	if err != nil {
		return engineresult.StatusReport{}, err
	}

	stackStore := stack.Open(filepath.Join(e.BranchDir, "stack"))
	stats, err := stackStore.Stats()
	if err != nil {
		return engineresult.StatusReport{}, err
	}

	basesDir := filepath.Join(e.BranchDir, "bases")
	entries, err := os.ReadDir(basesDir)
	var bases []engineresult.BaseStatus
	switch {
	case err == nil:
		var names []string
		for _, de := range entries {
			if de.IsDir() {
				names = append(names, de.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			bs, statusErr := e.baseStatus(name)
			if statusErr != nil {
				bs = engineresult.BaseStatus{Base: name, Health: engineresult.HealthError, Error: statusErr.Error()}
			}
			bases = append(bases, bs)
		}
	case os.IsNotExist(err):
	default:
		return engineresult.StatusReport{}, gikerrors.Wrap(gikerrors.IoFailed, err, "listing bases")
	}

	return engineresult.StatusReport{
		Branch:  e.Branch,
		Head:    head,
		Staging: summary,
		Stack: engineresult.StackSummary{
			TotalFiles:  stats.TotalFiles,
			Languages:   stats.Languages,
			Managers:    stats.Managers,
			GeneratedAt: stats.GeneratedAt,
		},
		Bases: bases,
	}, nil
}

// baseStatus derives one base's health per the §4.11 truth table. The
// index meta.json is read directly (bypassing vectorindex.Adapter, whose
// Open call would silently create a fresh index if meta.json were absent)
// so a status check never mutates a base it is only inspecting.
func (e *Engine) baseStatus(name string) (engineresult.BaseStatus, error) {
	baseDir := filepath.Join(e.BranchDir, "bases", name)
	bstore := basestore.Open(baseDir, name)

	stats, err := bstore.Stats()
	if err != nil {
		return engineresult.BaseStatus{}, err
	}
	onDiskBytes, err := bstore.OnDiskBytes()
	if err != nil {
		return engineresult.BaseStatus{}, err
	}
	modelInfo, err := bstore.ModelInfo()
	if err != nil {
		return engineresult.BaseStatus{}, err
	}

	embeddingStatus := engineresult.EmbeddingMissing
	if modelInfo != nil {
		if modelInfo.ModelID == e.Embedder.ModelID() && modelInfo.Dimension == e.Embedder.Dimensions() {
			embeddingStatus = engineresult.EmbeddingCompatible
		} else {
			embeddingStatus = engineresult.EmbeddingMismatch
		}
	}

	indexStatus, vectors, err := e.baseIndexStatus(bstore.IndexDir())
	if err != nil {
		return engineresult.BaseStatus{}, err
	}

	return engineresult.BaseStatus{
		Base:            name,
		Documents:       stats.ChunkCount,
		Vectors:         vectors,
		Files:           stats.FileCount,
		OnDiskBytes:     onDiskBytes,
		LastCommit:      stats.LastUpdated,
		EmbeddingStatus: embeddingStatus,
		IndexStatus:     indexStatus,
		Health:          engineresult.DeriveHealth(embeddingStatus, indexStatus),
	}, nil
}

func (e *Engine) baseIndexStatus(indexDir string) (engineresult.IndexStatus, int, error) {
	data, err := os.ReadFile(filepath.Join(indexDir, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return engineresult.IndexMissing, 0, nil
		}
		return "", 0, gikerrors.Wrap(gikerrors.IoFailed, err, "reading vector index meta")
	}

	var stored vectorindex.Meta
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", 0, gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing vector index meta")
	}

	var status engineresult.IndexStatus
	switch {
	case stored.Backend != e.Config.Backends.Vector.Kind:
		status = engineresult.IndexBackendMismatch
	case stored.Dimension != e.Embedder.Dimensions():
		status = engineresult.IndexDimensionMismatch
	case stored.EmbeddingModelID != e.Embedder.ModelID():
		status = engineresult.IndexEmbeddingMismatch
	default:
		status = engineresult.IndexCompatible
	}

	vectors, err := countVectors(indexDir, stored)
	if err != nil {
		return status, 0, nil
	}
	return status, vectors, nil
}

// countVectors opens indexDir's own backend kind directly (bypassing
// vectorindex.Adapter's compatibility refusal) purely to read an accurate
// record count, even when the index is mismatched against the active
// configuration.
func countVectors(indexDir string, stored vectorindex.Meta) (int, error) {
	backend := backendByKind(stored.Backend)
	if err := backend.Open(vectorindex.Config{Dimension: stored.Dimension, Metric: stored.Metric, Path: indexDir}); err != nil {
		return 0, err
	}
	defer backend.Close()
	return backend.Count()
}

// ShowOptions parameterizes Engine.Show.
type ShowOptions struct {
	IncludeKgExport bool
	KgFormat        string // "dot" | "block"
}

// Show resolves ref (HEAD, HEAD~N, or an id prefix) to its revision and
// optionally renders the branch's knowledge graph.
func (e *Engine) Show(ref string, opts ShowOptions) (engineresult.RevisionView, error) {
	id, err := e.Timeline.Resolve(ref)
	if err != nil {
		return engineresult.RevisionView{}, err
	}
	rev, ok, err := e.Timeline.Get(id)
	if err != nil {
		return engineresult.RevisionView{}, err
	}
	if !ok {
		return engineresult.RevisionView{}, gikerrors.Newf(gikerrors.RevisionNotFound, "revision %s not found", id)
	}

	var opTypes []string
	var bases []string
	for _, op := range rev.Operations {
		opTypes = append(opTypes, string(op.Type))
		bases = append(bases, op.Bases...)
		if op.Base != "" {
			bases = append(bases, op.Base)
		}
	}

	view := engineresult.RevisionView{
		RevisionID: rev.ID,
		ParentID:   rev.ParentID,
		Branch:     rev.Branch,
		Timestamp:  rev.Timestamp,
		Message:    rev.Message,
		Operations: opTypes,
		Bases:      dedupSorted(bases),
	}

	if opts.IncludeKgExport {
		kgStore := kg.Open(filepath.Join(e.BranchDir, "kg"))
		nodes, err := kgStore.Nodes()
		if err != nil {
			return engineresult.RevisionView{}, err
		}
		edges, err := kgStore.Edges()
		if err != nil {
			return engineresult.RevisionView{}, err
		}
		if opts.KgFormat == "block" {
			view.KgBlock = kgexport.Block(nodes, edges)
		} else {
			view.KgDOT = kgexport.DOT(nodes, edges)
		}
	}

	return view, nil
}

func dedupSorted(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// Release generates the changelog between two revisions (§4.12).
func (e *Engine) Release(opts release.Options) (release.Summary, error) {
	deps := release.Dependencies{WorkspaceRoot: e.WorkspaceRoot, Branch: e.Branch, Timeline: e.Timeline}
	return release.Run(deps, opts)
}

// MemoryMetrics summarizes the memory base's live entries (§4.11-adjacent
// bookkeeping named in §4.10).
func (e *Engine) MemoryMetrics() (engineresult.MemoryMetricsResult, error) {
	mstore := memory.Open(e.memoryDir())
	entries, err := mstore.Entries()
	if err != nil {
		return engineresult.MemoryMetricsResult{}, err
	}
	return engineresult.MemoryMetricsResult{Metrics: memory.ComputeMetrics(entries)}, nil
}

// MemoryPrune applies policy (or, if nil, the memory base's own config.json,
// falling back to the active configuration's default) to the live entries,
// emitting a MemoryPrune revision only when something was actually removed.
func (e *Engine) MemoryPrune(policy *memory.PruningPolicy) (engineresult.MemoryPruneResult, error) {
	now := e.Now()
	memDir := e.memoryDir()
	mstore := memory.Open(memDir)

	resolved := memory.PruningPolicy{}
	switch {
	case policy != nil:
		resolved = *policy
	default:
		fromFile, ok, err := e.readMemoryConfig()
		if err != nil {
			return engineresult.MemoryPruneResult{}, err
		}
		if ok {
			resolved = fromFile
		} else {
			resolved = policyFromConfig(e.Config.Memory.DefaultPruningPolicy)
		}
	}
	if err := resolved.Validate(); err != nil {
		return engineresult.MemoryPruneResult{}, err
	}

	indexDir := filepath.Join(memDir, "index")
	var adapter *vectorindex.Adapter
	if _, err := os.Stat(filepath.Join(indexDir, "meta.json")); err == nil {
		a, err := vectorindex.Open(indexDir, e.newVectorBackend(), vectorindex.Meta{
			Metric: vectorindex.MetricCosine, Dimension: e.Embedder.Dimensions(), Base: "memory",
			EmbeddingProvider: providerName(e.Embedder), EmbeddingModelID: e.Embedder.ModelID(), CreatedAt: now,
		})
		if err != nil {
			return engineresult.MemoryPruneResult{}, err
		}
		adapter = a
		defer adapter.Close()
	}

	result, err := memory.Prune(mstore, adapter, resolved, now)
	if err != nil {
		return engineresult.MemoryPruneResult{Result: result}, err
	}
	if result.Count == 0 {
		return engineresult.MemoryPruneResult{Result: result}, nil
	}

	head, err := headOrEmpty(e.Timeline)
	if err != nil {
		return engineresult.MemoryPruneResult{Result: result}, err
	}
	rev := timeline.NewRevision(head, e.Branch, "", "", now, timeline.MemoryPruneOp(result.Count, result.ArchivedCount, result.DeletedCount))
	if err := e.Timeline.Append(rev); err != nil {
		return engineresult.MemoryPruneResult{Result: result}, err
	}
	return engineresult.MemoryPruneResult{Result: result, RevisionID: rev.ID}, nil
}

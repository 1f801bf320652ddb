// Package retrieval implements the hybrid retrieval pipeline (§4.6): base
// resolution, dense + sparse search, reciprocal rank fusion, filename
// boost, cross-encoder rerank, memory/code/docs partitioning, and knowledge
// graph subgraph expansion, assembled into an AskContextBundle.
package retrieval

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gik/internal/basestore"
	"gik/internal/bm25"
	"gik/internal/commit"
	"gik/internal/config"
	"gik/internal/embedding"
	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
	"gik/internal/kg"
	"gik/internal/memory"
	"gik/internal/rerank"
	"gik/internal/timeline"
	"gik/internal/vectorindex"
)

// VectorOpener opens a read-only view of one base's vector index, honoring
// the same compatibility guard vectorindex.Open enforces for writers.
type VectorOpener func(base string, want vectorindex.Meta) (*vectorindex.Adapter, error)

// Dependencies are the collaborators Run needs to answer one question.
type Dependencies struct {
	WorkspaceRoot string
	Branch        string
	BranchDir     string
	Timeline      *timeline.Timeline
	Config        *config.Config
	Embedder      embedding.Provider
	Reranker      rerank.Reranker
	OpenVector    VectorOpener
	Now           func() time.Time
}

// Options parameterizes one ask invocation.
type Options struct {
	Bases         []string
	TopK          int
	IncludeMemory bool
	Rerank        bool
	QueryVariants []string
}

// RagChunk is one code/docs hit in the final bundle. Score is the final
// score used for ordering (the reranker's score when reranking ran,
// otherwise the fused score); DenseScore and RerankerScore are optional
// debug fields carrying the pre-rerank fused score and, when present, the
// cross-encoder score, per spec §9's resolution of the RagChunk score
// ambiguity.
type RagChunk struct {
	Base          string   `json:"base"`
	Path          string   `json:"path"`
	Text          string   `json:"text"`
	Score         float64  `json:"score"`
	DenseScore    float64  `json:"denseScore"`
	RerankerScore *float64 `json:"rerankerScore,omitempty"`
}

// MemoryEvent is one memory hit in the final bundle.
type MemoryEvent struct {
	ID     string   `json:"id"`
	Scope  string   `json:"scope"`
	Source string   `json:"source"`
	Tags   []string `json:"tags,omitempty"`
	Text   string   `json:"text"`
	Score  float64  `json:"score"`
}

// KgSubgraph is one bounded BFS expansion rooted at a rag chunk's file.
type KgSubgraph struct {
	Roots  []string  `json:"roots"`
	Nodes  []kg.Node `json:"nodes"`
	Edges  []kg.Edge `json:"edges"`
	Reason string    `json:"reason"`
}

// Debug carries non-essential diagnostics about how a bundle was produced.
type Debug struct {
	EmbeddingModelID string         `json:"embeddingModelId"`
	UsedBases        []string       `json:"usedBases"`
	PerBaseCounts    map[string]int `json:"perBaseCounts"`
	EmbedTimeMs      int64          `json:"embedTimeMs"`
	SearchTimeMs     int64          `json:"searchTimeMs"`
}

// AskContextBundle is the retrieval pipeline's output (§4.6 step 10).
type AskContextBundle struct {
	RevisionID   string        `json:"revisionId"`
	Question     string        `json:"question"`
	Bases        []string      `json:"bases"`
	RagChunks    []RagChunk    `json:"ragChunks"`
	KgResults    []KgSubgraph  `json:"kgResults"`
	MemoryEvents []MemoryEvent `json:"memoryEvents"`
	Debug        Debug         `json:"debug"`
}

var filenameTokenPattern = regexp.MustCompile(`[\w.-]+\.\w{1,8}|[\w.-]+/[\w./-]+`)

// hit is one retrieved item, generalized over code/docs chunks and memory
// entries so RRF fusion and filename boost operate on a single shape.
type hit struct {
	vectorID    uint64
	text        string
	path        string // code/docs only
	memEntry    *memory.Entry
	denseRank   int
	sparseRank  int
	fusedScore  float64
	rerankScore float64
	reranked    bool
}

// Run answers question against the indexed bases, per §4.6.
func Run(deps Dependencies, question string, opts Options) (AskContextBundle, error) {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	cfg := deps.Config.Retrieval

	head, err := headOrEmpty(deps.Timeline)
	if err != nil {
		return AskContextBundle{}, err
	}

	bases, err := resolveBases(deps, opts.Bases)
	if err != nil {
		return AskContextBundle{}, err
	}

	embedStart := now()
	queryVec, err := expandQuery(deps.Embedder, question, opts.QueryVariants)
	if err != nil {
		return AskContextBundle{}, err
	}
	embedMs := now().Sub(embedStart).Milliseconds()

	searchStart := now()
	densePool := cfg.DensePoolSize
	if opts.TopK > densePool {
		densePool = opts.TopK
	}
	sparsePool := cfg.SparsePoolSize
	if opts.TopK > sparsePool {
		sparsePool = opts.TopK
	}

	perBaseCounts := map[string]int{}
	var ragHits []hit
	var memoryHits []hit

	for _, base := range bases {
		if base == "memory" {
			if !opts.IncludeMemory {
				continue
			}
			hits, err := searchMemoryBase(deps, queryVec, question, densePool, sparsePool, cfg.RrfK)
			if err != nil {
				return AskContextBundle{}, err
			}
			applyFilenameBoostToMemory(hits, question, cfg.FilenameBoost)
			perBaseCounts[base] = len(hits)
			memoryHits = append(memoryHits, hits...)
			continue
		}
		hits, err := searchCodeBase(deps, base, queryVec, question, densePool, sparsePool, cfg.RrfK)
		if err != nil {
			return AskContextBundle{}, err
		}
		applyFilenameBoost(hits, question, cfg.FilenameBoost)
		perBaseCounts[base] = len(hits)
		ragHits = append(ragHits, hits...)
	}
	searchMs := now().Sub(searchStart).Milliseconds()

	sortByFusedScore(ragHits)
	sortByFusedScore(memoryHits)

	// finalK is caller-authoritative (B3: top-k=0 must return empty results
	// without error), unlike densePool/sparsePool which only ever grow to
	// accommodate a larger top-k.
	topN := deps.Config.Reranker.TopN
	finalK := opts.TopK

	if opts.Rerank && deps.Config.Reranker.Enabled {
		var rerankErr error
		ragHits, rerankErr = rerankHits(deps.Reranker, question, ragHits, topN)
		if rerankErr != nil && deps.Config.Reranker.Required {
			return AskContextBundle{}, gikerrors.Wrap(gikerrors.RerankerUnavailable, rerankErr, "cross-encoder rerank failed")
		}
	}
	if len(ragHits) > finalK {
		ragHits = ragHits[:finalK]
	}
	if len(memoryHits) > finalK {
		memoryHits = memoryHits[:finalK]
	}

	ragChunks := make([]RagChunk, len(ragHits))
	for i, h := range ragHits {
		rc := RagChunk{Base: "code", Path: h.path, Text: h.text, DenseScore: h.fusedScore, Score: h.fusedScore}
		if h.reranked {
			rerankerScore := h.rerankScore
			rc.RerankerScore = &rerankerScore
			rc.Score = rerankerScore
		}
		ragChunks[i] = rc
	}
	memoryEvents := make([]MemoryEvent, len(memoryHits))
	for i, h := range memoryHits {
		var scope, source string
		var tags []string
		if h.memEntry != nil {
			scope, source, tags = string(h.memEntry.Scope), string(h.memEntry.Source), h.memEntry.Tags
		}
		memoryEvents[i] = MemoryEvent{ID: entryIDOf(h), Scope: scope, Source: source, Tags: tags, Text: h.text, Score: h.fusedScore}
	}

	kgResults, err := expandKnowledgeGraph(deps, ragChunks, cfg)
	if err != nil {
		return AskContextBundle{}, err
	}

	bundle := AskContextBundle{
		RevisionID:   head,
		Question:     question,
		Bases:        bases,
		RagChunks:    ragChunks,
		KgResults:    kgResults,
		MemoryEvents: memoryEvents,
		Debug: Debug{
			EmbeddingModelID: deps.Embedder.ModelID(),
			UsedBases:        bases,
			PerBaseCounts:    perBaseCounts,
			EmbedTimeMs:      embedMs,
			SearchTimeMs:     searchMs,
		},
	}

	totalHits := len(ragChunks) + len(memoryEvents)
	if err := appendAskLog(deps, question, bases, totalHits, now()); err != nil {
		return AskContextBundle{}, err
	}

	return bundle, nil
}

func entryIDOf(h hit) string {
	if h.memEntry != nil {
		return h.memEntry.ID
	}
	return ""
}

// resolveBases defaults to every indexed base with a ModelInfo compatible
// with the active embedding configuration, or filters to the requested
// set, refusing with BaseEmbeddingIncompatible when a requested base's
// stored model disagrees (§4.6 step 1).
func resolveBases(deps Dependencies, requested []string) ([]string, error) {
	basesDir := filepath.Join(deps.BranchDir, "bases")
	dirEntries, err := os.ReadDir(basesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gikerrors.New(gikerrors.BaseNotIndexed, "no bases have been indexed yet")
		}
		return nil, gikerrors.Wrap(gikerrors.IoFailed, err, "listing bases")
	}

	indexed := map[string]bool{}
	for _, e := range dirEntries {
		if e.IsDir() {
			indexed[e.Name()] = true
		}
	}

	want := requested
	if len(want) == 0 {
		for name := range indexed {
			want = append(want, name)
		}
		sort.Strings(want)
	}

	var out []string
	for _, base := range want {
		if !indexed[base] {
			return nil, gikerrors.Newf(gikerrors.BaseNotIndexed, "base %q has not been indexed", base).
				WithNextAction("run commit to index this base")
		}
		bstore := basestore.Open(filepath.Join(basesDir, base), base)
		info, err := bstore.ModelInfo()
		if err != nil {
			return nil, err
		}
		if info == nil {
			if len(requested) > 0 {
				return nil, gikerrors.Newf(gikerrors.BaseNotIndexed, "base %q has no embedding model recorded", base).
					WithNextAction("run commit to index this base")
			}
			continue
		}
		if info.ModelID != deps.Embedder.ModelID() || info.Dimension != deps.Embedder.Dimensions() {
			return nil, gikerrors.Newf(gikerrors.BaseEmbeddingIncompatible,
				"base %q was embedded with model %q, active model is %q", base, info.ModelID, deps.Embedder.ModelID()).
				WithNextAction("reindex the base")
		}
		out = append(out, base)
	}
	return out, nil
}

// expandQuery embeds the question plus any synthesized variants and
// averages them, the only allowed transform of the dense query vector
// (§4.6 step 2).
func expandQuery(embedder embedding.Provider, question string, variants []string) ([]float32, error) {
	texts := append([]string{question}, variants...)
	vecs, err := embedder.EmbedBatch(texts)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.EmbeddingProviderUnavailable, err, "embedding query for retrieval")
	}
	if len(vecs) == 1 {
		return vecs[0], nil
	}
	return embedding.Centroid(vecs)
}

// searchCodeBase runs dense + sparse search over one code/docs base and
// returns its hits already fused (§4.6 steps 3-5).
func searchCodeBase(deps Dependencies, base string, queryVec []float32, question string, densePool, sparsePool, rrfK int) ([]hit, error) {
	baseDir := filepath.Join(deps.BranchDir, "bases", base)
	bstore := basestore.Open(baseDir, base)

	entries, err := bstore.Entries()
	if err != nil {
		return nil, err
	}
	byVectorID := make(map[uint64]basestore.Entry, len(entries))
	for _, e := range entries {
		_, vecID := commit.ChunkID(e.Base, e.Path)
		byVectorID[vecID] = e
	}

	denseHits, sparseHits, err := denseAndSparse(deps, base, queryVec, question, densePool, sparsePool)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]*hit)
	var order []uint64
	addRank := func(vecID uint64, dense bool, rank int) {
		e, ok := byVectorID[vecID]
		if !ok {
			return
		}
		h, exists := byID[vecID]
		if !exists {
			h = &hit{vectorID: vecID, text: e.Text, path: e.Path}
			byID[vecID] = h
			order = append(order, vecID)
		}
		if dense {
			h.denseRank = rank
		} else {
			h.sparseRank = rank
		}
	}
	for i, d := range denseHits {
		addRank(d.ID, true, i+1)
	}
	for i, s := range sparseHits {
		addRank(s.DocID, false, i+1)
	}

	out := make([]hit, 0, len(order))
	for _, id := range order {
		h := byID[id]
		h.fusedScore = rrfScore(h.denseRank, h.sparseRank, rrfK)
		out = append(out, *h)
	}
	return out, nil
}

// searchMemoryBase mirrors searchCodeBase but resolves hits against
// memory.Store entries (keyed by memory.VectorID) so Scope/Source/Tags
// survive into the bundle's memoryEvents.
func searchMemoryBase(deps Dependencies, queryVec []float32, question string, densePool, sparsePool, rrfK int) ([]hit, error) {
	memDir := filepath.Join(deps.BranchDir, "bases", "memory")
	mstore := memory.Open(memDir)

	entries, err := mstore.Entries()
	if err != nil {
		return nil, err
	}
	byVectorID := make(map[uint64]memory.Entry, len(entries))
	for _, e := range entries {
		byVectorID[memory.VectorID(e.ID)] = e
	}

	denseHits, sparseHits, err := denseAndSparse(deps, "memory", queryVec, question, densePool, sparsePool)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]*hit)
	var order []uint64
	addRank := func(vecID uint64, dense bool, rank int) {
		e, ok := byVectorID[vecID]
		if !ok {
			return
		}
		h, exists := byID[vecID]
		if !exists {
			entryCopy := e
			h = &hit{vectorID: vecID, text: e.Text, memEntry: &entryCopy}
			byID[vecID] = h
			order = append(order, vecID)
		}
		if dense {
			h.denseRank = rank
		} else {
			h.sparseRank = rank
		}
	}
	for i, d := range denseHits {
		addRank(d.ID, true, i+1)
	}
	for i, s := range sparseHits {
		addRank(s.DocID, false, i+1)
	}

	out := make([]hit, 0, len(order))
	for _, id := range order {
		h := byID[id]
		h.fusedScore = rrfScore(h.denseRank, h.sparseRank, rrfK)
		out = append(out, *h)
	}
	return out, nil
}

func providerName(p embedding.Provider) string {
	type named interface{ Provider() string }
	if n, ok := p.(named); ok {
		return n.Provider()
	}
	return p.ModelID()
}

func denseAndSparse(deps Dependencies, base string, queryVec []float32, question string, densePool, sparsePool int) ([]vectorindex.ScoredRecord, []bm25.ScoredDoc, error) {
	adapter, err := deps.OpenVector(base, vectorindex.Meta{
		Dimension: deps.Embedder.Dimensions(), Metric: vectorindex.MetricCosine, Base: base,
		EmbeddingProvider: providerName(deps.Embedder), EmbeddingModelID: deps.Embedder.ModelID(),
	})
	if err != nil {
		return nil, nil, err
	}
	defer adapter.Close()

	denseHits, err := adapter.Query(queryVec, densePool)
	if err != nil {
		return nil, nil, err
	}

	bm25Path := filepath.Join(deps.BranchDir, "bases", base, "index", "bm25.bin")
	idx, err := bm25.Load(bm25Path)
	if err != nil {
		return nil, nil, gikerrors.Wrap(gikerrors.IoFailed, err, "loading bm25 index for "+base)
	}
	sparseHits := idx.Search(question, sparsePool)
	return denseHits, sparseHits, nil
}

// rrfScore implements reciprocal rank fusion (§4.6 step 5): a zero rank
// means the document was absent from that list and contributes nothing.
func rrfScore(denseRank, sparseRank, k int) float64 {
	var score float64
	if denseRank > 0 {
		score += 1.0 / float64(k+denseRank)
	}
	if sparseRank > 0 {
		score += 1.0 / float64(k+sparseRank)
	}
	return score
}

// applyFilenameBoost multiplies a code/docs hit's fused score when the
// question contains a filename-like token matching its path (§4.6 step 6).
func applyFilenameBoost(hits []hit, question string, boost float64) {
	tokens := filenameTokenPattern.FindAllString(question, -1)
	if len(tokens) == 0 {
		return
	}
	for i := range hits {
		for _, tok := range tokens {
			if strings.Contains(hits[i].path, tok) {
				hits[i].fusedScore *= boost
				break
			}
		}
	}
}

// applyFilenameBoostToMemory is a no-op today (memory entries carry no
// path), kept distinct from applyFilenameBoost so a future memory field
// (e.g. an originating file) can opt in without touching the code path.
func applyFilenameBoostToMemory(hits []hit, question string, boost float64) {}

func sortByFusedScore(hits []hit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].fusedScore > hits[j].fusedScore })
}

func sortByRerankScore(hits []hit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rerankScore > hits[j].rerankScore })
}

// rerankHits passes the top-N hits' text through the cross-encoder
// capability and resorts by the returned scores (§4.6 step 7).
func rerankHits(reranker rerank.Reranker, question string, hits []hit, topN int) ([]hit, error) {
	if reranker == nil || len(hits) == 0 {
		return hits, nil
	}
	n := topN
	if n > len(hits) {
		n = len(hits)
	}
	head := hits[:n]
	texts := make([]string, len(head))
	for i, h := range head {
		texts[i] = h.text
	}
	scores, err := reranker.Rerank(question, texts)
	if err != nil {
		return hits, err
	}
	for i := range head {
		head[i].rerankScore = scores[i]
		head[i].reranked = true
	}
	sortByRerankScore(head)
	out := make([]hit, 0, len(hits))
	out = append(out, head...)
	out = append(out, hits[n:]...)
	return out, nil
}

// expandKnowledgeGraph runs a bounded BFS from each distinct rag-chunk
// path's file node, emitting at most maxSubgraphs subgraphs (§4.6 step 9).
// A root already reached by an earlier subgraph is skipped; the subgraphs
// are not otherwise made disjoint, so a node reachable from two roots can
// appear in both.
func expandKnowledgeGraph(deps Dependencies, ragChunks []RagChunk, cfg config.RetrievalConfig) ([]KgSubgraph, error) {
	if len(ragChunks) == 0 {
		return nil, nil
	}
	store := kg.Open(filepath.Join(deps.BranchDir, "kg"))

	seenRoots := map[string]bool{}
	var roots []string
	for _, c := range ragChunks {
		root := kg.FileNodeID(c.Path)
		if !seenRoots[root] {
			seenRoots[root] = true
			roots = append(roots, root)
		}
	}

	var subgraphs []KgSubgraph
	visitedGlobally := map[string]bool{}
	for _, root := range roots {
		if len(subgraphs) >= cfg.MaxSubgraphs {
			break
		}
		if visitedGlobally[root] {
			continue
		}
		nodes, edges, err := bfs(store, root, cfg.MaxHops, cfg.MaxNodesPerSubgraph, cfg.MaxEdgesPerSubgraph)
		if err != nil {
			return nil, err
		}
		if len(nodes) == 0 {
			continue
		}
		for _, n := range nodes {
			visitedGlobally[n.ID] = true
		}
		subgraphs = append(subgraphs, KgSubgraph{
			Roots:  []string{root},
			Nodes:  nodes,
			Edges:  edges,
			Reason: "related to retrieved file " + strings.TrimPrefix(root, "file:"),
		})
	}
	return subgraphs, nil
}

// bfs walks outgoing edges from root up to maxHops deep, capping the
// subgraph at maxNodes nodes and maxEdges edges. maxHops=0 returns only
// the root with no edges.
func bfs(store *kg.Store, root string, maxHops, maxNodes, maxEdges int) ([]kg.Node, []kg.Edge, error) {
	allNodes, err := store.Nodes()
	if err != nil {
		return nil, nil, err
	}
	nodeByID := make(map[string]kg.Node, len(allNodes))
	for _, n := range allNodes {
		nodeByID[n.ID] = n
	}
	rootNode, ok := nodeByID[root]
	if !ok {
		return nil, nil, nil
	}

	visited := map[string]bool{root: true}
	type queued struct {
		id    string
		depth int
	}
	queue := []queued{{root, 0}}

	nodes := []kg.Node{rootNode}
	var edges []kg.Edge

	for len(queue) > 0 && len(nodes) < maxNodes && len(edges) < maxEdges {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxHops {
			continue
		}
		outgoing, err := store.EdgesFrom(cur.id)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range outgoing {
			if len(edges) >= maxEdges || len(nodes) >= maxNodes {
				break
			}
			edges = append(edges, e)
			if !visited[e.To] {
				visited[e.To] = true
				if n, ok := nodeByID[e.To]; ok {
					nodes = append(nodes, n)
				}
				queue = append(queue, queued{e.To, cur.depth + 1})
			}
		}
	}
	return nodes, edges, nil
}

// askLogEntry is one line appended to the branch-agnostic ask log
// (<knowledge-root>/asks/ask.log.jsonl), per §4.6 step 11.
type askLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Branch    string    `json:"branch"`
	Question  string    `json:"question"`
	Bases     []string  `json:"bases"`
	TotalHits int       `json:"totalHits"`
}

// appendAskLog appends one line to the ask log. Failed queries never call
// this (Run only reaches here after a successful search), matching "failed
// queries do not append" (§4.6 step 11).
func appendAskLog(deps Dependencies, question string, bases []string, totalHits int, now time.Time) error {
	knowledgeRoot := filepath.Dir(deps.BranchDir)
	path := filepath.Join(knowledgeRoot, "asks", "ask.log.jsonl")
	data, err := json.Marshal(askLogEntry{Timestamp: now, Branch: deps.Branch, Question: question, Bases: bases, TotalHits: totalHits})
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding ask log entry")
	}
	if err := fsutil.AppendLine(path, data); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending ask log entry")
	}
	return nil
}

func headOrEmpty(t *timeline.Timeline) (string, error) {
	if !t.Exists() {
		return "", nil
	}
	return t.Head()
}

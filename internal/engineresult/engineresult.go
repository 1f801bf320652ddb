// Package engineresult holds the structured result types internal/engine
// returns from every façade operation, so a CLI (or any other consumer)
// renders output without importing the pipeline packages directly. The ask
// result in particular mirrors retrieval.AskContextBundle field-for-field,
// keeping the shape stable even if the retrieval package's internals move.
package engineresult

import (
	"time"

	"gik/internal/kg"
	"gik/internal/memory"
	"gik/internal/release"
	"gik/internal/staging"
)

// InitResult is returned by Engine.Init.
type InitResult struct {
	AlreadyInitialized bool   `json:"alreadyInitialized"`
	RevisionID         string `json:"revisionId,omitempty"`
}

// AddResult is returned by Engine.Add.
type AddResult struct {
	Added         []staging.PendingSource `json:"added"`
	SkippedCount  int                     `json:"skippedCount"`
	Summary       staging.StagingSummary  `json:"summary"`
	MemoryIngest  *memory.IngestResult    `json:"memoryIngest,omitempty"`
	MemoryRevID   string                  `json:"memoryRevisionId,omitempty"`
}

// RemoveResult is returned by Engine.Remove.
type RemoveResult struct {
	RemovedCount int                    `json:"removedCount"`
	Summary      staging.StagingSummary `json:"summary"`
}

// RagChunk mirrors retrieval.RagChunk. Score is the final score used for
// ordering; DenseScore and RerankerScore are optional debug fields.
type RagChunk struct {
	Base          string   `json:"base"`
	Path          string   `json:"path"`
	Text          string   `json:"text"`
	Score         float64  `json:"score"`
	DenseScore    float64  `json:"denseScore"`
	RerankerScore *float64 `json:"rerankerScore,omitempty"`
}

// MemoryEvent mirrors retrieval.MemoryEvent.
type MemoryEvent struct {
	ID     string   `json:"id"`
	Scope  string   `json:"scope"`
	Source string   `json:"source"`
	Tags   []string `json:"tags,omitempty"`
	Text   string   `json:"text"`
	Score  float64  `json:"score"`
}

// KgSubgraph mirrors retrieval.KgSubgraph.
type KgSubgraph struct {
	Roots  []string  `json:"roots"`
	Nodes  []kg.Node `json:"nodes"`
	Edges  []kg.Edge `json:"edges"`
	Reason string    `json:"reason"`
}

// AskDebug mirrors retrieval.Debug.
type AskDebug struct {
	EmbeddingModelID string         `json:"embeddingModelId"`
	UsedBases        []string       `json:"usedBases"`
	PerBaseCounts    map[string]int `json:"perBaseCounts"`
	EmbedTimeMs      int64          `json:"embedTimeMs"`
	SearchTimeMs     int64          `json:"searchTimeMs"`
}

// AskContextBundle mirrors retrieval.AskContextBundle field-for-field, the
// shape Engine.Ask returns.
type AskContextBundle struct {
	RevisionID   string        `json:"revisionId"`
	Question     string        `json:"question"`
	Bases        []string      `json:"bases"`
	RagChunks    []RagChunk    `json:"ragChunks"`
	KgResults    []KgSubgraph  `json:"kgResults"`
	MemoryEvents []MemoryEvent `json:"memoryEvents"`
	Debug        AskDebug      `json:"debug"`
}

// BaseHealth is the derived per-base health state (§4.11).
type BaseHealth string

const (
	HealthHealthy      BaseHealth = "Healthy"
	HealthNeedsReindex BaseHealth = "NeedsReindex"
	HealthMissingModel BaseHealth = "MissingModel"
	HealthIndexMissing BaseHealth = "IndexMissing"
	HealthError        BaseHealth = "Error"
)

// EmbeddingStatus classifies a base's stored model against the active
// embedding configuration.
type EmbeddingStatus string

const (
	EmbeddingCompatible EmbeddingStatus = "compatible"
	EmbeddingMissing    EmbeddingStatus = "missing"
	EmbeddingMismatch   EmbeddingStatus = "mismatch"
)

// IndexStatus classifies a base's vector index against the active backend
// and embedding configuration.
type IndexStatus string

const (
	IndexCompatible        IndexStatus = "compatible"
	IndexMissing           IndexStatus = "missing"
	IndexDimensionMismatch IndexStatus = "dimension_mismatch"
	IndexBackendMismatch   IndexStatus = "backend_mismatch"
	IndexEmbeddingMismatch IndexStatus = "embedding_mismatch"
)

// DeriveHealth implements the §4.11 truth table relating embedding/index
// status to the overall base health.
func DeriveHealth(embeddingStatus EmbeddingStatus, indexStatus IndexStatus) BaseHealth {
	switch {
	case embeddingStatus == EmbeddingMissing && indexStatus == IndexMissing:
		return HealthIndexMissing
	case embeddingStatus == EmbeddingMissing:
		return HealthMissingModel
	case embeddingStatus == EmbeddingMismatch:
		return HealthNeedsReindex
	case embeddingStatus == EmbeddingCompatible && indexStatus == IndexMissing:
		return HealthIndexMissing
	case embeddingStatus == EmbeddingCompatible && indexStatus == IndexCompatible:
		return HealthHealthy
	case embeddingStatus == EmbeddingCompatible:
		// any index mismatch variant (dimension/backend/embedding)
		return HealthNeedsReindex
	default:
		return HealthError
	}
}

// BaseStatus is one base's row in the status report (§4.11).
type BaseStatus struct {
	Base            string          `json:"base"`
	Documents       int             `json:"documents"`
	Vectors         int             `json:"vectors"`
	Files           int             `json:"files"`
	OnDiskBytes     int64           `json:"onDiskBytes"`
	LastCommit      time.Time       `json:"lastCommit"`
	EmbeddingStatus EmbeddingStatus `json:"embeddingStatus"`
	IndexStatus     IndexStatus     `json:"indexStatus"`
	Health          BaseHealth      `json:"health"`
	Error           string          `json:"error,omitempty"`
}

// StackSummary is the subset of stack.Stats the status report surfaces.
type StackSummary struct {
	TotalFiles  int            `json:"totalFiles"`
	Languages   map[string]int `json:"languages"`
	Managers    []string       `json:"managers"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// StatusReport is returned by Engine.Status.
type StatusReport struct {
	Branch  string                 `json:"branch"`
	Head    string                 `json:"head,omitempty"`
	Staging staging.StagingSummary `json:"staging"`
	Stack   StackSummary           `json:"stack"`
	Bases   []BaseStatus           `json:"bases"`
}

// RevisionView is returned by Engine.Show.
type RevisionView struct {
	RevisionID string    `json:"revisionId"`
	ParentID   string    `json:"parentId,omitempty"`
	Branch     string    `json:"branch"`
	Timestamp  time.Time `json:"timestamp"`
	Message    string    `json:"message,omitempty"`
	Operations []string  `json:"operations"`
	Bases      []string  `json:"bases"`
	KgDOT      string    `json:"kgDot,omitempty"`
	KgBlock    string    `json:"kgBlock,omitempty"`
}

// ReleaseSummary is an alias for release.Summary, kept in this package so
// callers reach changelog output the same way as every other result.
type ReleaseSummary = release.Summary

// MemoryMetricsResult is returned by Engine.MemoryMetrics.
type MemoryMetricsResult struct {
	Metrics memory.Metrics `json:"metrics"`
}

// MemoryPruneResult is returned by Engine.MemoryPrune.
type MemoryPruneResult struct {
	Result     memory.PruneResult `json:"result"`
	RevisionID string              `json:"revisionId,omitempty"`
}

// Package timeline implements the append-only revision log that records
// every mutation to a branch: HEAD tracking, ref resolution (HEAD, HEAD~N,
// id prefix), and the between-two-revisions walk used by release.
package timeline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OperationType tags the kind of change a Revision records.
type OperationType string

const (
	OpInit         OperationType = "Init"
	OpCommit       OperationType = "Commit"
	OpMemoryIngest OperationType = "MemoryIngest"
	OpMemoryPrune  OperationType = "MemoryPrune"
	OpReindex      OperationType = "Reindex"
	OpRelease      OperationType = "Release"
	OpCustom       OperationType = "Custom"
)

// Operation is a tagged union over the operation kinds a Revision can
// record. Unknown Type values are preserved verbatim (round-tripped through
// JSON) rather than rejected, so a future operation kind does not corrupt
// older readers' view of the log.
type Operation struct {
	Type OperationType `json:"type"`

	// Commit
	Bases       []string `json:"bases,omitempty"`
	SourceCount int      `json:"sourceCount,omitempty"`

	// MemoryIngest / MemoryPrune
	Count         int `json:"count,omitempty"`
	ArchivedCount int `json:"archivedCount,omitempty"`
	DeletedCount  int `json:"deletedCount,omitempty"`

	// Reindex
	Base        string `json:"base,omitempty"`
	FromModelID string `json:"fromModelId,omitempty"`
	ToModelID   string `json:"toModelId,omitempty"`

	// Release
	Tag string `json:"tag,omitempty"`

	// Custom
	Name string          `json:"name,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// InitOp builds the single operation carried by an Init revision.
func InitOp() Operation { return Operation{Type: OpInit} }

// CommitOp builds a Commit operation.
func CommitOp(bases []string, sourceCount int) Operation {
	return Operation{Type: OpCommit, Bases: bases, SourceCount: sourceCount}
}

// MemoryIngestOp builds a MemoryIngest operation.
func MemoryIngestOp(count int) Operation {
	return Operation{Type: OpMemoryIngest, Count: count}
}

// MemoryPruneOp builds a MemoryPrune operation.
func MemoryPruneOp(count, archived, deleted int) Operation {
	return Operation{Type: OpMemoryPrune, Count: count, ArchivedCount: archived, DeletedCount: deleted}
}

// ReindexOp builds a Reindex operation.
func ReindexOp(base, fromModelID, toModelID string) Operation {
	return Operation{Type: OpReindex, Base: base, FromModelID: fromModelID, ToModelID: toModelID}
}

// ReleaseOp builds a Release operation. Reserved: the release command in
// §4.12 is read-only and never emits this; a future "record release"
// behavior could.
func ReleaseOp(tag string) Operation {
	return Operation{Type: OpRelease, Tag: tag}
}

// CustomOp builds a Custom operation carrying arbitrary data.
func CustomOp(name string, data json.RawMessage) Operation {
	return Operation{Type: OpCustom, Name: name, Data: data}
}

// Revision is one immutable entry in a branch's timeline.
type Revision struct {
	ID         string      `json:"id"`
	ParentID   string      `json:"parentId,omitempty"`
	Branch     string      `json:"branch"`
	GitCommit  string      `json:"gitCommit,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Message    string      `json:"message,omitempty"`
	Operations []Operation `json:"operations"`
}

// NewRevision builds a Revision with a fresh id and the given timestamp
// (callers supply now() so the timeline package stays deterministic for
// tests and so workflow code can stamp times consistently).
func NewRevision(parentID, branch, gitCommit, message string, now time.Time, ops ...Operation) Revision {
	return Revision{
		ID:         uuid.NewString(),
		ParentID:   parentID,
		Branch:     branch,
		GitCommit:  gitCommit,
		Timestamp:  now.UTC(),
		Message:    message,
		Operations: ops,
	}
}

// IsInit reports whether rev carries an Init operation (the only kind
// permitted to have no parent).
func (r Revision) IsInit() bool {
	for _, op := range r.Operations {
		if op.Type == OpInit {
			return true
		}
	}
	return false
}

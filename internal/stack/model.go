// Package stack scans a workspace for its file tree, declared
// dependencies, and detectable technologies, persisting the result as the
// branch-level "stack" inventory (distinct from code/docs/memory bases: it
// has no vector index, only the JSONL/stats shape in §6).
package stack

import "time"

// FileEntryKind distinguishes a directory entry from a file entry.
type FileEntryKind string

const (
	KindDir  FileEntryKind = "Dir"
	KindFile FileEntryKind = "File"
)

// FileEntry is one path in the workspace's file tree.
type FileEntry struct {
	Path      string        `json:"path"`
	Kind      FileEntryKind `json:"kind"`
	Languages []string      `json:"languages,omitempty"`
	FileCount *int          `json:"fileCount,omitempty"`
}

// DependencyEntry is one dependency declared by a manifest file.
type DependencyEntry struct {
	Manager      string `json:"manager"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	Scope        string `json:"scope"`
	ManifestPath string `json:"manifestPath"`
}

// TechEntry is one detected technology, framework, or tool.
type TechEntry struct {
	Kind       string  `json:"kind"`
	Name       string  `json:"name"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Stats summarizes a scan.
type Stats struct {
	TotalFiles  int            `json:"totalFiles"`
	Languages   map[string]int `json:"languages"`
	Managers    []string       `json:"managers"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

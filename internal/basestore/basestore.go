// Package basestore implements the per-base bookkeeping shared by every
// base except memory, stack, and kg (which have their own stores): the
// chunk entry log (sources.jsonl), aggregate stats (stats.json), and the
// embedding ModelInfo persisted in meta.json, per spec §3's Base and
// ModelInfo definitions and §6's on-disk layout
// (bases/<name>/{sources.jsonl,stats.json,meta.json,index/…}).
package basestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

// Entry is one indexed chunk: a unit derived from a source file, carrying
// its path and line range. If Text is absent, a consumer must reconstruct
// it by re-reading [StartLine, EndLine] from Path.
type Entry struct {
	ID        string          `json:"id"`
	Base      string          `json:"base"`
	Path      string          `json:"path"`
	StartLine int             `json:"startLine"`
	EndLine   int             `json:"endLine"`
	Text      string          `json:"text,omitempty"`
	Extra     json.RawMessage `json:"extra,omitempty"`
}

// Validate enforces invariant: startLine <= endLine.
func (e Entry) Validate() error {
	if e.StartLine > e.EndLine {
		return gikerrors.Newf(gikerrors.SerializationFailed, "chunk %s has startLine %d > endLine %d", e.ID, e.StartLine, e.EndLine)
	}
	return nil
}

// ModelInfo records which embedding model produced a base's vectors,
// compared against the active embedding configuration to gate queries and
// commits (§4.4 step 1, §4.6 step 1).
type ModelInfo struct {
	Provider       string     `json:"provider"`
	ModelID        string     `json:"modelId"`
	Dimension      int        `json:"dimension"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastReindexedAt *time.Time `json:"lastReindexedAt,omitempty"`
}

// Stats summarizes a base's sources.jsonl.
type Stats struct {
	ChunkCount  int       `json:"chunkCount"`
	FileCount   int       `json:"fileCount"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Store roots the bookkeeping for one base directory
// (<branch>/bases/<name>).
type Store struct {
	dir  string
	base string
}

// Open returns a Store for the given base directory and base name.
func Open(dir, base string) *Store {
	return &Store{dir: dir, base: base}
}

func (s *Store) sourcesPath() string { return filepath.Join(s.dir, "sources.jsonl") }
func (s *Store) statsPath() string   { return filepath.Join(s.dir, "stats.json") }
func (s *Store) metaPath() string    { return filepath.Join(s.dir, "meta.json") }
func (s *Store) IndexDir() string    { return filepath.Join(s.dir, "index") }

// Entries returns the current chunk for every id recorded in this base's
// log, in first-seen order, folding the append-only log down to each
// entry id's most recent record so that re-committing an unchanged file
// (same ChunkID, fresh text) overwrites rather than duplicates. Tolerant
// of a partially written trailing record.
func (s *Store) Entries() ([]Entry, error) {
	var order []string
	latest := make(map[string]Entry)
	err := fsutil.ReadJSONLines(s.sourcesPath(), func(line []byte) error {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing base source entry")
		}
		if _, seen := latest[e.ID]; !seen {
			order = append(order, e.ID)
		}
		latest[e.ID] = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}

// AppendEntries appends a batch of chunks to sources.jsonl. Per §4.4 step
// 8, this happens once a whole commit's base-level writes are known to be
// durable, never interleaved with a failing in-flight commit.
func (s *Store) AppendEntries(entries []Entry) error {
	var buf []byte
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		data, err := json.Marshal(e)
		if err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding base source entry")
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	if len(buf) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "creating base directory")
	}
	f, err := os.OpenFile(s.sourcesPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "opening sources.jsonl for append")
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending base source entries")
	}
	return f.Sync()
}

// ReplaceEntries rewrites sources.jsonl from scratch, used by reindex
// (content is unchanged, but a rewrite keeps the atomic-substitution point
// shared with the vector/BM25 rebuild per §4.5 step 3).
func (s *Store) ReplaceEntries(entries []Entry) error {
	var buf []byte
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding base source entry")
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	return fsutil.WriteFileAtomic(s.sourcesPath(), buf, 0o644)
}

// RecomputeStats derives Stats from the current entries and persists them.
func (s *Store) RecomputeStats(now time.Time) (Stats, error) {
	entries, err := s.Entries()
	if err != nil {
		return Stats{}, err
	}
	paths := make(map[string]bool)
	for _, e := range entries {
		paths[e.Path] = true
	}
	stats := Stats{ChunkCount: len(entries), FileCount: len(paths), LastUpdated: now}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return Stats{}, gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding base stats")
	}
	if err := fsutil.WriteFileAtomic(s.statsPath(), data, 0o644); err != nil {
		return Stats{}, gikerrors.Wrap(gikerrors.IoFailed, err, "writing base stats")
	}
	return stats, nil
}

// Stats reads the persisted stats.json, returning a zero Stats if absent.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	data, err := os.ReadFile(s.statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, gikerrors.Wrap(gikerrors.IoFailed, err, "reading base stats")
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing base stats")
	}
	return stats, nil
}

// ModelInfo reads the persisted meta.json, returning (nil, nil) if this
// base has never been written to (a fresh base per §4.4 step 1).
func (s *Store) ModelInfo() (*ModelInfo, error) {
	data, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, gikerrors.Wrap(gikerrors.IoFailed, err, "reading base model info")
	}
	var m ModelInfo
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing base model info")
	}
	return &m, nil
}

// SaveModelInfo atomically writes meta.json.
func (s *Store) SaveModelInfo(m ModelInfo) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding base model info")
	}
	if err := fsutil.WriteFileAtomic(s.metaPath(), data, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing base model info")
	}
	return nil
}

// OnDiskBytes sums the size of sources.jsonl, stats.json, meta.json, and
// everything under index/, for the status report's per-base onDiskBytes
// field (§4.11).
func (s *Store) OnDiskBytes() (int64, error) {
	var total int64
	for _, p := range []string{s.sourcesPath(), s.statsPath(), s.metaPath()} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	_ = filepath.WalkDir(s.IndexDir(), func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, statErr := d.Info(); statErr == nil {
			total += info.Size()
		}
		return nil
	})
	return total, nil
}

// SortedByID returns entries sorted by id, used where deterministic
// ordering matters for reindex/retrieval fixtures.
func SortedByID(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Package staging implements the pending-source lifecycle: a file-backed,
// append-mostly log of sources waiting to be committed, plus the summary
// recomputed on every mutation.
package staging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

// Kind classifies a pending source by how it was referenced.
type Kind string

const (
	KindFilePath  Kind = "filePath"
	KindDirectory Kind = "directory"
	KindURL       Kind = "url"
	KindArchive   Kind = "archive"
	KindOther     Kind = "other"
)

// Status is a PendingSource's lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIndexed    Status = "indexed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether s is a terminal status (indexed or failed).
// Invariant 5: no PendingSource with a terminal status ever returns to a
// non-terminal one.
func (s Status) IsTerminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// PendingSource is one staged item awaiting ingestion.
type PendingSource struct {
	ID        string            `json:"id"`
	Branch    string            `json:"branch"`
	Base      string            `json:"base"`
	Kind      Kind              `json:"kind"`
	URI       string            `json:"uri"`
	AddedAt   time.Time         `json:"addedAt"`
	Status    Status            `json:"status"`
	LastError string            `json:"lastError,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// dedupKey returns this source's dedup key per §4.3: (branch, base,
// normalized-uri).
func (p PendingSource) dedupKey() string {
	return dedupKey(p.Branch, p.Base, NormalizeURI(p.URI))
}

func dedupKey(branch, base, normalizedURI string) string {
	return branch + "\x00" + base + "\x00" + normalizedURI
}

// NormalizeURI canonicalizes a URI for dedup comparison: trims whitespace
// and strips a trailing slash from http(s) URLs and filesystem paths (the
// latter also get '/' separators). Case is left unchanged.
func NormalizeURI(uri string) string {
	u := strings.TrimSpace(uri)
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return strings.TrimSuffix(u, "/")
	}
	u = filepath.ToSlash(u)
	if len(u) > 1 {
		u = strings.TrimSuffix(u, "/")
	}
	return u
}

// sourceCodeExtensions and docExtensions drive base inference for filePath
// sources when the caller did not specify a base explicitly.
var sourceCodeExtensions = map[string]bool{
	".go": true, ".rs": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".java": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true,
	".rb": true, ".php": true, ".cs": true, ".swift": true, ".kt": true, ".scala": true,
	".sh": true, ".sql": true, ".vue": true, ".svelte": true, ".html": true, ".css": true,
}

var docExtensions = map[string]bool{
	".md": true, ".mdx": true, ".rst": true, ".txt": true, ".adoc": true,
}

var archiveExtensions = []string{".zip", ".tar", ".tar.gz", ".tgz"}

// InferKind determines a source's Kind from its URI.
func InferKind(uri string) Kind {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return KindURL
	}
	lower := strings.ToLower(uri)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return KindArchive
		}
	}
	if info, err := os.Stat(uri); err == nil {
		if info.IsDir() {
			return KindDirectory
		}
		return KindFilePath
	}
	return KindOther
}

// InferBase determines the target base for a source when the caller did
// not specify one: url -> docs; directory -> code; file by extension map;
// anything else defaults to code.
func InferBase(uri string, kind Kind) string {
	switch kind {
	case KindURL:
		return "docs"
	case KindDirectory:
		return "code"
	case KindFilePath:
		ext := strings.ToLower(filepath.Ext(uri))
		if docExtensions[ext] {
			return "docs"
		}
		return "code"
	default:
		return "code"
	}
}

// StagingSummary is the aggregate over the pending log, recomputed and
// persisted on every mutation (invariant 4).
type StagingSummary struct {
	PendingCount  int            `json:"pendingCount"`
	IndexedCount  int            `json:"indexedCount"`
	FailedCount   int            `json:"failedCount"`
	ByBase        map[string]int `json:"byBase"`
	LastUpdatedAt time.Time      `json:"lastUpdatedAt"`
}

// Store is the pending-source log rooted at <branch>/staging.
type Store struct {
	dir string
}

// Open returns a Store for the staging directory under a branch directory.
func Open(branchDir string) *Store {
	return &Store{dir: filepath.Join(branchDir, "staging")}
}

func (s *Store) pendingPath() string { return filepath.Join(s.dir, "pending.jsonl") }
func (s *Store) summaryPath() string { return filepath.Join(s.dir, "summary.json") }

// List returns every pending source in log order, tolerant of a partial
// trailing record.
func (s *Store) List() ([]PendingSource, error) {
	var out []PendingSource
	err := fsutil.ReadJSONLines(s.pendingPath(), func(line []byte) error {
		var p PendingSource
		if err := json.Unmarshal(line, &p); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "decoding pending source")
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Filter narrows a list of pending sources by branch/base/status, leaving a
// zero-value field unconstrained.
type Filter struct {
	Branch string
	Base   string
	Status Status
}

func (f Filter) matches(p PendingSource) bool {
	if f.Branch != "" && p.Branch != f.Branch {
		return false
	}
	if f.Base != "" && p.Base != f.Base {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// ListFiltered returns pending sources matching f.
func (s *Store) ListFiltered(f Filter) ([]PendingSource, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []PendingSource
	for _, p := range all {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// latestByID folds the append-only log down to each id's most recent
// record, since status transitions are appended rather than rewritten
// in-place.
func latestByID(all []PendingSource) map[string]PendingSource {
	latest := make(map[string]PendingSource, len(all))
	for _, p := range all {
		latest[p.ID] = p
	}
	return latest
}

// AddPending appends a new pending source after inferring kind/base where
// absent and checking the (branch, base, normalized-uri) dedup key against
// any pending or processing entry. Returns the created record, or the
// existing one (ok=false) if it was a duplicate.
func (s *Store) AddPending(branch, uri, base string, metadata map[string]string) (PendingSource, bool, error) {
	all, err := s.List()
	if err != nil {
		return PendingSource{}, false, err
	}
	latest := latestByID(all)

	kind := InferKind(uri)
	if base == "" {
		base = InferBase(uri, kind)
	}
	normalized := NormalizeURI(uri)

	for _, p := range latest {
		if p.Branch == branch && p.Base == base && NormalizeURI(p.URI) == normalized {
			if p.Status == StatusPending || p.Status == StatusProcessing {
				return p, false, nil
			}
		}
	}

	entry := PendingSource{
		ID:       uuid.NewString(),
		Branch:   branch,
		Base:     base,
		Kind:     kind,
		URI:      uri,
		AddedAt:  time.Now().UTC(),
		Status:   StatusPending,
		Metadata: metadata,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return PendingSource{}, false, gikerrors.Wrap(gikerrors.SerializationFailed, err, "marshalling pending source")
	}
	if err := fsutil.AppendLine(s.pendingPath(), data); err != nil {
		return PendingSource{}, false, gikerrors.Wrap(gikerrors.IoFailed, err, "appending pending source")
	}
	if err := s.recomputeAndPersist(); err != nil {
		return PendingSource{}, false, err
	}
	return entry, true, nil
}

// Remove rewrites the pending log without the matching non-terminal
// entries, keeping each remaining id's latest record; terminal entries stay
// for audit. Never touches already-committed content; only affects the
// staging log.
func (s *Store) Remove(ids []string) (int, error) {
	all, err := s.List()
	if err != nil {
		return 0, err
	}
	toRemove := make(map[string]bool, len(ids))
	for _, id := range ids {
		toRemove[id] = true
	}

	latest := latestByID(all)
	var kept []PendingSource
	removed := 0
	seen := make(map[string]bool)
	for _, p := range all {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		cur := latest[p.ID]
		if toRemove[cur.ID] && !cur.Status.IsTerminal() {
			removed++
			continue
		}
		kept = append(kept, cur)
	}

	if err := s.rewrite(kept); err != nil {
		return 0, err
	}
	if err := s.recomputeAndPersist(); err != nil {
		return 0, err
	}
	return removed, nil
}

// MarkStatus appends a status-transition record for id. Terminal entries
// remain in the log for audit (the chosen resolution of the open question
// between "clear after commit" and "preserve for audit" — see DESIGN.md).
func (s *Store) MarkStatus(id string, status Status, lastError string) error {
	all, err := s.List()
	if err != nil {
		return err
	}
	latest := latestByID(all)
	cur, ok := latest[id]
	if !ok {
		return gikerrors.Newf(gikerrors.SourceNotFound, "pending source %s not found", id)
	}
	if cur.Status.IsTerminal() {
		return gikerrors.Newf(gikerrors.SourceNotFound, "pending source %s is already terminal (%s)", id, cur.Status)
	}

	cur.Status = status
	cur.LastError = lastError
	data, err := json.Marshal(cur)
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "marshalling pending source")
	}
	if err := fsutil.AppendLine(s.pendingPath(), data); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending status transition")
	}
	return s.recomputeAndPersist()
}

func (s *Store) rewrite(entries []PendingSource) error {
	var buf []byte
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "marshalling pending source")
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	return fsutil.WriteFileAtomic(s.pendingPath(), buf, 0o644)
}

// Summary recomputes StagingSummary from the pending log (invariant 4:
// must equal the persisted summary after any successful mutation).
func (s *Store) Summary() (StagingSummary, error) {
	all, err := s.List()
	if err != nil {
		return StagingSummary{}, err
	}
	latest := latestByID(all)

	summary := StagingSummary{ByBase: map[string]int{}}
	for _, p := range latest {
		switch p.Status {
		case StatusPending, StatusProcessing:
			summary.PendingCount++
			summary.ByBase[p.Base]++
		case StatusIndexed:
			summary.IndexedCount++
		case StatusFailed:
			summary.FailedCount++
		}
	}
	summary.LastUpdatedAt = time.Now().UTC()
	return summary, nil
}

func (s *Store) recomputeAndPersist() error {
	summary, err := s.Summary()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "marshalling staging summary")
	}
	return fsutil.WriteFileAtomic(s.summaryPath(), data, 0o644)
}

// Pending returns the latest record for every id currently pending or
// processing, sorted by AddedAt for deterministic commit-pipeline ordering.
func (s *Store) Pending() ([]PendingSource, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	latest := latestByID(all)
	var out []PendingSource
	for _, p := range latest {
		if !p.Status.IsTerminal() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}

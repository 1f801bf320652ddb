package memory

import (
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"sort"
	"time"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"

	"golang.org/x/crypto/blake2b"
)

// Store persists the memory base as an append-only entries.jsonl log (one
// record per ingest or update, folded to the latest version per id) plus an
// archive.jsonl for entries pruned under archive mode.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir (the workspace's memory/ directory). It
// does not touch the filesystem.
func Open(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) entriesPath() string { return filepath.Join(s.dir, "entries.jsonl") }
func (s *Store) archivePath() string { return filepath.Join(s.dir, "archive.jsonl") }
func (s *Store) sourcesPath() string { return filepath.Join(s.dir, "sources.jsonl") }

// Entries returns every live entry, folding the append-only log down to the
// latest version of each id. Entries removed by Delete do not reappear.
func (s *Store) Entries() ([]Entry, error) {
	latest := make(map[string]Entry)
	tombstoned := make(map[string]bool)
	var order []string
	err := fsutil.ReadJSONLines(s.entriesPath(), func(line []byte) error {
		var rec entryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing memory entry")
		}
		if rec.Deleted {
			tombstoned[rec.Entry.ID] = true
			return nil
		}
		tombstoned[rec.Entry.ID] = false
		if _, seen := latest[rec.Entry.ID]; !seen {
			order = append(order, rec.Entry.ID)
		}
		latest[rec.Entry.ID] = rec.Entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(order))
	for _, id := range order {
		if tombstoned[id] {
			continue
		}
		out = append(out, latest[id])
	}
	return out, nil
}

type entryRecord struct {
	Entry   Entry `json:"entry"`
	Deleted bool  `json:"deleted,omitempty"`
}

// Append ingests a new memory entry, stamping CreatedAt/UpdatedAt if unset.
func (s *Store) Append(e Entry, now time.Time) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	return s.writeRecord(entryRecord{Entry: e})
}

// Delete tombstones an entry so it no longer appears in Entries(). Used by
// pruning's delete mode.
func (s *Store) Delete(id string, now time.Time) error {
	entries, err := s.Entries()
	if err != nil {
		return err
	}
	var found Entry
	for _, e := range entries {
		if e.ID == id {
			found = e
			break
		}
	}
	found.ID = id
	found.UpdatedAt = now
	return s.writeRecord(entryRecord{Entry: found, Deleted: true})
}

// Archive tombstones an entry from the live log and appends it to
// archive.jsonl. Used by pruning's archive mode.
func (s *Store) Archive(e Entry, now time.Time) error {
	data, err := json.Marshal(e)
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding archived memory entry")
	}
	if err := fsutil.AppendLine(s.archivePath(), data); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending memory archive")
	}
	return s.Delete(e.ID, now)
}

func (s *Store) writeRecord(rec entryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding memory entry")
	}
	if err := fsutil.AppendLine(s.entriesPath(), data); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending memory entry")
	}
	return nil
}

// Archived returns every entry moved to archive.jsonl.
func (s *Store) Archived() ([]Entry, error) {
	var out []Entry
	err := fsutil.ReadJSONLines(s.archivePath(), func(line []byte) error {
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing archived memory entry")
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// RecordSource appends a source-attribution line for an ingested entry to
// sources.jsonl, mirroring how other bases track provenance for retrieval.
func (s *Store) RecordSource(entryID, originRevision string, now time.Time) error {
	rec := map[string]any{
		"entryId":        entryID,
		"originRevision": originRevision,
		"recordedAt":     now,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding memory source record")
	}
	if err := fsutil.AppendLine(s.sourcesPath(), data); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending memory source record")
	}
	return nil
}

// Fingerprint derives a deduplication key from an entry's scope and text.
// Two entries with the same scope and identical text fingerprint
// identically regardless of id, letting callers detect a duplicate note
// before it is ingested a second time. blake2b-256 matches the digest used
// elsewhere in the engine for content fingerprints.
func Fingerprint(scope Scope, text string) string {
	sum := blake2b.Sum256([]byte(string(scope) + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}

// FindByFingerprint returns the id of a live entry matching fp, if any.
func (s *Store) FindByFingerprint(fp string) (string, error) {
	entries, err := s.Entries()
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if Fingerprint(e.Scope, e.Text) == fp {
			return e.ID, nil
		}
	}
	return "", nil
}

// sortedByCreatedAt returns entries sorted oldest-first, breaking ties by id
// for determinism.
func sortedByCreatedAt(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

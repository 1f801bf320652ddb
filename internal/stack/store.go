package stack

import (
	"encoding/json"
	"os"
	"path/filepath"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

// Store persists one branch's stack inventory: files.jsonl,
// dependencies.jsonl, tech.jsonl, and stats.json.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir (the branch's stack/ directory).
func Open(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) filesPath() string { return filepath.Join(s.dir, "files.jsonl") }
func (s *Store) depsPath() string  { return filepath.Join(s.dir, "dependencies.jsonl") }
func (s *Store) techPath() string  { return filepath.Join(s.dir, "tech.jsonl") }
func (s *Store) statsPath() string { return filepath.Join(s.dir, "stats.json") }

// Save replaces the stack inventory with the given scan Result.
func (s *Store) Save(result Result) error {
	if err := writeJSONL(s.filesPath(), result.Files); err != nil {
		return err
	}
	if err := writeJSONL(s.depsPath(), result.Dependencies); err != nil {
		return err
	}
	if err := writeJSONL(s.techPath(), result.Tech); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result.Stats, "", "  ")
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding stack stats")
	}
	if err := fsutil.WriteFileAtomic(s.statsPath(), data, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing stack stats")
	}
	return nil
}

// Stats reads the persisted stats.json, returning a zero Stats if absent.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	data, err := os.ReadFile(s.statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, gikerrors.Wrap(gikerrors.IoFailed, err, "reading stack stats")
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing stack stats")
	}
	return stats, nil
}

// Files reads back the persisted file tree.
func (s *Store) Files() ([]FileEntry, error) {
	var out []FileEntry
	err := fsutil.ReadJSONLines(s.filesPath(), func(line []byte) error {
		var e FileEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing stack file entry")
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Dependencies reads back the persisted dependency list.
func (s *Store) Dependencies() ([]DependencyEntry, error) {
	var out []DependencyEntry
	err := fsutil.ReadJSONLines(s.depsPath(), func(line []byte) error {
		var e DependencyEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing stack dependency entry")
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Tech reads back the persisted tech list.
func (s *Store) Tech() ([]TechEntry, error) {
	var out []TechEntry
	err := fsutil.ReadJSONLines(s.techPath(), func(line []byte) error {
		var e TechEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "parsing stack tech entry")
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func writeJSONL[T any](path string, entries []T) error {
	var buf []byte
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding stack entry")
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	if err := fsutil.WriteFileAtomic(path, buf, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing "+path)
	}
	return nil
}

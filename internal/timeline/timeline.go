package timeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

const (
	logFileName  = "timeline.jsonl"
	headFileName = "HEAD"
)

// Timeline is the append-only revision log for a single branch directory.
type Timeline struct {
	dir string
}

// Open returns a Timeline rooted at branchDir (the directory named after
// the branch under the knowledge root).
func Open(branchDir string) *Timeline {
	return &Timeline{dir: branchDir}
}

func (t *Timeline) logPath() string  { return filepath.Join(t.dir, logFileName) }
func (t *Timeline) headPath() string { return filepath.Join(t.dir, headFileName) }

// Head reads the HEAD file. Returns NotInitialized if it does not exist.
func (t *Timeline) Head() (string, error) {
	data, err := os.ReadFile(t.headPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", gikerrors.New(gikerrors.NotInitialized, "no HEAD revision; run init first")
		}
		return "", gikerrors.Wrap(gikerrors.IoFailed, err, "reading HEAD")
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", gikerrors.New(gikerrors.TimelineCorrupt, "HEAD file is empty")
	}
	return id, nil
}

// Exists reports whether this branch has been initialized (HEAD present).
func (t *Timeline) Exists() bool {
	_, err := os.Stat(t.headPath())
	return err == nil
}

// Append writes rev to the log and advances HEAD to rev.ID, both under an
// exclusive lock so concurrent appenders serialize. Validates that an Init
// revision has no parent and a non-Init revision's parent is present in the
// log (invariant 2 of the testable properties).
func (t *Timeline) Append(rev Revision) error {
	lock, err := fsutil.AcquireLock(t.dir, "timeline")
	if err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "acquiring timeline lock")
	}
	defer lock.Release()

	if rev.IsInit() {
		if rev.ParentID != "" {
			return gikerrors.New(gikerrors.TimelineCorrupt, "an Init revision must not have a parent")
		}
	} else {
		if rev.ParentID == "" {
			return gikerrors.New(gikerrors.TimelineCorrupt, "a non-Init revision must have a parent")
		}
		if _, ok, err := t.getLocked(rev.ParentID); err != nil {
			return err
		} else if !ok {
			return gikerrors.Newf(gikerrors.TimelineCorrupt, "parent revision %s not found in timeline", rev.ParentID)
		}
	}

	data, err := json.Marshal(rev)
	if err != nil {
		return gikerrors.Wrap(gikerrors.SerializationFailed, err, "marshalling revision")
	}
	if err := fsutil.AppendLine(t.logPath(), data); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "appending revision to timeline")
	}
	if err := fsutil.WriteFileAtomic(t.headPath(), []byte(rev.ID), 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing HEAD")
	}
	return nil
}

// Load returns every revision in append order. A partially written
// trailing record is silently dropped by fsutil.ReadJSONLines.
func (t *Timeline) Load() ([]Revision, error) {
	var revs []Revision
	err := fsutil.ReadJSONLines(t.logPath(), func(line []byte) error {
		var r Revision
		if err := json.Unmarshal(line, &r); err != nil {
			return gikerrors.Wrap(gikerrors.TimelineCorrupt, err, "decoding revision")
		}
		revs = append(revs, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revs, nil
}

func (t *Timeline) getLocked(id string) (Revision, bool, error) {
	revs, err := t.Load()
	if err != nil {
		return Revision{}, false, err
	}
	for _, r := range revs {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Revision{}, false, nil
}

// Get returns the revision with the given exact id.
func (t *Timeline) Get(id string) (Revision, bool, error) {
	return t.getLocked(id)
}

// Resolve turns a ref (HEAD, HEAD~N, an exact id, or an unambiguous 7+ hex
// char prefix) into a revision id.
func (t *Timeline) Resolve(ref string) (string, error) {
	if ref == "" || ref == "HEAD" {
		return t.Head()
	}

	if strings.HasPrefix(ref, "HEAD~") {
		n, err := strconv.Atoi(ref[len("HEAD~"):])
		if err != nil || n < 0 {
			return "", gikerrors.Newf(gikerrors.RevisionNotFound, "invalid ref %q", ref)
		}
		head, err := t.Head()
		if err != nil {
			return "", err
		}
		revs, err := t.Load()
		if err != nil {
			return "", err
		}
		byID := make(map[string]Revision, len(revs))
		for _, r := range revs {
			byID[r.ID] = r
		}
		cur, ok := byID[head]
		if !ok {
			return "", gikerrors.Newf(gikerrors.TimelineCorrupt, "HEAD %s not found in timeline", head)
		}
		for i := 0; i < n; i++ {
			if cur.ParentID == "" {
				return "", gikerrors.Newf(gikerrors.RevisionNotFound, "ref %q walks past the root revision", ref)
			}
			parent, ok := byID[cur.ParentID]
			if !ok {
				return "", gikerrors.Newf(gikerrors.TimelineCorrupt, "parent %s not found in timeline", cur.ParentID)
			}
			cur = parent
		}
		return cur.ID, nil
	}

	if isHexPrefix(ref) && len(ref) >= 7 {
		revs, err := t.Load()
		if err != nil {
			return "", err
		}
		var matches []string
		for _, r := range revs {
			if r.ID == ref {
				return r.ID, nil
			}
			if strings.HasPrefix(r.ID, ref) {
				matches = append(matches, r.ID)
			}
		}
		switch len(matches) {
		case 0:
			return "", gikerrors.Newf(gikerrors.RevisionNotFound, "no revision matches %q", ref)
		case 1:
			return matches[0], nil
		default:
			return "", gikerrors.Newf(gikerrors.AmbiguousRevision, "%q matches %d revisions", ref, len(matches))
		}
	}

	revs, err := t.Load()
	if err != nil {
		return "", err
	}
	for _, r := range revs {
		if r.ID == ref {
			return r.ID, nil
		}
	}
	return "", gikerrors.Newf(gikerrors.RevisionNotFound, "no revision matches %q", ref)
}

func isHexPrefix(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') || c == '-') {
			return false
		}
	}
	return true
}

// Between returns revisions strictly after fromExclusive (or from the root
// if empty) up to and including toInclusive (HEAD if empty), in
// chronological order. Used by the release changelog.
func (t *Timeline) Between(fromExclusive, toInclusive string) ([]Revision, error) {
	toID, err := t.Resolve(orHead(toInclusive))
	if err != nil {
		return nil, err
	}
	var fromID string
	if fromExclusive != "" {
		fromID, err = t.Resolve(fromExclusive)
		if err != nil {
			return nil, err
		}
	}

	revs, err := t.Load()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Revision, len(revs))
	for _, r := range revs {
		byID[r.ID] = r
	}

	var chain []Revision
	cur, ok := byID[toID]
	if !ok {
		return nil, gikerrors.Newf(gikerrors.RevisionNotFound, "revision %s not found", toID)
	}
	for {
		if cur.ID == fromID {
			break
		}
		chain = append(chain, cur)
		if cur.ParentID == "" {
			break
		}
		next, ok := byID[cur.ParentID]
		if !ok {
			break
		}
		cur = next
	}

	// chain is newest-first; reverse to chronological order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

func orHead(ref string) string {
	if ref == "" {
		return "HEAD"
	}
	return ref
}

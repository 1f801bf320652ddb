package memory

import (
	"testing"
	"time"
)

func TestAppendAndEntriesRoundTrip(t *testing.T) {
	s := Open(t.TempDir())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e := Entry{ID: "m1", Scope: ScopeProject, Source: SourceManualNote, Text: "remember this"}
	if err := s.Append(e, now); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Text != "remember this" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if !entries[0].CreatedAt.Equal(now) {
		t.Fatalf("expected createdAt stamped, got %v", entries[0].CreatedAt)
	}
}

func TestDeleteTombstonesEntry(t *testing.T) {
	s := Open(t.TempDir())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := s.Append(Entry{ID: "m1", Scope: ScopeProject, Source: SourceManualNote, Text: "x"}, now); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Delete("m1", now.Add(time.Hour)); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no live entries after delete, got %+v", entries)
	}
}

func TestArchiveMovesEntryToArchiveLog(t *testing.T) {
	s := Open(t.TempDir())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e := Entry{ID: "m1", Scope: ScopeGlobal, Source: SourceObservation, Text: "old note"}
	if err := s.Append(e, now); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Archive(e, now.Add(time.Hour)); err != nil {
		t.Fatalf("archive: %v", err)
	}

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no live entries after archive, got %+v", entries)
	}

	archived, err := s.Archived()
	if err != nil {
		t.Fatalf("archived: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != "m1" {
		t.Fatalf("unexpected archived entries: %+v", archived)
	}
}

func TestFingerprintMatchesIdenticalScopeAndText(t *testing.T) {
	a := Fingerprint(ScopeProject, "same text")
	b := Fingerprint(ScopeProject, "same text")
	c := Fingerprint(ScopeBranch, "same text")
	if a != b {
		t.Fatalf("expected identical fingerprints, got %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("expected different scope to change fingerprint")
	}
}

func TestFindByFingerprintLocatesExistingEntry(t *testing.T) {
	s := Open(t.TempDir())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := Entry{ID: "m1", Scope: ScopeProject, Source: SourceManualNote, Text: "dup me"}
	if err := s.Append(e, now); err != nil {
		t.Fatalf("append: %v", err)
	}

	fp := Fingerprint(ScopeProject, "dup me")
	id, err := s.FindByFingerprint(fp)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if id != "m1" {
		t.Fatalf("expected m1, got %q", id)
	}
}

func TestComputeMetrics(t *testing.T) {
	entries := []Entry{
		{Text: "abcd"},
		{Text: "12345678"},
	}
	m := ComputeMetrics(entries)
	if m.EntryCount != 2 {
		t.Fatalf("expected 2 entries, got %d", m.EntryCount)
	}
	if m.TotalChars != 12 {
		t.Fatalf("expected 12 total chars, got %d", m.TotalChars)
	}
	if m.EstimatedTokenCount != 3 {
		t.Fatalf("expected 3 estimated tokens (1+2), got %d", m.EstimatedTokenCount)
	}
}

func TestValidateRejectsEmptyTextAndLongTitleAndBadImportance(t *testing.T) {
	base := Entry{Scope: ScopeProject, Source: SourceManualNote, Text: "ok"}

	empty := base
	empty.Text = ""
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for empty text")
	}

	over := base
	over.Title = string(make([]byte, 101))
	if err := over.Validate(); err == nil {
		t.Fatalf("expected error for title over 100 chars")
	}

	badImportance := base
	bad := 1.5
	badImportance.Importance = &bad
	if err := badImportance.Validate(); err == nil {
		t.Fatalf("expected error for importance outside [0,1]")
	}
}

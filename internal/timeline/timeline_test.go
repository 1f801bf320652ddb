package timeline

import (
	"testing"
	"time"
)

func TestAppendAndHead(t *testing.T) {
	tl := Open(t.TempDir())

	init := NewRevision("", "main", "", "init", time.Now(), InitOp())
	if err := tl.Append(init); err != nil {
		t.Fatalf("append init: %v", err)
	}

	head, err := tl.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head != init.ID {
		t.Fatalf("got %q, want %q", head, init.ID)
	}

	commit := NewRevision(init.ID, "main", "", "index", time.Now(), CommitOp([]string{"code"}, 1))
	if err := tl.Append(commit); err != nil {
		t.Fatalf("append commit: %v", err)
	}
	head, err = tl.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head != commit.ID {
		t.Fatalf("got %q, want %q", head, commit.ID)
	}
}

func TestAppendRejectsInitWithParent(t *testing.T) {
	tl := Open(t.TempDir())
	bad := NewRevision("some-parent", "main", "", "bad", time.Now(), InitOp())
	if err := tl.Append(bad); err == nil {
		t.Fatalf("expected error for Init revision with parent")
	}
}

func TestAppendRejectsNonInitWithoutParent(t *testing.T) {
	tl := Open(t.TempDir())
	bad := NewRevision("", "main", "", "bad", time.Now(), CommitOp([]string{"code"}, 1))
	if err := tl.Append(bad); err == nil {
		t.Fatalf("expected error for non-Init revision without parent")
	}
}

func TestResolveHeadTilde(t *testing.T) {
	tl := Open(t.TempDir())
	r0 := NewRevision("", "main", "", "init", time.Now(), InitOp())
	_ = tl.Append(r0)
	r1 := NewRevision(r0.ID, "main", "", "one", time.Now(), CommitOp(nil, 0))
	_ = tl.Append(r1)
	r2 := NewRevision(r1.ID, "main", "", "two", time.Now(), CommitOp(nil, 0))
	_ = tl.Append(r2)

	got, err := tl.Resolve("HEAD~1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != r1.ID {
		t.Fatalf("got %q, want %q", got, r1.ID)
	}

	got, err = tl.Resolve("HEAD~2")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != r0.ID {
		t.Fatalf("got %q, want %q", got, r0.ID)
	}
}

func TestResolveUnknownRefNotFound(t *testing.T) {
	tl := Open(t.TempDir())
	r0 := NewRevision("", "main", "", "init", time.Now(), InitOp())
	_ = tl.Append(r0)

	if _, err := tl.Resolve("notarealprefix"); err == nil {
		t.Fatalf("expected RevisionNotFound")
	}
}

func TestBetweenReturnsChronologicalOrder(t *testing.T) {
	tl := Open(t.TempDir())
	r0 := NewRevision("", "main", "", "init", time.Now(), InitOp())
	_ = tl.Append(r0)
	r1 := NewRevision(r0.ID, "main", "", "one", time.Now(), CommitOp(nil, 0))
	_ = tl.Append(r1)
	r2 := NewRevision(r1.ID, "main", "", "two", time.Now(), CommitOp(nil, 0))
	_ = tl.Append(r2)

	revs, err := tl.Between(r0.ID, "HEAD")
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if len(revs) != 2 || revs[0].ID != r1.ID || revs[1].ID != r2.ID {
		t.Fatalf("unexpected chain: %+v", revs)
	}
}

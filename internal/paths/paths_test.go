package paths

import (
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "src", "main.go")

	got, err := CanonicalizePath(sub, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "src/main.go" {
		t.Fatalf("got %q, want %q", got, "src/main.go")
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()

	if !IsWithinRepo(filepath.Join(root, "a.go"), root) {
		t.Fatalf("expected path inside repo to be within repo")
	}
	if IsWithinRepo(filepath.Join(filepath.Dir(root), "outside.go"), root) {
		t.Fatalf("expected path outside repo to not be within repo")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(`a\b\c`); got != "a/b/c" {
		t.Fatalf("got %q, want a/b/c", got)
	}
}

func TestJoinRepoPath(t *testing.T) {
	root := t.TempDir()
	got := JoinRepoPath(root, "src/main.go")
	want := filepath.Join(root, "src", "main.go")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

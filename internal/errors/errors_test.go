package errors

import (
	"fmt"
	"testing"
)

func TestErrorMessageIncludesNextAction(t *testing.T) {
	err := New(BaseEmbeddingIncompatible, "base code uses a different embedding model").
		WithNextAction("run reindex --base code")

	got := err.Error()
	want := "BaseEmbeddingIncompatible: base code uses a different embedding model (run reindex --base code)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestIsMatchesWrappedCode(t *testing.T) {
	inner := New(TimelineCorrupt, "HEAD does not reference a known revision")
	wrapped := fmt.Errorf("status: %w", inner)

	if !Is(wrapped, TimelineCorrupt) {
		t.Fatalf("expected Is to find wrapped code TimelineCorrupt")
	}
	if Is(wrapped, RevisionNotFound) {
		t.Fatalf("expected Is to not match a different code")
	}
}

func TestCodeOfNonGikError(t *testing.T) {
	if got := CodeOf(fmt.Errorf("plain error")); got != "" {
		t.Fatalf("got %q, want empty code", got)
	}
}

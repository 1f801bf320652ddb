package bm25

import (
	"path/filepath"
	"testing"
)

func TestTokenizeLowercasesStemsAndDropsStopwords(t *testing.T) {
	got := Tokenize("The Running Dogs are running!")
	want := []string{"run", "dog", "run"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	// "a" and "I" are shorter than 2 characters; "do" and "it" are stop
	// words; "go" is exactly 2 characters and survives.
	got := Tokenize("a I do go it")
	if len(got) != 1 || got[0] != "go" {
		t.Fatalf("expected only [go] to survive, got %v", got)
	}
}

func TestSearchRanksMoreRelevantDocumentHigher(t *testing.T) {
	idx := NewIndex()
	idx.AddDocument(1, "the quick brown fox jumps over the lazy dog")
	idx.AddDocument(2, "a completely unrelated sentence about cooking rice")
	idx.AddDocument(3, "fox fox fox jumping jumping over dogs everywhere")

	results := idx.Search("fox jumps dog", 10)
	if len(results) == 0 {
		t.Fatalf("expected results")
	}
	if results[0].DocID != 3 && results[0].DocID != 1 {
		t.Fatalf("expected doc 1 or 3 to rank highest, got %d", results[0].DocID)
	}
	for _, r := range results {
		if r.DocID == 2 {
			t.Fatalf("unrelated document should not score on these terms: %+v", results)
		}
	}
}

func TestSearchTopKZeroReturnsEmpty(t *testing.T) {
	idx := NewIndex()
	idx.AddDocument(1, "hello world")
	if got := idx.Search("hello", 0); len(got) != 0 {
		t.Fatalf("expected empty results for topK=0, got %v", got)
	}
}

func TestSaveLoadRoundTripProducesIdenticalResults(t *testing.T) {
	idx := NewIndex()
	idx.AddDocument(1, "the quick brown fox")
	idx.AddDocument(2, "jumps over the lazy dog")
	idx.AddDocument(3, "foxes and dogs living together")

	before := idx.Search("fox dog", 10)

	dir := t.TempDir()
	path := filepath.Join(dir, "bm25.bin")
	if err := idx.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	after := loaded.Search("fox dog", 10)

	if len(before) != len(after) {
		t.Fatalf("result length mismatch: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("result %d mismatch: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestLoadMissingFileReturnsEmptyIndex(t *testing.T) {
	idx, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if idx.DocCount() != 0 {
		t.Fatalf("expected empty index, got docCount=%d", idx.DocCount())
	}
}

package embedding

import "testing"

func TestHashingProviderDeterministic(t *testing.T) {
	p := NewHashingProvider("local-hash", "local-hash-v1", 16)
	a, err := p.EmbedBatch([]string{"hello world"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	b, err := p.EmbedBatch([]string{"hello world"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(a[0]) != 16 {
		t.Fatalf("expected dimension 16, got %d", len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected deterministic embedding, differed at index %d", i)
		}
	}
}

func TestHashingProviderDifferentTextsDiffer(t *testing.T) {
	p := NewHashingProvider("local-hash", "local-hash-v1", 16)
	out, err := p.EmbedBatch([]string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	same := true
	for i := range out[0] {
		if out[0][i] != out[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different texts to embed differently")
	}
}

func TestCentroidAveragesVectors(t *testing.T) {
	got, err := Centroid([][]float32{{1, 0, 0}, {0, 1, 0}})
	if err != nil {
		t.Fatalf("Centroid: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected dimension 3, got %d", len(got))
	}
}

func TestCentroidRejectsMismatchedDimensions(t *testing.T) {
	_, err := Centroid([][]float32{{1, 0}, {1, 0, 0}})
	if err == nil {
		t.Fatalf("expected error for mismatched dimensions")
	}
}

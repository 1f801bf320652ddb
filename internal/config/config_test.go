package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embeddings.Default.ModelID != "local-hash-v1" {
		t.Fatalf("got modelId %q, want local-hash-v1", cfg.Embeddings.Default.ModelID)
	}
	if cfg.Retrieval.RrfK != 60 {
		t.Fatalf("got rrfK %d, want 60", cfg.Retrieval.RrfK)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	root := t.TempDir()
	content := []byte("device: gpu\nretrieval:\n  rrfK: 30\n")
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), content, 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device != "gpu" {
		t.Fatalf("got device %q, want gpu", cfg.Device)
	}
	if cfg.Retrieval.RrfK != 30 {
		t.Fatalf("got rrfK %d, want 30", cfg.Retrieval.RrfK)
	}
}

func TestLoadEnvOverridesDevice(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GIK_DEVICE", "cpu")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device != "cpu" {
		t.Fatalf("got device %q, want cpu (from env)", cfg.Device)
	}
}

func TestMarshalRoundTrips(t *testing.T) {
	def := DefaultConfig()
	data, err := def.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), data, 0o644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	got, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Embeddings.Default.Dimension != def.Embeddings.Default.Dimension {
		t.Fatalf("dimension mismatch after round trip: got %d want %d", got.Embeddings.Default.Dimension, def.Embeddings.Default.Dimension)
	}
}

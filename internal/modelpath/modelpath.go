// Package modelpath resolves where a named embedding or reranker model
// would live on disk, following spec §6's layout under
// ~/<home>/models/{embeddings,rerankers}/<modelId>/… and the
// GIK_MODELS_DIR / GIK_HOME environment overrides named in §6. No other
// package imports this one, and the engine's stand-in providers
// (internal/embedding, internal/rerank) don't read real model files;
// Locate and Exists only compute and check a model's directory.
package modelpath

import (
	"os"
	"path/filepath"
)

// Kind distinguishes an embedding model directory from a reranker one.
type Kind string

const (
	KindEmbedding Kind = "embeddings"
	KindReranker  Kind = "rerankers"
)

// EnvModelsDir and EnvHome name the environment variables consulted by
// Locate, matching spec §6's GIK_MODELS_DIR / GIK_HOME.
const (
	EnvModelsDir = "GIK_MODELS_DIR"
	EnvHome      = "GIK_HOME"
)

// Locate returns the directory a model of the given kind and id would be
// stored in: GIK_MODELS_DIR/<kind>/<modelID> if GIK_MODELS_DIR is set,
// otherwise GIK_HOME/models/<kind>/<modelID>, otherwise
// ~/.gik/models/<kind>/<modelID>.
func Locate(kind Kind, modelID string) string {
	if dir := os.Getenv(EnvModelsDir); dir != "" {
		return filepath.Join(dir, string(kind), modelID)
	}
	base := os.Getenv(EnvHome)
	if base == "" {
		if home, err := os.UserHomeDir(); err == nil {
			base = filepath.Join(home, ".gik")
		} else {
			base = ".gik"
		}
	}
	return filepath.Join(base, "models", string(kind), modelID)
}

// Exists reports whether a model directory named by Locate is present on
// disk, i.e. whether a real provider's weights have actually been
// installed there.
func Exists(kind Kind, modelID string) bool {
	info, err := os.Stat(Locate(kind, modelID))
	return err == nil && info.IsDir()
}

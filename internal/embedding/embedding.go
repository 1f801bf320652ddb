// Package embedding defines the embedding capability the commit, reindex,
// and retrieval pipelines call through, plus a deterministic local
// provider that stands in for the real model runtime named in spec §1 as
// an external collaborator (the embedding and cross-encoder model
// implementations are out of scope for the core).
package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	gikerrors "gik/internal/errors"
)

// Provider is the capability the pipelines require: batch embedding plus
// enough identity (modelId, dimensions) to populate ModelInfo and detect
// compatibility drift.
type Provider interface {
	EmbedBatch(texts []string) ([][]float32, error)
	ModelID() string
	Dimensions() int
}

// HashingProvider is a seeded-hash embedder: every input text is hashed
// into a fixed number of pseudo-random floats, then L2-normalized. It is
// deterministic (same text always yields the same vector, across
// processes) and requires no model weights, matching the "local-first"
// and "opaque provider behind a capability interface" design notes. A real
// model-backed provider satisfies the same three-method interface.
type HashingProvider struct {
	provider  string
	modelID   string
	dimension int
	warmedUp  bool
}

// NewHashingProvider returns a HashingProvider producing vectors of dim
// floats, identified by provider/modelID for ModelInfo bookkeeping.
func NewHashingProvider(provider, modelID string, dim int) *HashingProvider {
	return &HashingProvider{provider: provider, modelID: modelID, dimension: dim}
}

func (p *HashingProvider) ModelID() string { return p.modelID }
func (p *HashingProvider) Provider() string { return p.provider }
func (p *HashingProvider) Dimensions() int { return p.dimension }

// EmbedBatch embeds every text in texts, returning one vector per input in
// order. The first call pays a one-time warm-up (modeled here as simply
// flipping a flag; a real provider would load weights) per §4.4 step 5.
func (p *HashingProvider) EmbedBatch(texts []string) ([][]float32, error) {
	if !p.warmedUp {
		p.warmedUp = true
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embedOne(text)
	}
	return out, nil
}

func (p *HashingProvider) embedOne(text string) []float32 {
	vec := make([]float32, p.dimension)
	seed := []byte(p.modelID + "\x00" + text)
	// Fill the vector dimension block by block: each block hashes the seed
	// plus a block index so we can derive more pseudo-random bytes than a
	// single sha256 digest provides.
	for block := 0; block*8 < p.dimension; block++ {
		var blockSeed [4]byte
		binary.BigEndian.PutUint32(blockSeed[:], uint32(block))
		sum := sha256.Sum256(append(append([]byte{}, seed...), blockSeed[:]...))
		for j := 0; j < 8 && block*8+j < p.dimension; j++ {
			u := binary.BigEndian.Uint32(sum[j*4 : j*4+4])
			// Map to [-1, 1].
			vec[block*8+j] = float32(u)/float32(math.MaxUint32)*2 - 1
		}
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := math.Sqrt(sumSq)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

// Centroid averages a set of equal-length embeddings, implementing the
// query-expansion transform of spec §4.6 step 2: the only allowed change
// to the dense query representation is averaging synthesized variants.
func Centroid(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, gikerrors.New(gikerrors.EmbeddingProviderUnavailable, "no vectors to average for centroid expansion")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, gikerrors.Newf(gikerrors.EmbeddingDimensionMismatch, "centroid inputs have mismatched dimensions %d and %d", dim, len(v))
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(len(vectors)))
	}
	normalize(out)
	return out, nil
}

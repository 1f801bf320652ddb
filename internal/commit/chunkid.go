package commit

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ChunkID derives a stable id for a (base, path) pair: re-committing the
// same file produces the same chunk id, which is the "index id scheme must
// remain stable" contract of §4.4 step 4 even as chunk boundaries evolve.
// idHex is used as the chunk's string Entry.ID; vectorID is the uint64 the
// vector backend and BM25 index both address the chunk by.
func ChunkID(base, path string) (idHex string, vectorID uint64) {
	sum := blake2b.Sum256([]byte(base + "\x00" + path))
	return hex.EncodeToString(sum[:16]), binary.BigEndian.Uint64(sum[:8])
}

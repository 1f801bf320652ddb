package memory

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	gikerrors "gik/internal/errors"
	"gik/internal/vectorindex"

	"golang.org/x/crypto/blake2b"
)

// Embedder produces a vector embedding for a piece of text. Defined here
// (rather than importing internal/embedding) so memory only depends on the
// shape it needs; any capability satisfying this interface plugs in.
type Embedder interface {
	Embed(text string) ([]float32, error)
}

// Ingest implements the add --memory short-circuit path: it embeds the
// entry's text, upserts it into the memory base's vector index, appends it
// to entries.jsonl and sources.jsonl, and returns the outcome. Unlike
// staging, this produces a single MemoryIngest revision directly — there is
// no pending/commit step for memory entries.
func Ingest(store *Store, index *vectorindex.Adapter, embedder Embedder, e Entry, originRevision string, now time.Time) (IngestResult, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := e.Validate(); err != nil {
		return IngestResult{FailedCount: 1, Failed: []IngestFailure{{ID: e.ID, Error: err.Error()}}}, err
	}
	e.OriginRevision = originRevision

	embedding, err := embedder.Embed(e.Text)
	if err != nil {
		return IngestResult{FailedCount: 1, Failed: []IngestFailure{{ID: e.ID, Error: err.Error()}}}, err
	}

	payload, err := payloadFor(e)
	if err != nil {
		return IngestResult{}, err
	}
	recordID := VectorID(e.ID)
	if _, err := index.Upsert([]vectorindex.Record{{ID: recordID, Embedding: embedding, Payload: payload}}, now); err != nil {
		return IngestResult{}, err
	}

	if err := store.Append(e, now); err != nil {
		return IngestResult{}, err
	}
	if err := store.RecordSource(e.ID, originRevision, now); err != nil {
		return IngestResult{}, err
	}

	return IngestResult{IngestedCount: 1, IngestedIDs: []string{e.ID}, VectorCount: 1}, nil
}

func payloadFor(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "encoding memory vector payload")
	}
	return data, nil
}

// VectorID derives a stable uint64 index id from an entry's string id by
// hashing it with blake2b-256 and taking the leading 8 bytes, since the
// vector index addresses records by uint64 rather than by string.
func VectorID(entryID string) uint64 {
	sum := blake2b.Sum256([]byte(entryID))
	return binary.BigEndian.Uint64(sum[:8])
}

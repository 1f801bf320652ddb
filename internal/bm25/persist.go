package bm25

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sort"

	gikerrors "gik/internal/errors"
	"gik/internal/fsutil"
)

// magic identifies the binary blob format; version allows a future format
// change to be detected rather than misread.
const (
	magic          uint32 = 0x42323553 // "B25S"
	formatVersion  uint32 = 1
)

// Serialize encodes the index as a stable binary blob: a header, the
// document-length table sorted by docID, then postings sorted by term and
// by docID within each term. Stability of ordering is what makes invariant
// 7 ("load produces identical top-k results") checkable byte-for-byte
// across two serializations of an unchanged index.
func (idx *Index) Serialize() ([]byte, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	writeU32(w, magic)
	writeU32(w, formatVersion)
	writeU64(w, uint64(idx.docCount))
	writeU64(w, uint64(idx.totalLength))

	docIDs := make([]uint64, 0, len(idx.docLength))
	for id := range idx.docLength {
		docIDs = append(docIDs, id)
	}
	sort.Slice(docIDs, func(i, j int) bool { return docIDs[i] < docIDs[j] })

	writeU64(w, uint64(len(docIDs)))
	for _, id := range docIDs {
		writeU64(w, id)
		writeU64(w, uint64(idx.docLength[id]))
	}

	terms := make([]string, 0, len(idx.postings))
	for t := range idx.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	writeU64(w, uint64(len(terms)))
	for _, term := range terms {
		writeString(w, term)
		list := append([]posting(nil), idx.postings[term]...)
		sort.Slice(list, func(i, j int) bool { return list[i].DocID < list[j].DocID })
		writeU64(w, uint64(len(list)))
		for _, p := range list {
			writeU64(w, p.DocID)
			writeU64(w, uint64(p.TF))
		}
	}

	if err := w.Flush(); err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "flushing bm25 blob")
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a blob produced by Serialize.
func Deserialize(data []byte) (*Index, error) {
	r := bytes.NewReader(data)

	gotMagic, err := readU32(r)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading bm25 blob header")
	}
	if gotMagic != magic {
		return nil, gikerrors.New(gikerrors.SerializationFailed, "bm25 blob has an unrecognized magic number")
	}
	gotVersion, err := readU32(r)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading bm25 blob version")
	}
	if gotVersion != formatVersion {
		return nil, gikerrors.Newf(gikerrors.SerializationFailed, "bm25 blob format version %d is not supported", gotVersion)
	}

	docCount, err := readU64(r)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading doc count")
	}
	totalLength, err := readU64(r)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading total length")
	}

	idx := &Index{
		postings:    make(map[string][]posting),
		docLength:   make(map[uint64]int),
		docCount:    int(docCount),
		totalLength: int(totalLength),
	}

	numDocs, err := readU64(r)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading doc table length")
	}
	for i := uint64(0); i < numDocs; i++ {
		id, err := readU64(r)
		if err != nil {
			return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading doc id")
		}
		length, err := readU64(r)
		if err != nil {
			return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading doc length")
		}
		idx.docLength[id] = int(length)
	}

	numTerms, err := readU64(r)
	if err != nil {
		return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading term table length")
	}
	for i := uint64(0); i < numTerms; i++ {
		term, err := readString(r)
		if err != nil {
			return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading term")
		}
		numPostings, err := readU64(r)
		if err != nil {
			return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading postings length")
		}
		list := make([]posting, 0, numPostings)
		for j := uint64(0); j < numPostings; j++ {
			docID, err := readU64(r)
			if err != nil {
				return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading posting docId")
			}
			tf, err := readU64(r)
			if err != nil {
				return nil, gikerrors.Wrap(gikerrors.SerializationFailed, err, "reading posting tf")
			}
			list = append(list, posting{DocID: docID, TF: int(tf)})
		}
		idx.postings[term] = list
	}

	return idx, nil
}

// Save atomically writes the serialized index to path.
func (idx *Index) Save(path string) error {
	data, err := idx.Serialize()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return gikerrors.Wrap(gikerrors.IoFailed, err, "writing bm25 blob")
	}
	return nil
}

// Load reads a blob previously written by Save. Returns a fresh empty
// index if the file does not exist, matching "loads are lazy" (§5).
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewIndex(), nil
		}
		return nil, gikerrors.Wrap(gikerrors.IoFailed, err, "reading bm25 blob")
	}
	return Deserialize(data)
}

func writeU32(w io.Writer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, _ = w.Write(b[:])
}

func writeU64(w io.Writer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, _ = w.Write(b[:])
}

func writeString(w io.Writer, s string) {
	writeU64(w, uint64(len(s)))
	_, _ = io.WriteString(w, s)
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	n, err := readU64(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

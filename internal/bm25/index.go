package bm25

import (
	"math"
	"sort"
	"sync"
)

const (
	k1 = 1.2
	b  = 0.75
)

// posting is one (document, term-frequency) pair in a term's postings list.
type posting struct {
	DocID uint64
	TF    int
}

// Index is an in-memory BM25 inverted index over a base's chunks. DocID is
// shared with the vector backend's record id so that the retrieval
// pipeline's fusion step can align dense and sparse ranks for the same
// chunk.
type Index struct {
	mu sync.RWMutex

	postings    map[string][]posting
	docLength   map[uint64]int
	docCount    int
	totalLength int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		postings:  make(map[string][]posting),
		docLength: make(map[uint64]int),
	}
}

// AddDocument tokenizes text and folds it into the index under docID.
// Re-adding an existing docID is not supported by this method; reindex
// rebuilds from scratch per §4.5 step 3.
func (idx *Index) AddDocument(docID uint64, text string) {
	tokens := Tokenize(text)
	termFreq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.docLength[docID]; exists {
		return
	}

	for term, tf := range termFreq {
		idx.postings[term] = append(idx.postings[term], posting{DocID: docID, TF: tf})
	}
	idx.docLength[docID] = len(tokens)
	idx.docCount++
	idx.totalLength += len(tokens)
}

// DocCount returns the number of documents in the index.
func (idx *Index) DocCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.docCount
}

func (idx *Index) avgDocLength() float64 {
	if idx.docCount == 0 {
		return 0
	}
	return float64(idx.totalLength) / float64(idx.docCount)
}

// ScoredDoc is one search hit.
type ScoredDoc struct {
	DocID uint64
	Score float64
}

// Search tokenizes query and scores every candidate document with BM25,
// returning the top-k by descending score (ties broken by ascending docID
// for determinism).
func (idx *Index) Search(query string, topK int) []ScoredDoc {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if topK <= 0 {
		return nil
	}

	terms := Tokenize(query)
	avgdl := idx.avgDocLength()
	scores := make(map[uint64]float64)

	for _, term := range terms {
		list, ok := idx.postings[term]
		if !ok {
			continue
		}
		df := len(list)
		idf := math.Log((float64(idx.docCount-df)+0.5)/(float64(df)+0.5) + 1)

		for _, p := range list {
			dl := float64(idx.docLength[p.DocID])
			tf := float64(p.TF)
			denom := tf + k1*(1-b+b*dl/avgdl)
			scores[p.DocID] += idf * (tf * (k1 + 1)) / denom
		}
	}

	results := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		results = append(results, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

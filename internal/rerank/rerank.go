// Package rerank defines the reranker capability the retrieval pipeline's
// cross-encoder stage calls through, plus a deterministic local stand-in
// that scores by lexical overlap against the query — the real
// cross-encoder model is out of scope for the core per spec §1.
package rerank

import (
	"strings"

	"gik/internal/bm25"
)

// Reranker is the capability §4.6 step 7 calls: given a query and a set of
// candidate documents, return one relevance score per document, higher
// meaning more relevant.
type Reranker interface {
	Rerank(query string, documents []string) ([]float64, error)
}

// LexicalOverlapReranker scores (query, document) pairs with the same
// BM25 formula the sparse index uses, treating each candidate document as
// a one-document corpus scored against the query — a cheap, deterministic
// cross-encoder stand-in that still orders by genuine lexical overlap
// rather than a placeholder constant.
type LexicalOverlapReranker struct{}

// NewLexicalOverlapReranker returns a ready-to-use reranker.
func NewLexicalOverlapReranker() *LexicalOverlapReranker {
	return &LexicalOverlapReranker{}
}

// Rerank scores each document independently: build a tiny BM25 index of
// one document, score the query against it, and use that as the
// document's relevance. Overlap in raw token count breaks ties.
func (r *LexicalOverlapReranker) Rerank(query string, documents []string) ([]float64, error) {
	queryTokens := bm25.Tokenize(query)
	scores := make([]float64, len(documents))
	for i, doc := range documents {
		idx := bm25.NewIndex()
		idx.AddDocument(uint64(i), doc)
		hits := idx.Search(query, 1)
		var bm25Score float64
		if len(hits) > 0 {
			bm25Score = hits[0].Score
		}
		scores[i] = bm25Score + 0.001*float64(overlapCount(queryTokens, doc))
	}
	return scores, nil
}

func overlapCount(queryTokens []string, doc string) int {
	docLower := strings.ToLower(doc)
	n := 0
	for _, t := range queryTokens {
		if strings.Contains(docLower, t) {
			n++
		}
	}
	return n
}

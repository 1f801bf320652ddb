// Package bm25 implements the sparse lexical index used by the retrieval
// pipeline's sparse-search stage: a Porter-stemmed inverted index scored
// with the standard BM25 formula (k1=1.2, b=0.75), persisted as a single
// binary blob per base.
package bm25

import "strings"

// stopWords is the fixed stop-word set discarded during tokenization.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "this": true, "but": true, "or": true,
	"not": true, "have": true, "had": true, "do": true, "does": true,
	"did": true, "can": true, "could": true, "would": true, "should": true,
}

// Tokenize lowercases text, splits on non-alphanumeric boundaries, discards
// tokens shorter than 2 characters, discards stop words, then stems each
// survivor with the Porter algorithm (stop words are matched on the
// unstemmed form, before stemming could alter them).
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		word := strings.ToLower(cur.String())
		cur.Reset()
		if len(word) < 2 {
			return
		}
		if stopWords[word] {
			return
		}
		tokens = append(tokens, stem(word))
	}

	for _, r := range text {
		if isAlphaNumeric(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func isAlphaNumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

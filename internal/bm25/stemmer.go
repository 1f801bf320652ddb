package bm25

import "strings"

// stem implements the classic Porter stemming algorithm (Porter, 1980).
// It is a direct, compact port of the standard five-step suffix-stripping
// procedure, operating on ASCII lowercase input.
func stem(word string) string {
	if len(word) <= 2 {
		return word
	}

	w := word
	w = step1a(w)
	w = step1b(w)
	w = step1c(w)
	w = step2(w)
	w = step3(w)
	w = step4(w)
	w = step5a(w)
	w = step5b(w)
	return w
}

func isVowelLetter(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// measure returns the Porter "m" value: the number of VC (vowel-consonant)
// sequences in the stem.
func measure(w string) int {
	m := 0
	vowelSeen := false
	for i := 0; i < len(w); i++ {
		if isVowelLetter(w[i]) || (w[i] == 'y' && i > 0 && !isVowelLetter(w[i-1])) {
			vowelSeen = true
		} else {
			if vowelSeen {
				m++
				vowelSeen = false
			}
		}
	}
	return m
}

func endsWith(w, suffix string) bool {
	return strings.HasSuffix(w, suffix)
}

func replaceSuffix(w, suffix, replacement string) string {
	return w[:len(w)-len(suffix)] + replacement
}

func containsVowel(w string) bool {
	for i := 0; i < len(w); i++ {
		if isVowelLetter(w[i]) || (w[i] == 'y' && i > 0 && !isVowelLetter(w[i-1])) {
			return true
		}
	}
	return false
}

func endsWithCVC(w string) bool {
	n := len(w)
	if n < 3 {
		return false
	}
	c1, v, c2 := w[n-3], w[n-2], w[n-1]
	if isVowelLetter(c1) {
		return false
	}
	if !isVowelLetter(v) {
		return false
	}
	if isVowelLetter(c2) || c2 == 'w' || c2 == 'x' || c2 == 'y' {
		return false
	}
	return true
}

func endsWithDoubleConsonant(w string) bool {
	n := len(w)
	if n < 2 {
		return false
	}
	a, b := w[n-1], w[n-2]
	if a != b {
		return false
	}
	return !isVowelLetter(a)
}

func step1a(w string) string {
	switch {
	case endsWith(w, "sses"):
		return replaceSuffix(w, "sses", "ss")
	case endsWith(w, "ies"):
		return replaceSuffix(w, "ies", "i")
	case endsWith(w, "ss"):
		return w
	case endsWith(w, "s") && len(w) > 1:
		return w[:len(w)-1]
	}
	return w
}

func step1b(w string) string {
	switch {
	case endsWith(w, "eed"):
		stem := w[:len(w)-3]
		if measure(stem) > 0 {
			return stem + "ee"
		}
		return w
	case endsWith(w, "ed"):
		stem := w[:len(w)-2]
		if containsVowel(stem) {
			return step1bCleanup(stem)
		}
		return w
	case endsWith(w, "ing"):
		stem := w[:len(w)-3]
		if containsVowel(stem) {
			return step1bCleanup(stem)
		}
		return w
	}
	return w
}

func step1bCleanup(stem string) string {
	switch {
	case endsWith(stem, "at"), endsWith(stem, "bl"), endsWith(stem, "iz"):
		return stem + "e"
	case endsWithDoubleConsonant(stem) && !strings.HasSuffix(stem, "l") && !strings.HasSuffix(stem, "s") && !strings.HasSuffix(stem, "z"):
		return stem[:len(stem)-1]
	case measure(stem) == 1 && endsWithCVC(stem):
		return stem + "e"
	}
	return stem
}

func step1c(w string) string {
	if endsWith(w, "y") && len(w) > 1 && containsVowel(w[:len(w)-1]) {
		return replaceSuffix(w, "y", "i")
	}
	return w
}

var step2Suffixes = []struct {
	suffix, replacement string
}{
	{"ational", "ate"}, {"tional", "tion"}, {"enci", "ence"}, {"anci", "ance"},
	{"izer", "ize"}, {"abli", "able"}, {"alli", "al"}, {"entli", "ent"},
	{"eli", "e"}, {"ousli", "ous"}, {"ization", "ize"}, {"ation", "ate"},
	{"ator", "ate"}, {"alism", "al"}, {"iveness", "ive"}, {"fulness", "ful"},
	{"ousness", "ous"}, {"aliti", "al"}, {"iviti", "ive"}, {"biliti", "ble"},
}

func step2(w string) string {
	for _, s := range step2Suffixes {
		if endsWith(w, s.suffix) {
			stem := w[:len(w)-len(s.suffix)]
			if measure(stem) > 0 {
				return stem + s.replacement
			}
			return w
		}
	}
	return w
}

var step3Suffixes = []struct {
	suffix, replacement string
}{
	{"icate", "ic"}, {"ative", ""}, {"alize", "al"}, {"iciti", "ic"},
	{"ical", "ic"}, {"ful", ""}, {"ness", ""},
}

func step3(w string) string {
	for _, s := range step3Suffixes {
		if endsWith(w, s.suffix) {
			stem := w[:len(w)-len(s.suffix)]
			if measure(stem) > 0 {
				return stem + s.replacement
			}
			return w
		}
	}
	return w
}

var step4Suffixes = []string{
	"al", "ance", "ence", "er", "ic", "able", "ible", "ant", "ement", "ment",
	"ent", "ou", "ism", "ate", "iti", "ous", "ive", "ize",
}

func step4(w string) string {
	for _, suffix := range step4Suffixes {
		if !endsWith(w, suffix) {
			continue
		}
		stem := w[:len(w)-len(suffix)]
		if suffix == "ion" {
			if len(stem) > 0 && (stem[len(stem)-1] == 's' || stem[len(stem)-1] == 't') && measure(stem) > 1 {
				return stem
			}
			continue
		}
		if measure(stem) > 1 {
			return stem
		}
		return w
	}
	if endsWith(w, "ion") {
		stem := w[:len(w)-3]
		if len(stem) > 0 && (stem[len(stem)-1] == 's' || stem[len(stem)-1] == 't') && measure(stem) > 1 {
			return stem
		}
	}
	return w
}

func step5a(w string) string {
	if endsWith(w, "e") {
		stem := w[:len(w)-1]
		m := measure(stem)
		if m > 1 || (m == 1 && !endsWithCVC(stem)) {
			return stem
		}
	}
	return w
}

func step5b(w string) string {
	if endsWith(w, "ll") && measure(w[:len(w)-1]) > 1 {
		return w[:len(w)-1]
	}
	return w
}

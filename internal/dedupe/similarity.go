package dedupe

import (
	"strings"
	"unicode"
)

// DefaultSimilarityThreshold is the Jaccard similarity above which two texts
// are treated as near-duplicates. Tunable per engine, not hardcoded at call
// sites.
const DefaultSimilarityThreshold = 0.85

// tokenize lowercases and splits text into word tokens, dropping punctuation.
func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, f := range fields {
		tokens[f] = true
	}
	return tokens
}

// Similarity computes the Jaccard similarity of the word sets of two texts.
// Returns a value in [0, 1]; 1 means identical token sets.
func Similarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

// NearDuplicate reports whether two texts exceed the given similarity
// threshold. A non-positive threshold falls back to the default.
func NearDuplicate(a, b string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return Similarity(a, b) >= threshold
}

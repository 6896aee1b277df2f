// Package textproc implements Forest's tokenizer and tag extractor: pure,
// deterministic text -> token-count and text -> tag-list functions with no
// I/O and no suspension points.
package textproc

import (
	"regexp"
	"strings"
)

var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Tokenize lowercases text, splits on non-alphanumerics, drops tokens
// shorter than 2 characters and stopwords, folds a light deterministic
// suffix stemmer, and returns a token -> count map. Title and body tokens
// are counted identically; no positional weighting is applied.
func Tokenize(text string) map[string]int {
	counts := make(map[string]int)
	words := wordRegex.FindAllString(text, -1)

	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) < 2 {
			continue
		}
		if isStopWord(lower) {
			continue
		}
		stemmed := stem(lower)
		counts[stemmed]++
	}

	return counts
}

// stem applies a light, deterministic suffix-folding stemmer. It is not
// Porter-grade: it only folds the handful of suffixes common enough to
// cause token fragmentation in short notes (plurals, -ing, -ed).
func stem(token string) string {
	switch {
	case strings.HasSuffix(token, "ies") && len(token) > 4:
		return token[:len(token)-3] + "y"
	case strings.HasSuffix(token, "ing") && len(token) > 5:
		return strings.TrimSuffix(token, "ing")
	case strings.HasSuffix(token, "ed") && len(token) > 4:
		return strings.TrimSuffix(token, "ed")
	case strings.HasSuffix(token, "es") && len(token) > 4:
		return strings.TrimSuffix(token, "es")
	case strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") && len(token) > 3:
		return strings.TrimSuffix(token, "s")
	default:
		return token
	}
}

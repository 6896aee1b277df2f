package textproc

// stopWords are common English words excluded from token counts and from
// auto-tag candidacy. Kept small and deterministic rather than pulling in a
// locale-aware stopword package; this list never needs tuning per corpus.
var stopWords = buildStopWordMap([]string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "when",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "once", "here", "there", "all", "any", "both", "each",
	"few", "more", "most", "other", "some", "such", "no", "nor", "not",
	"only", "own", "same", "so", "than", "too", "very", "s", "t", "can",
	"will", "just", "don", "should", "now", "is", "are", "was", "were",
	"be", "been", "being", "have", "has", "had", "having", "do", "does",
	"did", "doing", "of", "it", "its", "this", "that", "these", "those",
	"i", "you", "he", "she", "we", "they", "what", "which", "who", "whom",
	"as", "until", "while", "because",
})

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func isStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

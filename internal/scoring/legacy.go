package scoring

import "strings"

// LegacyComponents is the pre-v2 convex-combination scoring formula,
// computed and stored in edge metadata for observability only. It never
// drives classification; the dual-score (semantic OR tag) model is the
// real decision path.
type LegacyComponents struct {
	Embedding float64 `json:"embedding"`
	Token     float64 `json:"token"`
	Tag       float64 `json:"tag"`
	Title     float64 `json:"title"`
	Combined  float64 `json:"combined"`
}

const (
	legacyWeightEmbedding = 0.45
	legacyWeightToken     = 0.20
	legacyWeightTag       = 0.20
	legacyWeightTitle     = 0.15
)

// ComputeLegacyComponents reproduces the old weighted-sum score for
// edge.Metadata["legacy_score_components"]. A zero lexical-overlap penalty
// halves the token contribution, matching the original formula's
// handling of disjoint vocabularies.
func ComputeLegacyComponents(embeddingSim, tokenOverlap, tagSim, titleSim float64, tokenOverlapZero bool) LegacyComponents {
	token := tokenOverlap
	if tokenOverlapZero {
		token *= 0.5
	}

	combined := legacyWeightEmbedding*Clamp01(embeddingSim) +
		legacyWeightToken*Clamp01(token) +
		legacyWeightTag*Clamp01(tagSim) +
		legacyWeightTitle*Clamp01(titleSim)

	return LegacyComponents{
		Embedding: Clamp01(embeddingSim),
		Token:     Clamp01(token),
		Tag:       Clamp01(tagSim),
		Title:     Clamp01(titleSim),
		Combined:  Clamp01(combined),
	}
}

// titleSimilarity is plain word-set Jaccard over two titles, the same
// set-overlap idiom tagscore.go uses for tag Jaccard.
func titleSimilarity(a, b string) float64 {
	setA := titleWords(a)
	setB := titleWords(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	var shared int
	for w := range setA {
		if _, ok := setB[w]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func titleWords(title string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(title))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// tokenOverlapScore is Jaccard over two token-count key sets. zero
// reports whether the sets share no tokens at all (legacy's
// disjoint-vocabulary penalty case).
func tokenOverlapScore(a, b map[string]int) (score float64, zero bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, true
	}
	var shared int
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0, true
	}
	return float64(shared) / float64(union), shared == 0
}

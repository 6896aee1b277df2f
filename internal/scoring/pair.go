package scoring

// PairInput is everything the kernel needs to score and classify one
// candidate node pair. Embeddings are already-decoded float32 vectors
// (store.DecodeEmbedding), not raw blobs, so this package stays free of
// any storage dependency. TitleA/TitleB and TokenCountsA/TokenCountsB feed
// only the legacy convex-combination formula and
// may be left zero when unavailable; the legacy component is then just
// all-zero, never blocking acceptance since it doesn't participate in
// Classify.
type PairInput struct {
	EmbeddingA []float32
	EmbeddingB []float32
	TagsA      []string
	TagsB      []string

	TitleA       string
	TitleB       string
	TokenCountsA map[string]int
	TokenCountsB map[string]int
}

// PairResult is the full scoring outcome for one pair.
type PairResult struct {
	Semantic   Component
	Tag        Component
	SharedTags []string
	Verdict    Verdict
	Legacy     LegacyComponents
}

// ScorePair runs the full semantic + tag + fusion + classification
// pipeline for one candidate pair.
func ScorePair(in PairInput, idf *IDFTable, th Thresholds) PairResult {
	var sem Component
	if s, ok := Cosine(in.EmbeddingA, in.EmbeddingB); ok {
		sem = Component{Value: s, OK: true}
	}

	tagResult := TagScore(in.TagsA, in.TagsB, idf)
	var tag Component
	if tagResult.OK {
		tag = Component{Value: tagResult.Score, OK: true}
	}

	verdict := Classify(sem, tag, tagResult.SharedTags, th)

	tokenOverlap, tokenOverlapZero := tokenOverlapScore(in.TokenCountsA, in.TokenCountsB)
	legacy := ComputeLegacyComponents(
		sem.valueOrZero(), tokenOverlap, tag.valueOrZero(),
		titleSimilarity(in.TitleA, in.TitleB), tokenOverlapZero,
	)

	return PairResult{
		Semantic:   sem,
		Tag:        tag,
		SharedTags: tagResult.SharedTags,
		Verdict:    verdict,
		Legacy:     legacy,
	}
}

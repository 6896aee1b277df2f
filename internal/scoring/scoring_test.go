package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosine_IdenticalVectorsScoreOne(t *testing.T) {
	score, ok := Cosine([]float32{1, 0, 0}, []float32{1, 0, 0})
	require.True(t, ok)
	require.InDelta(t, 1.0, score, 1e-9)
}

func TestCosine_OrthogonalVectorsScoreZero(t *testing.T) {
	score, ok := Cosine([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	require.InDelta(t, 0.0, score, 1e-9)
}

func TestCosine_DimensionMismatchIsNull(t *testing.T) {
	_, ok := Cosine([]float32{1, 0, 0}, []float32{1, 0})
	require.False(t, ok)
}

func TestCosine_EmptyVectorIsNull(t *testing.T) {
	_, ok := Cosine(nil, []float32{1, 0})
	require.False(t, ok)
}

func TestTagScore_NoSharedTagsIsNull(t *testing.T) {
	result := TagScore([]string{"a"}, []string{"b"}, nil)
	require.False(t, result.OK)
}

func TestTagScore_JaccardWeightedByIDF(t *testing.T) {
	idf := NewIDFTable(map[string]float64{"rare": 2.0, "common": 0.1}, 2.0)
	result := TagScore([]string{"rare", "common"}, []string{"rare", "common", "extra"}, idf)
	require.True(t, result.OK)
	require.Equal(t, []string{"common", "rare"}, result.SharedTags)
	require.Greater(t, result.Score, 0.0)
	require.LessOrEqual(t, result.Score, 1.0)
}

func TestTagScore_BridgeTagBoostsLowOverlapScore(t *testing.T) {
	idf := NewIDFTable(map[string]float64{"link/chapter-1": 3.0, "common": 0.01}, 3.0)

	withoutBridge := TagScore([]string{"common"}, []string{"common", "other", "many", "tags", "here"}, idf)
	withBridge := TagScore([]string{"common", "link/chapter-1"}, []string{"common", "link/chapter-1", "other", "many", "tags", "here"}, idf)

	require.True(t, withoutBridge.OK)
	require.True(t, withBridge.OK)
	require.Greater(t, withBridge.Score, withoutBridge.Score)
}

func TestIDF_ZeroDocFreqIsZero(t *testing.T) {
	require.Equal(t, 0.0, IDF(10, 0))
}

func TestMaxIDF_MatchesSingleOccurrenceIDF(t *testing.T) {
	require.InDelta(t, MaxIDF(10), IDF(10, 1), 1e-9)
}

func TestFuse_RewardsConsensusOverEitherAlone(t *testing.T) {
	sem := Component{Value: 0.6, OK: true}
	tag := Component{Value: 0.4, OK: true}
	fused := Fuse(sem, tag)
	require.Greater(t, fused, sem.Value)
	require.Greater(t, fused, tag.Value)
}

func TestFuse_FallsBackToLoneComponent(t *testing.T) {
	sem := Component{Value: 0.6, OK: true}
	tag := Component{}
	require.InDelta(t, sem.Value, Fuse(sem, tag), 1e-9)
}

func TestClassify_AcceptsOnSemanticThresholdAlone(t *testing.T) {
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.25}
	verdict := Classify(Component{Value: 0.55, OK: true}, Component{}, nil, th)
	require.True(t, verdict.Accepted)
}

func TestClassify_AcceptsOnTagThresholdAlone(t *testing.T) {
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.25}
	verdict := Classify(Component{}, Component{Value: 0.35, OK: true}, nil, th)
	require.True(t, verdict.Accepted)
}

func TestClassify_AcceptsOnProjectFloorWithSharedProjectTag(t *testing.T) {
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.2}
	verdict := Classify(
		Component{Value: 0.2, OK: true},
		Component{Value: 0.2, OK: true},
		[]string{"project:forest"},
		th,
	)
	require.True(t, verdict.Accepted)
}

func TestClassify_DiscardsBelowAllThresholds(t *testing.T) {
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.25}
	verdict := Classify(Component{Value: 0.1, OK: true}, Component{Value: 0.1, OK: true}, nil, th)
	require.False(t, verdict.Accepted)
}

func TestScorePair_EndToEnd(t *testing.T) {
	idf := NewIDFTable(map[string]float64{"graph": 1.5}, 2.0)
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.25}

	result := ScorePair(PairInput{
		EmbeddingA: []float32{1, 0},
		EmbeddingB: []float32{1, 0},
		TagsA:      []string{"graph"},
		TagsB:      []string{"graph"},
	}, idf, th)

	require.True(t, result.Semantic.OK)
	require.True(t, result.Verdict.Accepted)
}

func TestScorePair_PopulatesLegacyComponents(t *testing.T) {
	idf := NewIDFTable(map[string]float64{"graph": 1.5}, 2.0)
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.25}

	result := ScorePair(PairInput{
		EmbeddingA:   []float32{1, 0},
		EmbeddingB:   []float32{1, 0},
		TagsA:        []string{"graph"},
		TagsB:        []string{"graph"},
		TitleA:       "Graph theory notes",
		TitleB:       "Graph theory introduction",
		TokenCountsA: map[string]int{"graph": 2, "theori": 1},
		TokenCountsB: map[string]int{"graph": 1, "theori": 1, "intro": 1},
	}, idf, th)

	require.Equal(t, result.Semantic.Value, result.Legacy.Embedding)
	require.Equal(t, result.Tag.Value, result.Legacy.Tag)
	require.Greater(t, result.Legacy.Token, 0.0)
	require.Greater(t, result.Legacy.Title, 0.0)
	require.Greater(t, result.Legacy.Combined, 0.0)
	require.LessOrEqual(t, result.Legacy.Combined, 1.0)
}

func TestScorePair_LegacyComponentsZeroWithoutTitleOrTokens(t *testing.T) {
	idf := NewIDFTable(map[string]float64{"graph": 1.5}, 2.0)
	th := Thresholds{SemThreshold: 0.5, TagThreshold: 0.3, ProjectFloor: 0.25}

	result := ScorePair(PairInput{
		EmbeddingA: []float32{1, 0},
		EmbeddingB: []float32{1, 0},
		TagsA:      []string{"graph"},
		TagsB:      []string{"graph"},
	}, idf, th)

	require.Equal(t, 0.0, result.Legacy.Token)
	require.Equal(t, 0.0, result.Legacy.Title)
}

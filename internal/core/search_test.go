package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchMetadata_RanksByTokenOverlap(t *testing.T) {
	// Given: one note about sqlite, one about gardening
	v := newTestVault(t)
	ctx := context.Background()

	match, err := v.Capture(ctx, CaptureInput{Title: "SQLite migration", Body: "moving the store to sqlite"})
	require.NoError(t, err)
	_, err = v.Capture(ctx, CaptureInput{Title: "Garden", Body: "pruning tomato plants"})
	require.NoError(t, err)

	// When: searching for sqlite
	results, err := v.SearchMetadata(ctx, "sqlite migration", MetadataSearchOptions{})
	require.NoError(t, err)

	// Then: the sqlite note ranks first with a positive score
	require.NotEmpty(t, results)
	assert.Equal(t, match.ID, results[0].Node.ID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchMetadata_TagFilterIsHard(t *testing.T) {
	// Given: two notes mentioning the same word, only one tagged #infra
	v := newTestVault(t)
	ctx := context.Background()

	tagged, err := v.Capture(ctx, CaptureInput{Title: "Deploy notes", Body: "deploy checklist #infra"})
	require.NoError(t, err)
	_, err = v.Capture(ctx, CaptureInput{Title: "Deploy diary", Body: "deploy went fine"})
	require.NoError(t, err)

	// When: searching with the tag filter
	results, err := v.SearchMetadata(ctx, "deploy", MetadataSearchOptions{Tags: []string{"infra"}})
	require.NoError(t, err)

	// Then: only the tagged note matches
	require.Len(t, results, 1)
	assert.Equal(t, tagged.ID, results[0].Node.ID)
}

func TestSearchMetadata_LimitBoundsResults(t *testing.T) {
	v := newTestVault(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := v.Capture(ctx, CaptureInput{Title: title, Body: "shared keyword clustering"})
		require.NoError(t, err)
	}

	results, err := v.SearchMetadata(ctx, "clustering", MetadataSearchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchSemantic_RanksIdenticalTextFirst(t *testing.T) {
	// Given: a note whose text will be used verbatim as the query, and a
	// distractor
	v := newTestVault(t)
	ctx := context.Background()

	target, err := v.Capture(ctx, CaptureInput{Title: "Bridge tags", Body: "bridge tags force linkage"})
	require.NoError(t, err)
	_, err = v.Capture(ctx, CaptureInput{Title: "Recipes", Body: "slow roasted vegetables"})
	require.NoError(t, err)

	// When: semantic search with the target's exact text
	results, err := v.SearchSemantic(ctx, "Bridge tags\nbridge tags force linkage", 2)
	require.NoError(t, err)

	// Then: the deterministic mock embedder puts the identical note first
	// at cosine ~1.0
	require.NotEmpty(t, results)
	assert.Equal(t, target.ID, results[0].Node.ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVectorIndex_AddAndSearch(t *testing.T) {
	idx := NewVectorIndex(3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"a", "b", "c"}, [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 0, 1},
	}))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].ID)
}

func TestVectorIndex_RejectsDimensionMismatch(t *testing.T) {
	idx := NewVectorIndex(3)
	err := idx.Add(context.Background(), []string{"a"}, [][]float32{{1, 0}})
	require.Error(t, err)
}

func TestVectorIndex_DeleteRemovesFromResults(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))
	require.False(t, idx.Contains("a"))
	require.Equal(t, 1, idx.Count())

	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, "a", r.ID)
	}
}

func TestVectorIndex_SaveLoadRoundTrip(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}))

	path := t.TempDir() + "/vectors.hnsw"
	require.NoError(t, idx.Save(path))

	loaded := NewVectorIndex(2)
	require.NoError(t, loaded.Load(path))
	require.True(t, loaded.Contains("a"))
	require.Equal(t, 2, loaded.Count())
}

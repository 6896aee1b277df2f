package forestid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresthq/forest/internal/store"
)

func TestCache_NodeIndexBuildsOnMiss(t *testing.T) {
	c := NewCache()
	calls := 0
	build := func() ([]string, error) {
		calls++
		return []string{"aaaa1111", "bbbb2222"}, nil
	}

	idx, err := c.NodeIndex(build)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 1, calls)
}

func TestCache_NodeIndexReturnsCachedOnHit(t *testing.T) {
	c := NewCache()
	calls := 0
	build := func() ([]string, error) {
		calls++
		return []string{"aaaa1111"}, nil
	}

	_, err := c.NodeIndex(build)
	require.NoError(t, err)
	_, err = c.NodeIndex(build)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call within the same generation should not rebuild")
}

func TestCache_NodeIndexRebuildsAfterInvalidate(t *testing.T) {
	c := NewCache()
	calls := 0
	build := func() ([]string, error) {
		calls++
		return []string{"aaaa1111"}, nil
	}

	_, err := c.NodeIndex(build)
	require.NoError(t, err)

	c.Invalidate()

	_, err = c.NodeIndex(build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "invalidate should force a rebuild on the next call")
}

func TestCache_NodeIndexPropagatesBuildError(t *testing.T) {
	c := NewCache()
	wantErr := errors.New("boom")
	_, err := c.NodeIndex(func() ([]string, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestCache_EdgeIndexBuildsOnMissAndResolvesHashes(t *testing.T) {
	c := NewCache()
	calls := 0
	pairs := []store.EdgePair{{SourceID: "aaaa1111", TargetID: "bbbb2222"}}
	build := func() ([]store.EdgePair, error) {
		calls++
		return pairs, nil
	}

	idx, table, err := c.EdgeIndex(build)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
	require.Equal(t, 1, calls)

	hash := EdgeHash("aaaa1111", "bbbb2222")
	matches := idx.Matches(hash[:8])
	require.Len(t, matches, 1)
	pair, ok := table[matches[0]]
	require.True(t, ok)
	assert.Equal(t, "aaaa1111", pair.SourceID)
	assert.Equal(t, "bbbb2222", pair.TargetID)
}

func TestCache_EdgeIndexReturnsCachedTableOnHit(t *testing.T) {
	c := NewCache()
	calls := 0
	pairs := []store.EdgePair{{SourceID: "aaaa1111", TargetID: "bbbb2222"}}
	build := func() ([]store.EdgePair, error) {
		calls++
		return pairs, nil
	}

	_, firstTable, err := c.EdgeIndex(build)
	require.NoError(t, err)
	_, secondTable, err := c.EdgeIndex(build)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call within the same generation should not rebuild")
	assert.Equal(t, firstTable, secondTable, "cached hit must still return the hash-to-pair table")
	assert.NotEmpty(t, secondTable, "a cache hit must not lose the lookup table")
}

func TestCache_EdgeIndexRebuildsAfterInvalidate(t *testing.T) {
	c := NewCache()
	calls := 0
	build := func() ([]store.EdgePair, error) {
		calls++
		return []store.EdgePair{{SourceID: "a", TargetID: "b"}}, nil
	}

	_, _, err := c.EdgeIndex(build)
	require.NoError(t, err)

	c.Invalidate()

	_, _, err = c.EdgeIndex(build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

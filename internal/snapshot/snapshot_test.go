package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresthq/forest/internal/store"
)

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forest.db")
	s, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putNode(t *testing.T, s *store.SQLiteStore, id string, at time.Time) {
	t.Helper()
	n := &store.Node{
		ID: id, Title: id, Body: id,
		Metadata: map[string]string{}, CreatedAt: at, UpdatedAt: at,
	}
	require.NoError(t, s.PutNode(context.Background(), nil, n))
}

func putEdge(t *testing.T, s *store.SQLiteStore, a, b string, at time.Time) {
	t.Helper()
	source, target := store.OrderedPair(a, b)
	e := &store.Edge{
		SourceID: source, TargetID: target, Score: 1,
		Status: store.StatusAccepted, Type: store.EdgeTypeManual,
		Metadata: map[string]string{}, CreatedAt: at, UpdatedAt: at,
	}
	require.NoError(t, s.UpsertEdge(context.Background(), nil, e, store.EdgeEventCreate, nil))
}

func TestCompare_DetectsAddedNodesAndEdges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-time.Hour)

	putNode(t, s, "a", t0)
	before, err := Take(ctx, s, t0)
	require.NoError(t, err)

	putNode(t, s, "b", t0)
	putEdge(t, s, "a", "b", t0)
	after, err := Take(ctx, s, time.Now().UTC())
	require.NoError(t, err)

	d := Compare(before, after)
	assert.Equal(t, []string{"b"}, d.AddedNodes)
	assert.Empty(t, d.RemovedNodes)
	assert.Empty(t, d.TouchedNodes)
	assert.Equal(t, [][2]string{{"a", "b"}}, d.AddedEdges)
	assert.False(t, d.IsEmpty())
}

func TestCompare_DetectsRemovedNodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.Now().UTC()

	putNode(t, s, "a", t0)
	putNode(t, s, "b", t0)
	before, err := Take(ctx, s, t0)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(ctx, nil, "b"))
	after, err := Take(ctx, s, time.Now().UTC())
	require.NoError(t, err)

	d := Compare(before, after)
	assert.Equal(t, []string{"b"}, d.RemovedNodes)
	assert.Empty(t, d.AddedNodes)
}

func TestCompare_DetectsTouchedNodeOnlyWhenUpdatedAtAdvances(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	t0 := time.Now().UTC().Add(-time.Hour)

	putNode(t, s, "a", t0)
	before, err := Take(ctx, s, t0)
	require.NoError(t, err)

	after, err := Take(ctx, s, time.Now().UTC())
	require.NoError(t, err)
	d := Compare(before, after)
	assert.Empty(t, d.TouchedNodes, "an unchanged node must not be reported as touched")

	t1 := time.Now().UTC()
	putNode(t, s, "a", t1)
	after2, err := Take(ctx, s, t1)
	require.NoError(t, err)
	d2 := Compare(before, after2)
	assert.Equal(t, []string{"a"}, d2.TouchedNodes)
}

func TestCompare_NoChangesIsEmptyDiff(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	putNode(t, s, "a", now)
	snap1, err := Take(ctx, s, now)
	require.NoError(t, err)
	snap2, err := Take(ctx, s, now)
	require.NoError(t, err)

	d := Compare(snap1, snap2)
	assert.True(t, d.IsEmpty())
}

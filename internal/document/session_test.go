package document

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresthq/forest/internal/embedgw"
	"github.com/foresthq/forest/internal/linking"
	"github.com/foresthq/forest/internal/scoring"
	"github.com/foresthq/forest/internal/store"
)

func openTestSession(t *testing.T, withEngine bool) (*Session, *store.SQLiteStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forest.db")
	s, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	gw := embedgw.NewMock(32)

	var engine *linking.Engine
	if withEngine {
		cfg := linking.Config{
			Thresholds: scoring.Thresholds{
				SemThreshold: 0.50,
				TagThreshold: 0.30,
				ProjectFloor: 0.25,
			},
			ANNCandidates:    100,
			BulkStrategy:     "brute-force",
			MaxHistoryEvents: 1000,
		}
		engine = linking.New(s, store.NewVectorIndex(32), gw, cfg)
	}

	return NewSession(s, gw, engine, 8), s
}

func TestImport_HeadersStrategyCreatesRootAndSegmentNodesAndEdges(t *testing.T) {
	sess, s := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	body := "# Intro\n\nWelcome.\n\n## Part One\n\nFirst part content.\n\n## Part Two\n\nSecond part content.\n"

	doc, err := sess.Import(ctx, "My Doc", body, ChunkingOptions{Strategy: StrategyHeaders, HeaderLevel: 2}, now)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.NotEmpty(t, doc.RootNodeID)
	assert.Equal(t, 1, doc.Version)

	chunks, err := s.ListDocumentChunks(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	root, err := s.GetNode(ctx, nil, doc.RootNodeID)
	require.NoError(t, err)
	assert.False(t, root.IsChunk)
	assert.Equal(t, "My Doc", root.Title)

	for i, c := range chunks {
		n, err := s.GetNode(ctx, nil, c.NodeID)
		require.NoError(t, err)
		assert.True(t, n.IsChunk)
		assert.Equal(t, doc.ID, n.ParentDocumentID)
		assert.Equal(t, i, n.ChunkOrder)

		parentEdge, err := s.GetEdge(ctx, nil, doc.RootNodeID, c.NodeID)
		require.NoError(t, err)
		require.NotNil(t, parentEdge)
		assert.Equal(t, store.EdgeTypeParentChild, parentEdge.Type)

		if i > 0 {
			seqEdge, err := s.GetEdge(ctx, nil, chunks[i-1].NodeID, c.NodeID)
			require.NoError(t, err)
			require.NotNil(t, seqEdge)
			assert.Equal(t, store.EdgeTypeSequential, seqEdge.Type)
		}
	}
}

func TestImport_SuppressRootSkipsRootNode(t *testing.T) {
	sess, _ := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	doc, err := sess.Import(ctx, "No Root", "Just one paragraph of content.", ChunkingOptions{Strategy: StrategySize, SuppressRoot: true}, now)
	require.NoError(t, err)
	assert.Empty(t, doc.RootNodeID)
}

func TestImport_EmptyBodyIsError(t *testing.T) {
	sess, _ := openTestSession(t, false)
	_, err := sess.Import(context.Background(), "Empty", "", ChunkingOptions{Strategy: StrategySize}, time.Now())
	assert.Error(t, err)
}

func TestOpenBufferRendersAndRoundTrips(t *testing.T) {
	sess, _ := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	body := "# Title\n\n## Alpha\n\nAlpha body.\n\n## Beta\n\nBeta body.\n"
	doc, err := sess.Import(ctx, "Doc", body, ChunkingOptions{Strategy: StrategyHeaders, HeaderLevel: 2}, now)
	require.NoError(t, err)

	buf, err := sess.OpenBuffer(ctx, doc.ID, "")
	require.NoError(t, err)
	assert.Contains(t, buf, "forest:segment start")

	parsed, err := ParseBuffer(buf)
	require.NoError(t, err)
	assert.Len(t, parsed, 3)
}

func TestSaveBuffer_UnchangedSegmentIsNotReembeddedOrReTagged(t *testing.T) {
	sess, s := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	body := "## Alpha\n\nAlpha body.\n\n## Beta\n\nBeta body.\n"
	doc, err := sess.Import(ctx, "Doc", body, ChunkingOptions{Strategy: StrategyHeaders, HeaderLevel: 2}, now)
	require.NoError(t, err)

	buf, err := sess.OpenBuffer(ctx, doc.ID, "")
	require.NoError(t, err)

	chunksBefore, err := s.ListDocumentChunks(ctx, nil, doc.ID)
	require.NoError(t, err)
	nodesBefore := make(map[string]*store.Node, len(chunksBefore))
	for _, c := range chunksBefore {
		n, err := s.GetNode(ctx, nil, c.NodeID)
		require.NoError(t, err)
		nodesBefore[c.NodeID] = n
	}

	later := now.Add(time.Hour)
	require.NoError(t, sess.SaveBuffer(ctx, doc.ID, buf, later))

	chunksAfter, err := s.ListDocumentChunks(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunksAfter, len(chunksBefore))

	for _, c := range chunksAfter {
		n, err := s.GetNode(ctx, nil, c.NodeID)
		require.NoError(t, err)
		before := nodesBefore[c.NodeID]
		assert.Equal(t, before.UpdatedAt, n.UpdatedAt, "unchanged segment body should not bump node UpdatedAt")
		assert.Equal(t, before.Body, n.Body)
	}

	updatedDoc, err := s.GetDocument(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updatedDoc.Version)
}

func TestSaveBuffer_ChangedSegmentBodyUpdatesNodeAndTags(t *testing.T) {
	sess, s := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	body := "## Alpha\n\nOriginal alpha body.\n\n## Beta\n\nOriginal beta body.\n"
	doc, err := sess.Import(ctx, "Doc", body, ChunkingOptions{Strategy: StrategyHeaders, HeaderLevel: 2}, now)
	require.NoError(t, err)

	parsedBefore, err := ParseBuffer(mustOpen(t, sess, doc.ID))
	require.NoError(t, err)
	targetSegID := parsedBefore[0].SegmentID

	buf := mustOpen(t, sess, doc.ID)
	edited := replaceSegmentBody(buf, targetSegID, "Completely rewritten alpha body with new words.")

	later := now.Add(time.Hour)
	require.NoError(t, sess.SaveBuffer(ctx, doc.ID, edited, later))

	chunks, err := s.ListDocumentChunks(ctx, nil, doc.ID)
	require.NoError(t, err)

	var changedFound bool
	for _, c := range chunks {
		if c.SegmentID == targetSegID {
			n, err := s.GetNode(ctx, nil, c.NodeID)
			require.NoError(t, err)
			assert.Contains(t, n.Body, "Completely rewritten alpha body")
			assert.Equal(t, later, n.UpdatedAt)
			changedFound = true
		}
	}
	assert.True(t, changedFound)
}

func TestSaveBuffer_MissingSegmentIsError(t *testing.T) {
	sess, _ := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	body := "## Alpha\n\nAlpha body.\n\n## Beta\n\nBeta body.\n"
	doc, err := sess.Import(ctx, "Doc", body, ChunkingOptions{Strategy: StrategyHeaders, HeaderLevel: 2}, now)
	require.NoError(t, err)

	buf, err := sess.OpenBuffer(ctx, doc.ID, "")
	require.NoError(t, err)

	parsed, err := ParseBuffer(buf)
	require.NoError(t, err)
	truncated := BuildBuffer("Doc", doc.RootNodeID, []Segment{
		{SegmentID: parsed[0].SegmentID, NodeID: parsed[0].NodeID, Title: parsed[0].Title, Body: parsed[0].Body, Order: 0},
	}, "")

	err = sess.SaveBuffer(ctx, doc.ID, truncated, now.Add(time.Hour))
	assert.Error(t, err)
}

func TestSaveBuffer_ReorderOnlyUpdatesChunkOrderNotBodyOrTags(t *testing.T) {
	sess, s := openTestSession(t, false)
	ctx := context.Background()
	now := time.Now().UTC()

	body := "## Alpha\n\nAlpha body.\n\n## Beta\n\nBeta body.\n"
	doc, err := sess.Import(ctx, "Doc", body, ChunkingOptions{Strategy: StrategyHeaders, HeaderLevel: 2}, now)
	require.NoError(t, err)

	chunksBefore, err := s.ListDocumentChunks(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunksBefore, 2)

	swapped := []Segment{
		{SegmentID: chunksBefore[1].SegmentID, NodeID: chunksBefore[1].NodeID, Title: "Beta", Body: "Beta body.", Order: 0},
		{SegmentID: chunksBefore[0].SegmentID, NodeID: chunksBefore[0].NodeID, Title: "Alpha", Body: "Alpha body.", Order: 1},
	}
	buf := BuildBuffer("Doc", doc.RootNodeID, swapped, "")

	later := now.Add(time.Hour)
	require.NoError(t, sess.SaveBuffer(ctx, doc.ID, buf, later))

	chunksAfter, err := s.ListDocumentChunks(ctx, nil, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunksAfter, 2)
	assert.Equal(t, chunksBefore[1].NodeID, chunksAfter[0].NodeID)
	assert.Equal(t, chunksBefore[0].NodeID, chunksAfter[1].NodeID)
}

func mustOpen(t *testing.T, sess *Session, docID string) string {
	t.Helper()
	buf, err := sess.OpenBuffer(context.Background(), docID, "")
	require.NoError(t, err)
	return buf
}

func replaceSegmentBody(buf, segID, newBody string) string {
	parsed, err := ParseBuffer(buf)
	if err != nil {
		return buf
	}
	segs := make([]Segment, len(parsed))
	for i, p := range parsed {
		body := p.Body
		if p.SegmentID == segID {
			body = newBody
		}
		segs[i] = Segment{SegmentID: p.SegmentID, NodeID: p.NodeID, Title: p.Title, Body: body, Order: p.Order}
	}
	return BuildBuffer("Doc", "", segs, "")
}

package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresthq/forest/internal/core"
	"github.com/foresthq/forest/internal/fconfig"
)

// newTestServer builds a Server over a real Vault in a temp directory with
// the deterministic mock embedder, so handler tests exercise the full
// stack without network or fixtures.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := fconfig.NewConfig()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Embeddings.Provider = "mock"
	cfg.Embeddings.CacheQueries = false

	v, err := core.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })

	s, err := NewServer(v)
	require.NoError(t, err)
	return s
}

// captureNode runs the capture handler and returns the created node.
func captureNode(t *testing.T, s *Server, title, body string) NodeOutput {
	t.Helper()
	_, out, err := s.handleCapture(context.Background(), nil, CaptureInput{Title: title, Body: body})
	require.NoError(t, err)
	require.NotEmpty(t, out.Node.ID)
	return out.Node
}

func TestCaptureTool_RoundTripsThroughRead(t *testing.T) {
	// Given: a captured node
	s := newTestServer(t)
	n := captureNode(t, s, "SQLite migration", "moving the store to sqlite #infra")
	assert.Contains(t, n.Tags, "infra")

	// When: reading it back by id prefix
	_, out, err := s.handleRead(context.Background(), nil, ReadInput{Ref: n.ID[:8]})

	// Then: the same node comes back
	require.NoError(t, err)
	assert.Equal(t, n.ID, out.Node.ID)
	assert.Equal(t, "SQLite migration", out.Node.Title)
}

func TestCaptureTool_EmptyInputIsInvalidParams(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleCapture(context.Background(), nil, CaptureInput{})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestReadTool_MissingNodeMapsToMethodNotFound(t *testing.T) {
	s := newTestServer(t)
	captureNode(t, s, "only", "node")

	_, _, err := s.handleRead(context.Background(), nil, ReadInput{Ref: "ffff"})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeMethodNotFound, me.Code)
}

func TestSearchMetadataTool_RanksAndFilters(t *testing.T) {
	// Given: a tagged note and a distractor
	s := newTestServer(t)
	target := captureNode(t, s, "Deploy notes", "deploy checklist #infra")
	captureNode(t, s, "Garden", "pruning tomato plants")

	// When: searching with the tag filter
	_, out, err := s.handleSearchMetadata(context.Background(), nil, SearchMetadataInput{Query: "deploy", Tags: []string{"infra"}})

	// Then: only the tagged note matches
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, target.ID, out.Results[0].Node.ID)
}

func TestSearchSemanticTool_RanksIdenticalTextFirst(t *testing.T) {
	s := newTestServer(t)
	target := captureNode(t, s, "Bridge tags", "bridge tags force linkage")
	captureNode(t, s, "Recipes", "slow roasted vegetables")

	_, out, err := s.handleSearchSemantic(context.Background(), nil, SearchSemanticInput{Query: "Bridge tags\nbridge tags force linkage", Limit: 2})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, target.ID, out.Results[0].Node.ID)
	assert.InDelta(t, 1.0, out.Results[0].Score, 1e-6)
}

func TestEdgeTools_ListExplainRejectCycle(t *testing.T) {
	// Given: two identical notes joined by capture-time auto-link
	s := newTestServer(t)
	ctx := context.Background()
	a := captureNode(t, s, "Pair", "shared text for both")
	b := captureNode(t, s, "Pair", "shared text for both")

	// edge_list shows the semantic edge
	_, list, err := s.handleEdgeList(ctx, nil, EdgeListInput{NodeRef: a.ID[:8]})
	require.NoError(t, err)
	require.Len(t, list.Edges, 1)
	assert.Equal(t, "semantic", list.Edges[0].Type)

	// edge_explain reports the semantic component and reason
	_, exp, err := s.handleEdgeExplain(ctx, nil, EdgePairInput{SourceRef: a.ID[:8], TargetRef: b.ID[:8]})
	require.NoError(t, err)
	require.NotNil(t, exp.Semantic)
	assert.InDelta(t, 1.0, *exp.Semantic, 1e-6)
	assert.Contains(t, exp.Reason, "SEM_THRESHOLD")

	// edge_reject deletes it
	_, _, err = s.handleEdgeReject(ctx, nil, EdgePairInput{SourceRef: a.ID[:8], TargetRef: b.ID[:8]})
	require.NoError(t, err)
	_, list, err = s.handleEdgeList(ctx, nil, EdgeListInput{NodeRef: a.ID[:8]})
	require.NoError(t, err)
	assert.Empty(t, list.Edges)
}

func TestEdgeLinkTool_CreatesManualEdge(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	a := captureNode(t, s, "Moss", "moss prefers shade")
	b := captureNode(t, s, "Flags", "inlining thresholds")

	_, _, err := s.handleEdgeLink(ctx, nil, EdgePairInput{SourceRef: a.ID[:8], TargetRef: b.ID[:8]})
	require.NoError(t, err)

	_, list, err := s.handleEdgeList(ctx, nil, EdgeListInput{NodeRef: a.ID[:8]})
	require.NoError(t, err)
	require.Len(t, list.Edges, 1)
	assert.Equal(t, "manual", list.Edges[0].Type)
}

func TestTagTools_ListRenameAddRemove(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	n := captureNode(t, s, "Draft post", "outline #draft")

	// tag_list shows the tag
	_, tags, err := s.handleTagList(ctx, nil, struct{}{})
	require.NoError(t, err)
	names := make([]string, 0, len(tags.Tags))
	for _, ti := range tags.Tags {
		names = append(names, ti.Tag)
	}
	assert.Contains(t, names, "draft")

	// tag_rename rewrites it
	_, _, err = s.handleTagRename(ctx, nil, TagRenameInput{OldTag: "draft", NewTag: "wip"})
	require.NoError(t, err)
	_, read, err := s.handleRead(ctx, nil, ReadInput{Ref: n.ID[:8]})
	require.NoError(t, err)
	assert.Contains(t, read.Node.Tags, "wip")
	assert.NotContains(t, read.Node.Tags, "draft")

	// tag_add / tag_remove round-trip
	_, _, err = s.handleTagAdd(ctx, nil, NodeTagInput{NodeRef: n.ID[:8], Tag: "link/alpha"})
	require.NoError(t, err)
	_, read, err = s.handleRead(ctx, nil, ReadInput{Ref: n.ID[:8]})
	require.NoError(t, err)
	assert.Contains(t, read.Node.Tags, "link/alpha")

	_, _, err = s.handleTagRemove(ctx, nil, NodeTagInput{NodeRef: n.ID[:8], Tag: "link/alpha"})
	require.NoError(t, err)
	_, read, err = s.handleRead(ctx, nil, ReadInput{Ref: n.ID[:8]})
	require.NoError(t, err)
	assert.NotContains(t, read.Node.Tags, "link/alpha")
}

func TestImportTool_ChunksAndReportsIDs(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleImport(context.Background(), nil, ImportInput{
		Title:    "Guide",
		Body:     "# Setup\n\ninstall the toolchain\n\n# Usage\n\nrun the binary\n",
		Strategy: "headers",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.DocumentID)
	assert.NotEmpty(t, out.RootNodeID)
	assert.Len(t, out.ChunkNodeIDs, 2)
}

func TestImportTool_MissingBodyIsInvalidParams(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleImport(context.Background(), nil, ImportInput{Title: "Guide"})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestSynthesizeTool_RecordsProvenance(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	a := captureNode(t, s, "Scoring", "dual layer scoring")
	b := captureNode(t, s, "Linking", "incremental linking")

	_, out, err := s.handleSynthesize(ctx, nil, SynthesizeInput{
		SourceRefs: []string{a.ID[:8], b.ID[:8]},
		Title:      "Digest",
		Body:       "scoring feeds linking",
	})
	require.NoError(t, err)
	assert.Equal(t, "synthesis", out.Node.Metadata["origin"])
	assert.Equal(t, a.ID+","+b.ID, out.Node.Metadata["sourceNodes"])
}

func TestSynthesizeTool_RequiresTwoSources(t *testing.T) {
	s := newTestServer(t)
	a := captureNode(t, s, "only", "one")

	_, _, err := s.handleSynthesize(context.Background(), nil, SynthesizeInput{
		SourceRefs: []string{a.ID[:8]},
		Title:      "t",
		Body:       "b",
	})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestAdminTools_UndoAndMigrate(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	// Nothing to undo in an empty vault
	_, undo, err := s.handleAdminUndo(ctx, nil, AdminUndoInput{Count: 3})
	require.NoError(t, err)
	assert.Zero(t, undo.Undone)

	// A fresh vault's schema is already current
	_, mig, err := s.handleAdminMigrate(ctx, nil, AdminMigrateInput{})
	require.NoError(t, err)
	assert.Equal(t, mig.ToVersion, mig.FromVersion)
}

func TestAdminBulkLinkTool_LinksCorpus(t *testing.T) {
	// Given: identical notes captured through the vault without linking
	s := newTestServer(t)
	ctx := context.Background()

	na, err := s.vault.Capture(ctx, core.CaptureInput{Title: "Pair", Body: "same words"})
	require.NoError(t, err)
	_, err = s.vault.Capture(ctx, core.CaptureInput{Title: "Pair", Body: "same words"})
	require.NoError(t, err)

	// When: bulk-linking everything
	_, _, err = s.handleAdminBulkLink(ctx, nil, AdminBulkLinkInput{})
	require.NoError(t, err)

	// Then: the pair is linked
	_, list, err := s.handleEdgeList(ctx, nil, EdgeListInput{NodeRef: na.ID[:8]})
	require.NoError(t, err)
	require.Len(t, list.Edges, 1)
	assert.Equal(t, "semantic", list.Edges[0].Type)
}

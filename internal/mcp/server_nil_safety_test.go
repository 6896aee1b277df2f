package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Handlers are invoked by the SDK with whatever the client sent; empty or
// zero-value inputs must come back as protocol errors, never panics.

func TestNewServer_NilVaultIsAnError(t *testing.T) {
	s, err := NewServer(nil)
	require.Error(t, err)
	assert.Nil(t, s)
}

func TestHandlers_ZeroValueInputsDoNotPanic(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	require.NotPanics(t, func() {
		_, _, _ = s.handleCapture(ctx, nil, CaptureInput{})
		_, _, _ = s.handleRead(ctx, nil, ReadInput{})
		_, _, _ = s.handleSearchMetadata(ctx, nil, SearchMetadataInput{})
		_, _, _ = s.handleSearchSemantic(ctx, nil, SearchSemanticInput{})
		_, _, _ = s.handleEdgeList(ctx, nil, EdgeListInput{})
		_, _, _ = s.handleEdgeAccept(ctx, nil, EdgePairInput{})
		_, _, _ = s.handleEdgeReject(ctx, nil, EdgePairInput{})
		_, _, _ = s.handleEdgeExplain(ctx, nil, EdgePairInput{})
		_, _, _ = s.handleEdgeLink(ctx, nil, EdgePairInput{})
		_, _, _ = s.handleTagList(ctx, nil, struct{}{})
		_, _, _ = s.handleTagRename(ctx, nil, TagRenameInput{})
		_, _, _ = s.handleTagAdd(ctx, nil, NodeTagInput{})
		_, _, _ = s.handleTagRemove(ctx, nil, NodeTagInput{})
		_, _, _ = s.handleImport(ctx, nil, ImportInput{})
		_, _, _ = s.handleSynthesize(ctx, nil, SynthesizeInput{})
		_, _, _ = s.handleAdminBulkLink(ctx, nil, AdminBulkLinkInput{})
		_, _, _ = s.handleAdminRescore(ctx, nil, AdminRescoreInput{})
		_, _, _ = s.handleAdminUndo(ctx, nil, AdminUndoInput{})
		_, _, _ = s.handleAdminMigrate(ctx, nil, AdminMigrateInput{})
	})
}

func TestHandleRead_EmptyRefIsInvalidParams(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleRead(context.Background(), nil, ReadInput{})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestHandleEdgeList_EmptyRefSurfacesError(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleEdgeList(context.Background(), nil, EdgeListInput{})
	require.Error(t, err)
}

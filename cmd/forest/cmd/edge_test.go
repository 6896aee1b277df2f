package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLinkedPair captures two identical notes so auto-link joins them,
// returning both printed id prefixes.
func captureLinkedPair(t *testing.T) (string, string) {
	t.Helper()
	out, err := runForest(t, "capture", "Pair", "shared text for both")
	require.NoError(t, err)
	a := capturedID(t, out)
	out, err = runForest(t, "capture", "Pair", "shared text for both")
	require.NoError(t, err)
	return a, capturedID(t, out)
}

func TestEdgeListCmd_ShowsSemanticEdge(t *testing.T) {
	// Given: a linked pair
	setupCLIVault(t)
	a, _ := captureLinkedPair(t)

	// When: listing edges for one endpoint
	out, err := runForest(t, "edge", "list", a)

	// Then: the semantic edge is printed
	require.NoError(t, err)
	assert.Contains(t, out, "semantic")
}

func TestEdgeExplainCmd_PrintsBreakdown(t *testing.T) {
	// Given: a linked pair
	setupCLIVault(t)
	a, b := captureLinkedPair(t)

	// When: explaining the edge
	out, err := runForest(t, "edge", "explain", a, b)

	// Then: components, fused score, and reason are printed
	require.NoError(t, err)
	assert.Contains(t, out, "semantic: 1.000")
	assert.Contains(t, out, "fused:")
	assert.Contains(t, out, "SEM_THRESHOLD")
}

func TestEdgeRejectCmd_DeletesEdge(t *testing.T) {
	// Given: a linked pair
	setupCLIVault(t)
	a, b := captureLinkedPair(t)

	// When: rejecting then explaining
	_, err := runForest(t, "edge", "reject", a, b)
	require.NoError(t, err)

	// Then: there is no edge left to explain
	_, err = runForest(t, "edge", "explain", a, b)
	require.Error(t, err)
}

func TestEdgeLinkCmd_ManuallyJoinsDissimilarNodes(t *testing.T) {
	// Given: two unrelated notes
	setupCLIVault(t)
	out, err := runForest(t, "capture", "Moss", "moss prefers shade")
	require.NoError(t, err)
	a := capturedID(t, out)
	out, err = runForest(t, "capture", "Flags", "inlining thresholds")
	require.NoError(t, err)
	b := capturedID(t, out)

	// When: linking them manually
	_, err = runForest(t, "edge", "link", a, b)
	require.NoError(t, err)

	// Then: the manual edge shows up and explains itself as manual
	out, err = runForest(t, "edge", "explain", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "manually linked")
}

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeCmd_PersistsProvenanceNode(t *testing.T) {
	// Given: two source notes
	setupCLIVault(t)
	out, err := runForest(t, "capture", "Scoring", "dual layer scoring")
	require.NoError(t, err)
	a := capturedID(t, out)
	out, err = runForest(t, "capture", "Linking", "incremental linking")
	require.NoError(t, err)
	b := capturedID(t, out)

	// When: synthesizing with a caller-supplied body
	out, err = runForest(t, "synthesize", a, b, "--title", "Digest", "--body", "scoring feeds linking")

	// Then: the new node is reported with its source count
	require.NoError(t, err)
	assert.Contains(t, out, "synthesized")
	assert.Contains(t, out, "Digest")
	assert.Contains(t, out, "from 2 sources")
}

func TestSynthesizeCmd_RequiresTitle(t *testing.T) {
	setupCLIVault(t)
	out, err := runForest(t, "capture", "a", "first")
	require.NoError(t, err)
	a := capturedID(t, out)
	out, err = runForest(t, "capture", "b", "second")
	require.NoError(t, err)
	b := capturedID(t, out)

	_, err = runForest(t, "synthesize", a, b, "--body", "text")
	require.Error(t, err)
}

func TestSynthesizeCmd_RequiresTwoSources(t *testing.T) {
	setupCLIVault(t)
	out, err := runForest(t, "capture", "only", "one source")
	require.NoError(t, err)
	a := capturedID(t, out)

	_, err = runForest(t, "synthesize", a, "--title", "t", "--body", "b")
	require.Error(t, err)
}

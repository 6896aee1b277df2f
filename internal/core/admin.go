package core

import (
	"context"

	"github.com/foresthq/forest/internal/linking"
	"github.com/foresthq/forest/internal/snapshot"
)

// ImportDocument splits body into segments per opts and materializes the
// root/segment nodes, structural edges, and Document row, delegating to
// the document session.
func (v *Vault) ImportDocument(ctx context.Context, title, body string, opts DocumentImportOptions) (*DocumentImportResult, error) {
	doc, err := v.Session.Import(ctx, title, body, opts.toChunkingOptions(), now())
	if err != nil {
		return nil, err
	}
	v.Resolver.Invalidate()

	chunks, err := v.Store.ListDocumentChunks(ctx, nil, doc.ID)
	if err != nil {
		return nil, err
	}
	nodeIDs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		nodeIDs = append(nodeIDs, c.NodeID)
	}
	return &DocumentImportResult{Document: doc, ChunkNodeIDs: nodeIDs}, nil
}

// BulkLink runs pairwise bulk linking over queryIDs against the whole
// corpus, selecting the brute-force or optimized candidate strategy per
// v.Config.Linking.BulkStrategy.
func (v *Vault) BulkLink(ctx context.Context, queryIDs []string) error {
	if err := v.Engine.LinkBulk(ctx, queryIDs, now()); err != nil {
		return err
	}
	v.Resolver.Invalidate()
	return nil
}

// RescoreAll rebuilds tag_idf and recomputes every pair's score across
// the whole corpus, optionally re-embedding nodes whose embedding is
// stale or absent.
func (v *Vault) RescoreAll(ctx context.Context, layer linking.ScoreLayer, reEmbed bool) error {
	err := v.Engine.Rescore(ctx, linking.RescoreOptions{
		Layer:      layer,
		ReEmbed:    reEmbed,
		ActiveDims: v.Gateway.Dimensions(),
	}, now())
	if err != nil {
		return err
	}
	v.Resolver.Invalidate()
	return nil
}

// ReembedAll is RescoreAll restricted to the re-embed pass: every node
// whose embedding is absent or dimension-mismatched against the active
// provider is re-embedded and its semantic score recomputed. Tag scores
// are left untouched since re-embedding does not change a node's tag set.
func (v *Vault) ReembedAll(ctx context.Context) error {
	return v.RescoreAll(ctx, linking.ScoreLayerSemanticOnly, true)
}

// MigrateStorage applies any pending storage-schema migrations, returning
// the version found and the version reached. from == to means the schema
// was already current.
func (v *Vault) MigrateStorage(ctx context.Context) (from, to int, err error) {
	return v.Store.Migrate(ctx)
}

// Snapshot captures the current graph's node/edge identity and freshness
// for later comparison, letting a caller persist it and diff against a
// later Snapshot call.
func (v *Vault) Snapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	return snapshot.Take(ctx, v.Store, now())
}

// Undo reverts the last n edge-events in reverse chronological order,
// returning how many were actually undone (fewer than n if history is
// shorter).
func (v *Vault) Undo(ctx context.Context, n int) (int, error) {
	count, err := v.Engine.Undo(ctx, n, now())
	if err != nil {
		return count, err
	}
	v.Resolver.Invalidate()
	return count, nil
}

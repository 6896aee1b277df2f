package linking

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foresthq/forest/internal/store"
)

// reembedConcurrency bounds how many embedding calls reembedStaleNodes
// fans out at once.
const reembedConcurrency = 8

// ScoreLayer selects which score components a full rescore recomputes.
type ScoreLayer int

const (
	ScoreLayerBoth ScoreLayer = iota
	ScoreLayerSemanticOnly
	ScoreLayerTagOnly
)

// RescoreOptions configures a full rescore pass.
type RescoreOptions struct {
	Layer      ScoreLayer
	ReEmbed    bool // re-embed nodes whose embedding is absent or dimension-mismatched
	ActiveDims int  // the embedding gateway's current dimension, for mismatch detection
}

// Rescore rebuilds tag_idf from scratch and recomputes every pair's score
// across the whole corpus, optionally re-embedding nodes whose embedding
// is absent or stale.
func (e *Engine) Rescore(ctx context.Context, opts RescoreOptions, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = b.Rollback()
		}
	}()

	idf, err := e.rebuildIDF(ctx, b, now)
	if err != nil {
		return err
	}

	if opts.ReEmbed {
		if err := e.reembedStaleNodes(ctx, b, opts.ActiveDims, now); err != nil {
			return err
		}
	}

	projection, err := e.store.ListScoringProjection(ctx, b)
	if err != nil {
		return err
	}

	var pairs []pairKey
	for i, q := range projection {
		for _, x := range projection[i+1:] {
			pairs = append(pairs, newPairKey(q.ID, x.ID))
		}
	}

	// unreachableThreshold disables the other layer's threshold path
	// without touching ScorePair's component computation itself: both
	// components are still computed and stored. The project-floor path,
	// which tests the fused score of both components, stays active.
	const unreachableThreshold = 2.0
	effective := e.cfg
	switch opts.Layer {
	case ScoreLayerSemanticOnly:
		effective.Thresholds.TagThreshold = unreachableThreshold
	case ScoreLayerTagOnly:
		effective.Thresholds.SemThreshold = unreachableThreshold
	}
	prior := e.cfg
	e.cfg = effective
	defer func() { e.cfg = prior }()

	if err := e.reconcilePairs(ctx, b, pairs, idf, now); err != nil {
		return err
	}

	if err := b.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// reembedStaleNodes re-embeds every node whose embedding is absent or
// whose dimension does not match the active provider. A failed embed is
// logged and leaves that node's stored embedding as it was (absent or of
// the old dimension); the rescore continues.
func (e *Engine) reembedStaleNodes(ctx context.Context, b *store.Batch, activeDims int, now time.Time) error {
	if e.gateway == nil || e.gateway.Provider() == "none" {
		return nil
	}

	nodes, err := e.store.ListAllNodes(ctx, b)
	if err != nil {
		return err
	}

	var stale []*store.Node
	for _, n := range nodes {
		if !(n.HasEmbedding() && n.Dims() == activeDims) {
			stale = append(stale, n)
		}
	}

	// Embedding calls are pure network/model I/O with no access to b, so
	// they can fan out concurrently; the resulting node writes are applied
	// sequentially afterward since b's underlying *sql.Tx is not safe for
	// concurrent use.
	vecs := make([][]float32, len(stale))
	embedErrs := make([]error, len(stale))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reembedConcurrency)
	for i, n := range stale {
		i, n := i, n
		g.Go(func() error {
			vec, err := e.gateway.Embed(gctx, n.Title+"\n"+n.Body)
			if err != nil {
				embedErrs[i] = err
				return nil
			}
			vecs[i] = vec
			return nil
		})
	}
	_ = g.Wait() // per-node EmbeddingFailure degrades that node only, never aborts the batch

	var errCount int
	for i, n := range stale {
		if embedErrs[i] != nil {
			slog.Warn("rescore: re-embed failed, continuing with tag score only",
				slog.String("node_id", n.ID), slog.String("error", embedErrs[i].Error()))
			errCount++
			continue
		}
		if vecs[i] == nil {
			continue
		}
		n.Embedding = store.EncodeEmbedding(vecs[i])
		n.EmbeddingDim = len(vecs[i])
		n.UpdatedAt = now
		if err := e.store.PutNode(ctx, b, n); err != nil {
			return err
		}
	}
	if errCount > 0 {
		slog.Warn("rescore: re-embed completed with errors", slog.Int("error_count", errCount))
	}
	return nil
}

package linking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/scoring"
	"github.com/foresthq/forest/internal/store"
)

// legacyScoreMetadataKey is the edge.Metadata key carrying the pre-v2
// convex-combination formula, observability only. It never drives
// classification.
const legacyScoreMetadataKey = "legacy_score_components"

// LinkNode rescans node N against candidates (all other nodes, if
// candidates is nil) and brings N's semantic edges in line with the
// current scoring kernel output. Non-semantic edges are never touched.
func (e *Engine) LinkNode(ctx context.Context, nodeID string, candidateIDs []string, now time.Time) error {
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

	if err := withTransientRetry(ctx, func() error {
		return e.linkNodeLocked(ctx, b, nodeID, candidateIDs, now)
	}); err != nil {
		return err
	}

	if err := b.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (e *Engine) linkNodeLocked(ctx context.Context, b *store.Batch, nodeID string, candidateIDs []string, now time.Time) error {
	n, err := e.store.GetNode(ctx, b, nodeID)
	if err != nil {
		return err
	}

	// Rebuilt fresh rather than loaded from cache: the tag_idf cache is
	// only guaranteed current immediately after a bulk operation, and a
	// single incremental link is still O(N).
	idf, err := e.rebuildIDF(ctx, b, now)
	if err != nil {
		return err
	}

	candidates := candidateIDs
	if candidates == nil {
		candidates, err = e.allOtherNodeIDs(ctx, b, nodeID)
		if err != nil {
			return err
		}
	}

	var errCount int
	for _, otherID := range candidates {
		if otherID == nodeID {
			continue
		}
		if err := e.scoreAndReconcile(ctx, b, n, otherID, idf, now); err != nil {
			slog.Warn("incremental link: failed to reconcile pair",
				slog.String("node_id", nodeID),
				slog.String("other_id", otherID),
				slog.String("error", err.Error()))
			errCount++
			continue
		}
	}
	if errCount > 0 {
		slog.Warn("incremental link completed with errors",
			slog.String("node_id", nodeID),
			slog.Int("error_count", errCount),
			slog.Int("candidate_count", len(candidates)))
	}
	return nil
}

// scoreAndReconcile scores n against otherID, then upserts or deletes the
// semantic edge between them to match the verdict.
func (e *Engine) scoreAndReconcile(ctx context.Context, b *store.Batch, n *store.Node, otherID string, idf *idfContext, now time.Time) error {
	other, err := e.store.GetNode(ctx, b, otherID)
	if err != nil {
		if ferrors.Code(err) == ferrors.ErrCodeNotFound {
			return nil
		}
		return err
	}

	result := scoring.ScorePair(pairInput(n, other), idf.table, e.cfg.Thresholds)

	existing, err := e.store.GetEdge(ctx, b, n.ID, other.ID)
	if err != nil {
		return err
	}
	if existing != nil && existing.Type != store.EdgeTypeSemantic {
		// parent-child/sequential/manual edges are never touched here.
		return nil
	}

	if !result.Verdict.Accepted {
		if existing == nil {
			return nil
		}
		return e.store.DeleteEdge(ctx, b, n.ID, other.ID, now)
	}

	edge := edgeFromVerdict(n.ID, other.ID, result, now, existing)
	kind := store.EdgeEventCreate
	if existing != nil {
		kind = store.EdgeEventScoreChange
		edge.CreatedAt = existing.CreatedAt
	}
	return e.store.UpsertEdge(ctx, b, edge, kind, existing)
}

func edgeFromVerdict(a, c string, result scoring.PairResult, now time.Time, existing *store.Edge) *store.Edge {
	source, target := store.OrderedPair(a, c)
	e := &store.Edge{
		SourceID:   source,
		TargetID:   target,
		SharedTags: result.SharedTags,
		Score:      result.Verdict.Fused,
		Status:     store.StatusAccepted,
		Type:       store.EdgeTypeSemantic,
		Metadata:   map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if result.Semantic.OK {
		v := result.Semantic.Value
		e.SemanticScore = &v
	}
	if result.Tag.OK {
		v := result.Tag.Value
		e.TagScore = &v
	}
	if existing != nil {
		for k, v := range existing.Metadata {
			e.Metadata[k] = v
		}
	}
	if legacyJSON, err := json.Marshal(result.Legacy); err != nil {
		slog.Warn("incremental link: failed to marshal legacy score components", slog.String("error", err.Error()))
	} else {
		e.Metadata[legacyScoreMetadataKey] = string(legacyJSON)
	}
	return e
}

func (e *Engine) allOtherNodeIDs(ctx context.Context, b *store.Batch, nodeID string) ([]string, error) {
	projection, err := e.store.ListScoringProjection(ctx, b)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(projection))
	for _, p := range projection {
		if p.ID != nodeID {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

package core

import (
	"context"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/store"
)

// ListEdges returns every edge touching nodeID.
func (v *Vault) ListEdges(ctx context.Context, nodeID string) ([]*store.Edge, error) {
	return v.Store.ListEdgesForNode(ctx, nil, nodeID)
}

// AcceptEdge is a no-op: every live edge already has status=accepted (the
// historical "suggested" state is never produced on write), so there is
// nothing left for an explicit accept to do. Kept as a named operation so
// older front ends that still call accept keep working.
func (v *Vault) AcceptEdge(ctx context.Context, sourceRef, targetRef string) error {
	e, err := v.Store.GetEdge(ctx, nil, sourceRef, targetRef)
	if err != nil {
		return err
	}
	if e == nil {
		return ferrors.NotFound("edge not found", nil)
	}
	return nil
}

// RejectEdge deletes the edge between a and c outright, appending a
// delete edge-event.
func (v *Vault) RejectEdge(ctx context.Context, a, c string) error {
	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	if err := v.Store.DeleteEdge(ctx, b, a, c, now()); err != nil {
		_ = b.Rollback()
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}
	v.Resolver.Invalidate()
	return nil
}

// EdgeExplanation is the structured answer to the explain operation:
// the two component scores, the shared tags, the fused score, and which
// acceptance rule fired.
type EdgeExplanation struct {
	Semantic   *float64
	Tag        *float64
	SharedTags []string
	Fused      float64
	Reason     string
}

// ExplainEdge returns the scoring breakdown of the edge between a and c.
func (v *Vault) ExplainEdge(ctx context.Context, a, c string) (*EdgeExplanation, error) {
	e, err := v.Store.GetEdge(ctx, nil, a, c)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ferrors.NotFound("edge not found", nil)
	}
	return &EdgeExplanation{
		Semantic:   e.SemanticScore,
		Tag:        e.TagScore,
		SharedTags: e.SharedTags,
		Fused:      e.Score,
		Reason:     explainReason(e),
	}, nil
}

func explainReason(e *store.Edge) string {
	switch e.Type {
	case store.EdgeTypeParentChild:
		return "document structural edge (parent-child)"
	case store.EdgeTypeSequential:
		return "document structural edge (sequential segment order)"
	case store.EdgeTypeManual:
		return "manually linked"
	default:
		switch {
		case e.SemanticScore != nil && *e.SemanticScore >= 0.5:
			return "semantic similarity met SEM_THRESHOLD"
		case e.TagScore != nil && *e.TagScore >= 0.3:
			return "shared tags met TAG_THRESHOLD"
		default:
			return "shared project tag met PROJECT_FLOOR"
		}
	}
}

// LinkManual creates or replaces a manual edge between a and c, bypassing
// the scoring thresholds entirely: manual edges come from explicit user
// linking and are maintained independently of thresholds.
func (v *Vault) LinkManual(ctx context.Context, a, c string) error {
	if a == c {
		return ferrors.Validation("cannot link a node to itself", nil)
	}
	source, target := store.OrderedPair(a, c)
	at := now()
	e := &store.Edge{
		SourceID:  source,
		TargetID:  target,
		Score:     1,
		Status:    store.StatusAccepted,
		Type:      store.EdgeTypeManual,
		Metadata:  map[string]string{},
		CreatedAt: at,
		UpdatedAt: at,
	}

	b, err := v.Store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	existing, _ := v.Store.GetEdge(ctx, b, source, target)
	if existing != nil {
		e.CreatedAt = existing.CreatedAt
	}
	if err := v.Store.UpsertEdge(ctx, b, e, store.EdgeEventCreate, existing); err != nil {
		_ = b.Rollback()
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}
	v.Resolver.Invalidate()
	return nil
}

package linking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foresthq/forest/internal/ferrors"
	"github.com/foresthq/forest/internal/store"
)

// Undo reverts up to n not-yet-undone edge_events in reverse chronological
// order, flipping each to undone=true and restoring the edge to its
// pre-event state. A re-do cycle is not supported.
func (e *Engine) Undo(ctx context.Context, n int, now time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.store.BeginBatch(ctx)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = b.Rollback()
		}
	}()

	events, err := e.store.ListEdgeEvents(ctx, b, n)
	if err != nil {
		return 0, err
	}

	var undone int
	for _, ev := range events {
		if err := e.undoOne(ctx, b, ev, now); err != nil {
			return undone, err
		}
		if err := e.store.MarkEdgeEventUndone(ctx, b, ev.ID); err != nil {
			return undone, err
		}
		undone++
	}

	if err := b.Commit(); err != nil {
		return undone, err
	}
	committed = true
	return undone, nil
}

// undoOne reverts a single event's effect: create undoes to a delete,
// delete undoes to a recreate from its payload pre-image, and
// score_change/status_change undo to the payload's prior edge state.
func (e *Engine) undoOne(ctx context.Context, b *store.Batch, ev *store.EdgeEvent, now time.Time) error {
	switch ev.Kind {
	case store.EdgeEventCreate:
		return e.store.DeleteEdge(ctx, b, ev.EdgeSource, ev.EdgeTarget, now)
	case store.EdgeEventDelete, store.EdgeEventScoreChange, store.EdgeEventStatusChange:
		var prior store.Edge
		if err := json.Unmarshal([]byte(ev.Payload), &prior); err != nil {
			return ferrors.New(ferrors.ErrCodeValidation, "unmarshal edge event payload", err)
		}
		prior.UpdatedAt = now
		current, err := e.store.GetEdge(ctx, b, ev.EdgeSource, ev.EdgeTarget)
		if err != nil {
			return err
		}
		return e.store.UpsertEdge(ctx, b, &prior, store.EdgeEventCreate, current)
	default:
		return ferrors.Internal("unknown edge event kind: "+string(ev.Kind), nil)
	}
}

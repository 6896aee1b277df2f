package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/foresthq/forest/internal/ferrors"
)

// UpsertEdge writes e's current state and appends the corresponding
// edge_event. kind describes the transition for the history record;
// prev is the edge's pre-mutation state (nil for a true create,
// i.e. no edge existed for this pair before this write) and is what gets
// marshaled as the event's payload pre-image, matching DeleteEdge's
// already-correct "marshal existing before mutating" pattern. Passing the
// edge being written (e) instead of prev here would make undo replay the
// post-mutation state, not the state it is supposed to restore.
func (s *SQLiteStore) UpsertEdge(ctx context.Context, b *Batch, e *Edge, kind EdgeEventKind, prev *Edge) error {
	source, target := e.Key()

	var prevStatus EdgeStatus
	if prev != nil {
		prevStatus = prev.Status
	}

	sharedJSON, err := json.Marshal(e.SharedTags)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal shared tags", err)
	}
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal edge metadata", err)
	}

	q := s.q(b)
	_, err = q.ExecContext(ctx, `
		INSERT INTO edges (source_id, target_id, semantic_score, tag_score, shared_tags,
			score, status, edge_type, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id) DO UPDATE SET
			semantic_score = excluded.semantic_score,
			tag_score = excluded.tag_score,
			shared_tags = excluded.shared_tags,
			score = excluded.score,
			status = excluded.status,
			edge_type = excluded.edge_type,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, source, target, e.SemanticScore, e.TagScore, string(sharedJSON),
		e.Score, string(e.Status), string(e.Type), string(metaJSON), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "upsert edge", err)
	}

	payload, err := json.Marshal(prev)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal edge event payload", err)
	}
	return s.appendEdgeEvent(ctx, b, source, target, kind, prevStatus, e.Status, string(payload), e.UpdatedAt)
}

func (s *SQLiteStore) appendEdgeEvent(ctx context.Context, b *Batch, source, target string, kind EdgeEventKind, prev, next EdgeStatus, payload string, at interface{}) error {
	q := s.q(b)
	_, err := q.ExecContext(ctx, `
		INSERT INTO edge_events (source_id, target_id, kind, prev_status, next_status, payload, created_at, undone)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)
	`, source, target, string(kind), string(prev), string(next), payload, at)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "append edge event", err)
	}
	return nil
}

// GetEdge loads the edge for the ordered pair (a, b), reordering if needed.
func (s *SQLiteStore) GetEdge(ctx context.Context, b *Batch, a, c string) (*Edge, error) {
	source, target := OrderedPair(a, c)
	q := s.q(b)
	row := q.QueryRowContext(ctx, `
		SELECT source_id, target_id, semantic_score, tag_score, shared_tags,
			score, status, edge_type, metadata, created_at, updated_at
		FROM edges WHERE source_id = ? AND target_id = ?`, source, target)

	e, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "get edge", err)
	}
	return e, nil
}

func scanEdge(row rowScanner) (*Edge, error) {
	var e Edge
	var sharedJSON, metaJSON, status, edgeType string
	err := row.Scan(&e.SourceID, &e.TargetID, &e.SemanticScore, &e.TagScore, &sharedJSON,
		&e.Score, &status, &edgeType, &metaJSON, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = EdgeStatus(status)
	e.Type = EdgeType(edgeType)
	if err := json.Unmarshal([]byte(sharedJSON), &e.SharedTags); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEdge removes the edge for (a, b) if it exists, recording a delete
// event with its pre-image. Returns nil if no edge existed.
func (s *SQLiteStore) DeleteEdge(ctx context.Context, b *Batch, a, c string, at interface{}) error {
	existing, err := s.GetEdge(ctx, b, a, c)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	source, target := existing.Key()
	q := s.q(b)
	if _, err := q.ExecContext(ctx, `DELETE FROM edges WHERE source_id = ? AND target_id = ?`, source, target); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "delete edge", err)
	}

	payload, err := json.Marshal(existing)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal edge event payload", err)
	}
	return s.appendEdgeEvent(ctx, b, source, target, EdgeEventDelete, existing.Status, "", string(payload), at)
}

// ListEdgesForNode returns every edge touching nodeID, any type.
func (s *SQLiteStore) ListEdgesForNode(ctx context.Context, b *Batch, nodeID string) ([]*Edge, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT source_id, target_id, semantic_score, tag_score, shared_tags,
			score, status, edge_type, metadata, created_at, updated_at
		FROM edges WHERE source_id = ? OR target_id = ?`, nodeID, nodeID)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list edges for node", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan edge", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ListSemanticEdgesForNode returns only edgeType=semantic edges touching
// nodeID, the subset incremental link is allowed to mutate.
// Parent-child, sequential, and manual edges are preserved regardless of
// score.
func (s *SQLiteStore) ListSemanticEdgesForNode(ctx context.Context, b *Batch, nodeID string) ([]*Edge, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT source_id, target_id, semantic_score, tag_score, shared_tags,
			score, status, edge_type, metadata, created_at, updated_at
		FROM edges WHERE (source_id = ? OR target_id = ?) AND edge_type = ?`,
		nodeID, nodeID, string(EdgeTypeSemantic))
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list semantic edges for node", err)
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan edge", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// ListEdgeEvents returns up to limit not-yet-undone edge_events ordered
// most-recent-first, used by undo.
func (s *SQLiteStore) ListEdgeEvents(ctx context.Context, b *Batch, limit int) ([]*EdgeEvent, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT id, source_id, target_id, kind, prev_status, next_status, payload, created_at, undone
		FROM edge_events WHERE undone = 0 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list edge events", err)
	}
	defer rows.Close()

	var events []*EdgeEvent
	for rows.Next() {
		var ev EdgeEvent
		var kind, prev, next string
		var undone int
		if err := rows.Scan(&ev.ID, &ev.EdgeSource, &ev.EdgeTarget, &kind, &prev, &next, &ev.Payload, &ev.CreatedAt, &undone); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan edge event", err)
		}
		ev.Kind = EdgeEventKind(kind)
		ev.PrevStatus = EdgeStatus(prev)
		ev.NextStatus = EdgeStatus(next)
		ev.Undone = undone != 0
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// MarkEdgeEventUndone flips the undone flag for one event.
func (s *SQLiteStore) MarkEdgeEventUndone(ctx context.Context, b *Batch, eventID int64) error {
	q := s.q(b)
	if _, err := q.ExecContext(ctx, `UPDATE edge_events SET undone = 1 WHERE id = ?`, eventID); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "mark edge event undone", err)
	}
	return nil
}

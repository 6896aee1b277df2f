package store

import (
	"context"

	"github.com/foresthq/forest/internal/ferrors"
)

// ListScoringProjection reads the lightweight "no bodies" projection used
// by bulk link and full rescore.
func (s *SQLiteStore) ListScoringProjection(ctx context.Context, b *Batch) ([]*ScoringProjection, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `SELECT id, embedding FROM nodes ORDER BY id`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list scoring projection", err)
	}
	defer rows.Close()

	projections := make(map[string]*ScoringProjection)
	var order []string
	for rows.Next() {
		var id string
		var embedding []byte
		if err := rows.Scan(&id, &embedding); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan scoring projection", err)
		}
		projections[id] = &ScoringProjection{ID: id, Embedding: embedding}
		order = append(order, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "iterate scoring projection", err)
	}
	rows.Close()

	tagRows, err := q.QueryContext(ctx, `SELECT node_id, tag FROM node_tags`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list node tags for projection", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var nodeID, tag string
		if err := tagRows.Scan(&nodeID, &tag); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan projection tag", err)
		}
		if p, ok := projections[nodeID]; ok {
			p.Tags = append(p.Tags, tag)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "iterate projection tags", err)
	}

	result := make([]*ScoringProjection, 0, len(order))
	for _, id := range order {
		result = append(result, projections[id])
	}
	return result, nil
}

package store

import (
	"context"
	"database/sql"

	"github.com/foresthq/forest/internal/ferrors"
)

// ListNodeIDs returns every node id, used to build the progressive-id
// prefix index without paying for bodies/embeddings.
func (s *SQLiteStore) ListNodeIDs(ctx context.Context, b *Batch) ([]string, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `SELECT id FROM nodes ORDER BY id`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list node ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan node id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EdgePair is the ordered endpoint pair of one edge, enough to derive its
// progressive-id hash without loading scores or metadata.
type EdgePair struct {
	SourceID string
	TargetID string
}

// ListEdgePairs returns every edge's ordered endpoint pair, used to build
// the edge progressive-id prefix index.
func (s *SQLiteStore) ListEdgePairs(ctx context.Context, b *Batch) ([]EdgePair, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `SELECT source_id, target_id FROM edges ORDER BY source_id, target_id`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list edge pairs", err)
	}
	defer rows.Close()

	var pairs []EdgePair
	for rows.Next() {
		var p EdgePair
		if err := rows.Scan(&p.SourceID, &p.TargetID); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan edge pair", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// FindNodesByTag returns every node carrying tag (case-insensitive),
// most-recently-updated first, for the `#tag` reference form.
func (s *SQLiteStore) FindNodesByTag(ctx context.Context, b *Batch, tag string) ([]*Node, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT n.id, n.title, n.body, n.token_counts, n.embedding, n.embedding_dim,
			n.is_chunk, n.parent_document_id, n.chunk_order, n.metadata, n.created_at, n.updated_at
		FROM nodes n
		JOIN node_tags t ON t.node_id = n.id
		WHERE LOWER(t.tag) = LOWER(?)
		ORDER BY n.updated_at DESC, n.id ASC`, tag)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "find nodes by tag", err)
	}
	defer rows.Close()
	return s.scanNodeRowsWithTags(ctx, b, rows)
}

// SearchNodesByTitleFragment returns every node whose title contains
// fragment (case-insensitive substring), most-recently-updated first, for
// the `"fragment"` reference form.
func (s *SQLiteStore) SearchNodesByTitleFragment(ctx context.Context, b *Batch, fragment string) ([]*Node, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, body, token_counts, embedding, embedding_dim,
			is_chunk, parent_document_id, chunk_order, metadata, created_at, updated_at
		FROM nodes
		WHERE title LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY updated_at DESC, id ASC`, fragment)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "search nodes by title", err)
	}
	defer rows.Close()
	return s.scanNodeRowsWithTags(ctx, b, rows)
}

// scanNodeRowsWithTags scans every row into a Node and backfills its tag
// set, mirroring GetNode: a caller that round-trips a returned node
// through PutNode would otherwise silently wipe its tags (see
// ListAllNodes).
func (s *SQLiteStore) scanNodeRowsWithTags(ctx context.Context, b *Batch, rows *sql.Rows) ([]*Node, error) {
	var nodes []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan node", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		tags, err := s.nodeTags(ctx, b, n.ID)
		if err != nil {
			return nil, err
		}
		n.Tags = tags
	}
	return nodes, nil
}

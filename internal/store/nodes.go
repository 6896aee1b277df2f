package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/foresthq/forest/internal/ferrors"
)

// PutNode inserts or replaces a node and mirrors its tag set into
// node_tags in the same statement group, so node_tags equals node.Tags
// after every write.
func (s *SQLiteStore) PutNode(ctx context.Context, b *Batch, n *Node) error {
	tokenJSON, err := json.Marshal(n.TokenCounts)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal token counts", err)
	}
	metaJSON, err := json.Marshal(n.Metadata)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal node metadata", err)
	}

	q := s.q(b)
	_, err = q.ExecContext(ctx, `
		INSERT INTO nodes (id, title, body, token_counts, embedding, embedding_dim,
			is_chunk, parent_document_id, chunk_order, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			token_counts = excluded.token_counts,
			embedding = excluded.embedding,
			embedding_dim = excluded.embedding_dim,
			is_chunk = excluded.is_chunk,
			parent_document_id = excluded.parent_document_id,
			chunk_order = excluded.chunk_order,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, n.ID, n.Title, n.Body, string(tokenJSON), n.Embedding, n.EmbeddingDim,
		boolToInt(n.IsChunk), nullableString(n.ParentDocumentID), n.ChunkOrder,
		string(metaJSON), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "upsert node", err)
	}

	if err := s.replaceNodeTags(ctx, b, n.ID, n.Tags); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) replaceNodeTags(ctx context.Context, b *Batch, nodeID string, tags []string) error {
	q := s.q(b)
	if _, err := q.ExecContext(ctx, `DELETE FROM node_tags WHERE node_id = ?`, nodeID); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "clear node tags", err)
	}
	for _, tag := range tags {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO node_tags (node_id, tag) VALUES (?, ?)`, nodeID, tag); err != nil {
			return ferrors.New(ferrors.ErrCodeStorageTransient, "insert node tag", err)
		}
	}
	return nil
}

// GetNode loads a single node by id, including its tag set.
func (s *SQLiteStore) GetNode(ctx context.Context, b *Batch, id string) (*Node, error) {
	q := s.q(b)
	row := q.QueryRowContext(ctx, `
		SELECT id, title, body, token_counts, embedding, embedding_dim,
			is_chunk, parent_document_id, chunk_order, metadata, created_at, updated_at
		FROM nodes WHERE id = ?`, id)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferrors.NotFound("node not found: "+id, nil)
	}
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "get node", err)
	}

	tags, err := s.nodeTags(ctx, b, id)
	if err != nil {
		return nil, err
	}
	n.Tags = tags
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*Node, error) {
	var n Node
	var tokenJSON, metaJSON string
	var parentDoc sql.NullString
	var isChunk int

	err := row.Scan(&n.ID, &n.Title, &n.Body, &tokenJSON, &n.Embedding, &n.EmbeddingDim,
		&isChunk, &parentDoc, &n.ChunkOrder, &metaJSON, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}

	n.IsChunk = isChunk != 0
	n.ParentDocumentID = parentDoc.String
	if err := json.Unmarshal([]byte(tokenJSON), &n.TokenCounts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &n.Metadata); err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *SQLiteStore) nodeTags(ctx context.Context, b *Batch, nodeID string) ([]string, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `SELECT tag FROM node_tags WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list node tags", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan node tag", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// DeleteNode removes a node and cascades to node_tags, edges touching it,
// and document_chunks rows referencing it. If the
// node was a document's last chunk, the caller is responsible for removing
// the now-empty document (internal/document owns that decision).
func (s *SQLiteStore) DeleteNode(ctx context.Context, b *Batch, id string) error {
	q := s.q(b)
	if _, err := q.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "delete node", err)
	}
	return nil
}

// ListRecentNodes returns up to limit nodes ordered by updatedAt descending,
// used for the `@N` progressive-id recency reference.
func (s *SQLiteStore) ListRecentNodes(ctx context.Context, b *Batch, limit int) ([]*Node, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, body, token_counts, embedding, embedding_dim,
			is_chunk, parent_document_id, chunk_order, metadata, created_at, updated_at
		FROM nodes ORDER BY updated_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list recent nodes", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan recent node", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// ListAllNodes returns every node in the store, used by full rescore's
// re-embed pass, where every node body is potentially needed.
func (s *SQLiteStore) ListAllNodes(ctx context.Context, b *Batch) ([]*Node, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, body, token_counts, embedding, embedding_dim,
			is_chunk, parent_document_id, chunk_order, metadata, created_at, updated_at
		FROM nodes ORDER BY id`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list all nodes", err)
	}
	defer rows.Close()

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

	// Tags loaded per node, mirroring GetNode: callers (rescore's re-embed
	// pass) round-trip these nodes through PutNode, which mirrors n.Tags
	// into node_tags verbatim, so a node returned without its tags would
	// have them silently deleted on the next write.
	for _, n := range nodes {
		tags, err := s.nodeTags(ctx, b, n.ID)
		if err != nil {
			return nil, err
		}
		n.Tags = tags
	}
	return nodes, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

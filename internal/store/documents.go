package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/foresthq/forest/internal/ferrors"
)

// PutDocument inserts or replaces a document row.
func (s *SQLiteStore) PutDocument(ctx context.Context, b *Batch, d *Document) error {
	metaJSON, err := json.Marshal(d.Metadata)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeValidation, "marshal document metadata", err)
	}

	q := s.q(b)
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (id, title, body, metadata, version, root_node_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			metadata = excluded.metadata,
			version = excluded.version,
			root_node_id = excluded.root_node_id,
			updated_at = excluded.updated_at
	`, d.ID, d.Title, d.Body, string(metaJSON), d.Version, nullableString(d.RootNodeID), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "upsert document", err)
	}
	return nil
}

// GetDocument loads a document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, b *Batch, id string) (*Document, error) {
	q := s.q(b)
	row := q.QueryRowContext(ctx, `
		SELECT id, title, body, metadata, version, root_node_id, created_at, updated_at
		FROM documents WHERE id = ?`, id)

	var d Document
	var metaJSON string
	var rootNode sql.NullString
	err := row.Scan(&d.ID, &d.Title, &d.Body, &metaJSON, &d.Version, &rootNode, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ferrors.NotFound("document not found: "+id, nil)
	}
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "get document", err)
	}
	d.RootNodeID = rootNode.String
	if err := json.Unmarshal([]byte(metaJSON), &d.Metadata); err != nil {
		return nil, ferrors.New(ferrors.ErrCodeValidation, "unmarshal document metadata", err)
	}
	return &d, nil
}

// DeleteDocument removes a document row. Its chunk nodes are deleted
// separately via DeleteNode (cascading document_chunks).
func (s *SQLiteStore) DeleteDocument(ctx context.Context, b *Batch, id string) error {
	q := s.q(b)
	if _, err := q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "delete document", err)
	}
	return nil
}

// ReplaceDocumentChunks atomically replaces every document_chunks row for
// documentID with chunks.
func (s *SQLiteStore) ReplaceDocumentChunks(ctx context.Context, b *Batch, documentID string, chunks []*DocumentChunk) error {
	q := s.q(b)
	if _, err := q.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "clear document chunks", err)
	}
	for _, c := range chunks {
		_, err := q.ExecContext(ctx, `
			INSERT INTO document_chunks (document_id, segment_id, node_id, offset_, length, chunk_order, checksum, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.DocumentID, c.SegmentID, c.NodeID, c.Offset, c.Length, c.ChunkOrder, c.Checksum, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return ferrors.New(ferrors.ErrCodeStorageTransient, "insert document chunk", err)
		}
	}
	return nil
}

// ListAllDocuments returns every document row, unordered. Used by
// internal/core's file-watch reconciliation to find the
// document backing an externally-edited source file by its
// metadata["source_path"] entry, since that lookup has no dedicated index.
func (s *SQLiteStore) ListAllDocuments(ctx context.Context, b *Batch) ([]*Document, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, body, metadata, version, root_node_id, created_at, updated_at
		FROM documents`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list documents", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var d Document
		var metaJSON string
		var rootNode sql.NullString
		if err := rows.Scan(&d.ID, &d.Title, &d.Body, &metaJSON, &d.Version, &rootNode, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan document", err)
		}
		d.RootNodeID = rootNode.String
		if err := json.Unmarshal([]byte(metaJSON), &d.Metadata); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeValidation, "unmarshal document metadata", err)
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// ListDocumentChunks returns a document's chunks ordered by chunkOrder.
func (s *SQLiteStore) ListDocumentChunks(ctx context.Context, b *Batch, documentID string) ([]*DocumentChunk, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `
		SELECT document_id, segment_id, node_id, offset_, length, chunk_order, checksum, created_at, updated_at
		FROM document_chunks WHERE document_id = ? ORDER BY chunk_order ASC`, documentID)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "list document chunks", err)
	}
	defer rows.Close()

	var chunks []*DocumentChunk
	for rows.Next() {
		var c DocumentChunk
		if err := rows.Scan(&c.DocumentID, &c.SegmentID, &c.NodeID, &c.Offset, &c.Length, &c.ChunkOrder, &c.Checksum, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan document chunk", err)
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

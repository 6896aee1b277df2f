package store

import (
	"context"
	"math"

	"github.com/foresthq/forest/internal/ferrors"
)

// RebuildTagIDF recomputes tag_idf from the current node_tags population:
// docFreq(t) = nodes carrying t; idf(t) = ln(N / docFreq(t)).
// Owned by the linking engine; called at the start of each bulk operation
// and incrementally after single-node tag changes.
func (s *SQLiteStore) RebuildTagIDF(ctx context.Context, b *Batch, now interface{}) error {
	q := s.q(b)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&total); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "count nodes for idf", err)
	}

	rows, err := q.QueryContext(ctx, `SELECT tag, COUNT(DISTINCT node_id) FROM node_tags GROUP BY tag`)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "aggregate tag doc freq", err)
	}
	type entry struct {
		tag     string
		docFreq int
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.tag, &e.docFreq); err != nil {
			rows.Close()
			return ferrors.New(ferrors.ErrCodeStorageTransient, "scan tag doc freq", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "iterate tag doc freq", err)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM tag_idf`); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "clear tag idf", err)
	}

	for _, e := range entries {
		idf := IDF(total, e.docFreq)
		if _, err := q.ExecContext(ctx, `INSERT INTO tag_idf (tag, doc_freq, idf, updated_at) VALUES (?, ?, ?, ?)`,
			e.tag, e.docFreq, idf, now); err != nil {
			return ferrors.New(ferrors.ErrCodeStorageTransient, "insert tag idf", err)
		}
	}
	return nil
}

// IDF computes ln(N / docFreq) for N total nodes, 0 when docFreq is 0
// (tag absent from the corpus) or N is 0.
func IDF(totalNodes, docFreq int) float64 {
	if totalNodes <= 0 || docFreq <= 0 {
		return 0
	}
	return math.Log(float64(totalNodes) / float64(docFreq))
}

// MaxIDF returns ln(N/1), the theoretical maximum for a tag on exactly
// one node.
func MaxIDF(totalNodes int) float64 {
	if totalNodes <= 0 {
		return 0
	}
	return math.Log(float64(totalNodes))
}

// LoadTagIDF reads the full tag_idf cache into a tag -> idf map.
func (s *SQLiteStore) LoadTagIDF(ctx context.Context, b *Batch) (map[string]float64, error) {
	q := s.q(b)
	rows, err := q.QueryContext(ctx, `SELECT tag, idf FROM tag_idf`)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "load tag idf", err)
	}
	defer rows.Close()

	idf := make(map[string]float64)
	for rows.Next() {
		var tag string
		var v float64
		if err := rows.Scan(&tag, &v); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "scan tag idf", err)
		}
		idf[tag] = v
	}
	return idf, rows.Err()
}

// NodeCount returns the total number of nodes, used to compute maxIdf.
func (s *SQLiteStore) NodeCount(ctx context.Context, b *Batch) (int, error) {
	q := s.q(b)
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, ferrors.New(ferrors.ErrCodeStorageTransient, "count nodes", err)
	}
	return n, nil
}

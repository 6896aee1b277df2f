package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/foresthq/forest/internal/ferrors"
)

// Keys in kv_state. The embedding keys record which provider produced
// the vectors currently on disk, so a provider or dimension change
// across runs is detected at open time rather than discovered one
// mismatched cosine at a time.
const (
	StateKeyEmbeddingProvider = "embedding_provider"
	StateKeyEmbeddingDims     = "embedding_dims"
)

// GetState reads one kv_state value. A missing key returns ("", false)
// rather than an error.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, ferrors.New(ferrors.ErrCodeStorageTransient, "read state", err)
	}
	return value, true, nil
}

// SetState writes one kv_state value, replacing any existing one.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "write state", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/foresthq/forest/internal/ferrors"
)

// SQLiteStore is Forest's relational storage layer. It persists nodes,
// node_tags, the tag_idf cache, edges, edge_events, and documents/
// document_chunks.
type SQLiteStore struct {
	db   *sql.DB
	lock *fileLock
}

// Open creates or opens the SQLite database at path, applying the schema
// if needed. The directory is created if missing. Open takes an exclusive
// cross-process lock on the data directory first, so a second forest
// process pointed at the same vault fails fast instead of contending for
// the single writer connection.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "create data directory", err)
		}
	}
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	lock := newFileLock(dir)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "lock data directory", err)
	}
	if !acquired {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "lock data directory",
			fmt.Errorf("vault at %s is already open in another process", dir))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "open sqlite database", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL still allows concurrent readers

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "apply schema", err)
	}

	// A brand-new database already has the full current schema; stamp it
	// so Migrate never replays steps against it. Existing databases keep
	// whatever version they carry until an explicit migrate run.
	if fresh {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "stamp schema version", err)
		}
	}

	return &SQLiteStore{db: db, lock: lock}, nil
}

// Close releases the underlying database handle and the data directory lock.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if lockErr := s.lock.Unlock(); lockErr != nil && err == nil {
		err = lockErr
	}
	return err
}

// Batch is a transactional scope bracketing one logical linking-engine
// operation. Acquired at entry, guaranteed commit or rollback at exit.
type Batch struct {
	tx *sql.Tx
}

// BeginBatch opens a transactional scope. Callers must call Commit or
// Rollback on the returned Batch exactly once.
func (s *SQLiteStore) BeginBatch(ctx context.Context) (*Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ferrors.New(ferrors.ErrCodeStorageTransient, "begin batch", err)
	}
	return &Batch{tx: tx}, nil
}

// Commit ends the batch, persisting all writes made through it.
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "commit batch", err)
	}
	return nil
}

// Rollback discards all writes made through the batch.
func (b *Batch) Rollback() error {
	return b.tx.Rollback()
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting each store
// method run either standalone or inside a Batch.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) q(b *Batch) querier {
	if b != nil {
		return b.tx
	}
	return s.db
}

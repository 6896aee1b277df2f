package store

import (
	"context"
	"fmt"

	"github.com/foresthq/forest/internal/ferrors"
)

// currentSchemaVersion is the PRAGMA user_version a fully migrated
// database carries. Fresh databases are stamped with it at creation;
// older databases reach it through Migrate, one step at a time.
const currentSchemaVersion = 3

// migrations[v] is the statement list upgrading a version-v database to
// v+1. Steps run inside their own transaction and bump user_version on
// commit, so an interrupted migration resumes at the step it failed on.
var migrations = [][]string{
	// 0 -> 1: versioning introduced. Pre-versioning layouts only need
	// the base schema, which Open has already applied, plus the stamp.
	{},
	// 1 -> 2: dual-score edges. The tag leg and its shared-tag
	// explanation used to live only in metadata.
	{
		`ALTER TABLE edges ADD COLUMN tag_score REAL`,
		`ALTER TABLE edges ADD COLUMN shared_tags TEXT NOT NULL DEFAULT '[]'`,
	},
	// 2 -> 3: edge history gained the undone flag.
	{
		`ALTER TABLE edge_events ADD COLUMN undone INTEGER NOT NULL DEFAULT 0`,
	},
}

// SchemaVersion reads the database's stored schema version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, ferrors.New(ferrors.ErrCodeStorageTransient, "read schema version", err)
	}
	return v, nil
}

// Migrate upgrades the database to currentSchemaVersion, applying each
// pending step in its own transaction. It returns the version found and
// the version reached; from == to means the schema was already current.
// A database newer than this binary understands is a fatal error, not a
// downgrade.
func (s *SQLiteStore) Migrate(ctx context.Context) (from, to int, err error) {
	from, err = s.SchemaVersion(ctx)
	if err != nil {
		return 0, 0, err
	}
	if from > currentSchemaVersion {
		return from, from, ferrors.New(ferrors.ErrCodeFatalInvariant, "migrate storage",
			fmt.Errorf("database schema version %d is newer than this binary supports (%d)", from, currentSchemaVersion))
	}

	for v := from; v < currentSchemaVersion; v++ {
		if err := s.applyMigration(ctx, v); err != nil {
			return from, v, err
		}
	}
	return from, currentSchemaVersion, nil
}

func (s *SQLiteStore) applyMigration(ctx context.Context, v int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "begin migration", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range migrations[v] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return ferrors.New(ferrors.ErrCodeStorageTransient,
				fmt.Sprintf("migrate schema %d to %d", v, v+1), err)
		}
	}
	// PRAGMA does not accept bind parameters; v is an int under our
	// control, never caller input.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "stamp schema version", err)
	}
	if err := tx.Commit(); err != nil {
		return ferrors.New(ferrors.ErrCodeStorageTransient, "commit migration", err)
	}
	return nil
}

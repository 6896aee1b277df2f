package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_StampsFreshDatabaseAtCurrentVersion(t *testing.T) {
	s := openTestStore(t)

	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, currentSchemaVersion, v)
}

func TestMigrate_CurrentSchemaIsNoOp(t *testing.T) {
	s := openTestStore(t)

	from, to, err := s.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, currentSchemaVersion, from)
	require.Equal(t, currentSchemaVersion, to)
}

func TestMigrate_UpgradesVersionOneDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "forest.db")

	// A version-1 database: edges without the tag leg, edge history
	// without the undone flag.
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		CREATE TABLE edges (
			source_id      TEXT NOT NULL,
			target_id      TEXT NOT NULL,
			semantic_score REAL,
			score          REAL NOT NULL,
			status         TEXT NOT NULL,
			edge_type      TEXT NOT NULL,
			metadata       TEXT NOT NULL DEFAULT '{}',
			created_at     DATETIME NOT NULL,
			updated_at     DATETIME NOT NULL,
			PRIMARY KEY (source_id, target_id)
		);
		CREATE TABLE edge_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			source_id   TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			kind        TEXT NOT NULL,
			prev_status TEXT NOT NULL DEFAULT '',
			next_status TEXT NOT NULL DEFAULT '',
			payload     TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL
		);
		PRAGMA user_version = 1;
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	from, to, err := s.Migrate(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, from)
	require.Equal(t, currentSchemaVersion, to)

	// The added columns are queryable now.
	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edges WHERE tag_score IS NULL AND shared_tags = '[]'`).Scan(&count))
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM edge_events WHERE undone = 0`).Scan(&count))

	// Idempotent: a second run finds nothing to do.
	from, to, err = s.Migrate(ctx)
	require.NoError(t, err)
	require.Equal(t, to, from)
}

func TestMigrate_RefusesNewerDatabase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion+1))
	require.NoError(t, err)

	_, _, err = s.Migrate(ctx)
	require.Error(t, err)
}

func TestMigrationsCoverEveryVersionStep(t *testing.T) {
	require.Len(t, migrations, currentSchemaVersion)
}

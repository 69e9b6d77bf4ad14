package snapshots

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:snapsrepo?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS snapshots (
  namespace TEXT PRIMARY KEY,
  payload   BLOB NOT NULL,
  saved_at  INTEGER NOT NULL
);
DELETE FROM snapshots;
`)
	require.NoError(t, err)
	return db
}

func TestSaveLoad(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	saved := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return saved }
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "posts/all", []byte(`[{"id":"p1"}]`)))

	snap, err := repo.Load(ctx, "posts/all")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, []byte(`[{"id":"p1"}]`), snap.Payload)
	require.Equal(t, saved.UnixMilli(), snap.SavedAt.UnixMilli())
}

func TestSave_OverwritesNamespace(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "posts/all", []byte(`old`)))
	require.NoError(t, repo.Save(ctx, "posts/all", []byte(`new`)))

	snap, err := repo.Load(ctx, "posts/all")
	require.NoError(t, err)
	require.Equal(t, []byte(`new`), snap.Payload)
}

func TestLoad_MissingNamespaceReturnsNil(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	snap, err := repo.Load(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, snap)
}

func TestClear(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "posts/all", []byte(`x`)))
	require.NoError(t, repo.Save(ctx, "comments/p1", []byte(`y`)))
	require.NoError(t, repo.Clear(ctx))

	for _, ns := range []string{"posts/all", "comments/p1"} {
		snap, err := repo.Load(ctx, ns)
		require.NoError(t, err)
		require.Nil(t, snap)
	}
}

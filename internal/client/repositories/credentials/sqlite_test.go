package credentials

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:credsrepo?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS credentials (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
DELETE FROM credentials;
`)
	require.NoError(t, err)
	return db
}

func TestSetGet(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyAccessToken, "token-1"))

	got, err := repo.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "token-1", got)
}

func TestSet_Overwrites(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyEmail, "a@example.com"))
	require.NoError(t, repo.Set(ctx, KeyEmail, "b@example.com"))

	got, err := repo.Get(ctx, KeyEmail)
	require.NoError(t, err)
	require.Equal(t, "b@example.com", got)
}

func TestGet_MissingKeyReturnsEmpty(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRemove(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyRefreshToken, "r1"))
	require.NoError(t, repo.Remove(ctx, KeyRefreshToken))

	got, err := repo.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestClear(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, KeyAccessToken, "t"))
	require.NoError(t, repo.Set(ctx, KeyEmail, "a@example.com"))
	require.NoError(t, repo.Clear(ctx))

	for _, key := range []string{KeyAccessToken, KeyEmail} {
		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.Empty(t, got)
	}
}

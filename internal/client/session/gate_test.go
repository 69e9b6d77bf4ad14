package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/repositories/credentials"
	"github.com/parlaysocial/feedcore/internal/common"

	_ "modernc.org/sqlite"
)

type fakeAPI struct {
	mu      sync.Mutex
	access  string
	refresh string

	loginSession *models.Session
	loginErr     error

	refreshErr   error
	refreshCalls int
	rotateTo     [2]string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.SetTokens(f.loginSession.AccessToken, f.loginSession.RefreshToken)
	return f.loginSession, nil
}

func (f *fakeAPI) Register(ctx context.Context, email, username, password string) (*models.Session, error) {
	return f.Login(ctx, email, password)
}

func (f *fakeAPI) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.access, f.refresh = f.rotateTo[0], f.rotateTo[1]
	return nil
}

func (f *fakeAPI) SetTokens(access, refresh string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = access, refresh
}

func (f *fakeAPI) Tokens() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, f.refresh
}

func (f *fakeAPI) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:gate_%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
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

func seedCreds(t *testing.T, db *sql.DB, access, refresh, email, username string) {
	t.Helper()
	repo := credentials.NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, credentials.KeyAccessToken, access))
	require.NoError(t, repo.Set(ctx, credentials.KeyRefreshToken, refresh))
	require.NoError(t, repo.Set(ctx, credentials.KeyEmail, email))
	require.NoError(t, repo.Set(ctx, credentials.KeyUsername, username))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestAuthorize_NoCredentials(t *testing.T) {
	g := NewGate(&fakeAPI{}, setupDB(t), nil)

	_, err := g.Authorize(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestAuthorize_InvalidPrincipal(t *testing.T) {
	db := setupDB(t)
	seedCreds(t, db, "opaque-token", "refresh-1", "not-an-email", "alice")

	g := NewGate(&fakeAPI{}, db, nil)
	_, err := g.Authorize(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestAuthorize_SeedsFromStore(t *testing.T) {
	db := setupDB(t)
	seedCreds(t, db, "opaque-token", "refresh-1", "a@example.com", "alice")

	client := &fakeAPI{}
	g := NewGate(client, db, nil)

	sess, err := g.Authorize(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Principal.Username)
	require.Equal(t, "opaque-token", sess.AccessToken)
	access, _ := client.Tokens()
	require.Equal(t, "opaque-token", access)

	// Second call answers from memory, not the store.
	again, err := g.Authorize(context.Background())
	require.NoError(t, err)
	require.Same(t, sess, again)
}

func TestAuthorize_ExpiredTokenRefreshes(t *testing.T) {
	db := setupDB(t)
	expired := signedToken(t, time.Now().Add(-time.Hour))
	seedCreds(t, db, expired, "refresh-1", "a@example.com", "alice")

	client := &fakeAPI{rotateTo: [2]string{"access-2", "refresh-2"}}
	g := NewGate(client, db, nil)

	sess, err := g.Authorize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, client.RefreshCalls())
	require.Equal(t, "access-2", sess.AccessToken)
	require.Equal(t, "refresh-2", sess.RefreshToken)
}

func TestAuthorize_ConcurrentSeedRefreshesOnce(t *testing.T) {
	db := setupDB(t)
	expired := signedToken(t, time.Now().Add(-time.Hour))
	seedCreds(t, db, expired, "refresh-1", "a@example.com", "alice")

	client := &fakeAPI{rotateTo: [2]string{"access-2", "refresh-2"}}
	g := NewGate(client, db, nil)

	const callers = 4
	sessions := make([]*models.Session, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], errs[i] = g.Authorize(context.Background())
		}(i)
	}
	wg.Wait()

	// One caller seeds and refreshes; the rest wait and share the result.
	require.Equal(t, 1, client.RefreshCalls())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, "access-2", sessions[i].AccessToken)
		require.Equal(t, "refresh-2", sessions[i].RefreshToken)
	}
}

func TestAuthorize_ExpiredTokenRefreshRejected(t *testing.T) {
	db := setupDB(t)
	expired := signedToken(t, time.Now().Add(-time.Hour))
	seedCreds(t, db, expired, "refresh-1", "a@example.com", "alice")

	client := &fakeAPI{refreshErr: api.ErrUnauthorized}
	g := NewGate(client, db, nil)

	_, err := g.Authorize(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	// Revocation cleared the persisted credentials.
	access, err := credentials.NewSQLiteRepository(db).Get(context.Background(), credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Empty(t, access)
}

func TestLogin_PersistsCredentials(t *testing.T) {
	db := setupDB(t)
	client := &fakeAPI{loginSession: &models.Session{
		Principal:    models.Principal{Email: "a@example.com", Username: "alice"},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}}
	g := NewGate(client, db, nil)

	sess, err := g.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, "alice", sess.Principal.Username)

	// A fresh gate over the same store picks the session back up.
	g2 := NewGate(&fakeAPI{}, db, nil)
	restored, err := g2.Authorize(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access-1", restored.AccessToken)
	require.Equal(t, "a@example.com", restored.Principal.Email)
}

func TestCheckAuthError(t *testing.T) {
	db := setupDB(t)
	g := NewGate(&fakeAPI{}, db, nil)

	var fired int
	g.OnRevoked(func(context.Context) { fired++ })

	require.NoError(t, g.CheckAuthError(context.Background(), nil))

	plain := errors.New("timeout")
	require.Equal(t, plain, g.CheckAuthError(context.Background(), plain))
	require.Zero(t, fired)

	err := g.CheckAuthError(context.Background(), fmt.Errorf("like: %w", api.ErrUnauthorized))
	require.ErrorIs(t, err, common.ErrSessionRevoked)
	require.Equal(t, 1, fired)
}

func TestLogout_ClearsWithoutBroadcast(t *testing.T) {
	db := setupDB(t)
	client := &fakeAPI{loginSession: &models.Session{
		Principal:   models.Principal{Email: "a@example.com", Username: "alice"},
		AccessToken: "access-1",
	}}
	g := NewGate(client, db, nil)

	var fired int
	g.OnRevoked(func(context.Context) { fired++ })

	_, err := g.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, g.Logout(context.Background()))
	require.Zero(t, fired)

	_, err = g.Authorize(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthenticated)

	access, _ := client.Tokens()
	require.Empty(t, access)
}

func TestStoreRotatedTokens(t *testing.T) {
	db := setupDB(t)
	client := &fakeAPI{loginSession: &models.Session{
		Principal:    models.Principal{Email: "a@example.com", Username: "alice"},
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
	}}
	g := NewGate(client, db, nil)

	sess, err := g.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)

	g.StoreRotatedTokens("access-2", "refresh-2")
	require.Equal(t, "access-2", sess.AccessToken)

	stored, err := credentials.NewSQLiteRepository(db).Get(context.Background(), credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "access-2", stored)
}

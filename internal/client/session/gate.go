// Package session implements the session gate: the single authority on
// whether a verified identity exists. Every network-backed operation asks the
// gate first; revocation is an explicit broadcast event, not a polled flag.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/repositories/credentials"
	"github.com/parlaysocial/feedcore/internal/client/store"
	"github.com/parlaysocial/feedcore/internal/common"
	"github.com/parlaysocial/feedcore/internal/logging"
)

// APIClient is the slice of the remote API the gate needs.
type APIClient interface {
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Register(ctx context.Context, email, username, password string) (*models.Session, error)
	Refresh(ctx context.Context) error
	SetTokens(access, refresh string)
	Tokens() (access, refresh string)
}

// Gate owns the Session. It seeds from persisted credentials, refreshes
// expired access tokens, and broadcasts revocation so the query cache can
// evict protected entries.
type Gate struct {
	api APIClient
	db  *sql.DB
	log logging.Logger
	now func() time.Time

	// seedMu serializes the seed-from-store path so concurrent first calls
	// cannot race a token refresh against each other.
	seedMu sync.Mutex

	mu      sync.Mutex
	session *models.Session
	revoked []func(context.Context)
}

func NewGate(apiClient APIClient, db *sql.DB, log logging.Logger) *Gate {
	if log == nil {
		log = logging.Nop{}
	}
	return &Gate{api: apiClient, db: db, log: log, now: time.Now}
}

func (g *Gate) creds() credentials.Repository {
	return credentials.NewSQLiteRepository(g.db)
}

// OnRevoked registers a listener invoked after the session is revoked.
// Listeners run outside the gate's lock.
func (g *Gate) OnRevoked(fn func(context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked = append(g.revoked, fn)
}

// Authorize returns the current session, seeding it from persisted
// credentials on first use. It returns common.ErrUnauthenticated when no
// usable credentials exist; callers must then report a skipped state rather
// than contact the network.
func (g *Gate) Authorize(ctx context.Context) (*models.Session, error) {
	g.mu.Lock()
	if g.session != nil {
		s := g.session
		g.mu.Unlock()
		return s, nil
	}
	g.mu.Unlock()

	g.seedMu.Lock()
	defer g.seedMu.Unlock()

	// A concurrent caller may have finished seeding while we waited.
	g.mu.Lock()
	if g.session != nil {
		s := g.session
		g.mu.Unlock()
		return s, nil
	}
	g.mu.Unlock()

	repo := g.creds()
	access, err := repo.Get(ctx, credentials.KeyAccessToken)
	if err != nil {
		g.log.Warn(ctx, "credential store read failed", "err", err)
		return nil, common.ErrUnauthenticated
	}
	if access == "" {
		return nil, common.ErrUnauthenticated
	}
	refresh, _ := repo.Get(ctx, credentials.KeyRefreshToken)
	email, _ := repo.Get(ctx, credentials.KeyEmail)
	username, _ := repo.Get(ctx, credentials.KeyUsername)

	principal := models.Principal{Email: email, Username: username}
	if !principal.Valid() {
		g.log.Warn(ctx, "persisted principal failed validity check", "email", email)
		return nil, common.ErrUnauthenticated
	}

	g.api.SetTokens(access, refresh)
	if tokenExpired(access, g.now()) {
		if refresh == "" {
			g.Revoke(ctx)
			return nil, common.ErrUnauthenticated
		}
		if err := g.api.Refresh(ctx); err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				g.Revoke(ctx)
				return nil, common.ErrUnauthenticated
			}
			return nil, fmt.Errorf("token refresh: %w", err)
		}
		access, refresh = g.api.Tokens()
	}

	g.mu.Lock()
	g.session = &models.Session{Principal: principal, AccessToken: access, RefreshToken: refresh}
	s := g.session
	g.mu.Unlock()
	return s, nil
}

// Login authenticates against the server and persists credentials so the
// session survives restarts.
func (g *Gate) Login(ctx context.Context, email, password string) (*models.Session, error) {
	sess, err := g.api.Login(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := g.persist(ctx, sess); err != nil {
		// Session is live; only offline seeding is degraded.
		g.log.Warn(ctx, "persisting credentials failed", "err", err)
	}
	g.mu.Lock()
	g.session = sess
	g.mu.Unlock()
	return sess, nil
}

// Register creates an account and starts a session, like Login.
func (g *Gate) Register(ctx context.Context, email, username, password string) (*models.Session, error) {
	sess, err := g.api.Register(ctx, email, username, password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := g.persist(ctx, sess); err != nil {
		g.log.Warn(ctx, "persisting credentials failed", "err", err)
	}
	g.mu.Lock()
	g.session = sess
	g.mu.Unlock()
	return sess, nil
}

// persist writes the whole credential set atomically.
func (g *Gate) persist(ctx context.Context, sess *models.Session) error {
	return store.WithTx(ctx, g.db, nil, func(ctx context.Context, tx store.DBTX) error {
		repo := credentials.NewSQLiteRepository(tx)
		pairs := map[string]string{
			credentials.KeyAccessToken:  sess.AccessToken,
			credentials.KeyRefreshToken: sess.RefreshToken,
			credentials.KeyEmail:        sess.Principal.Email,
			credentials.KeyUsername:     sess.Principal.Username,
		}
		for key, value := range pairs {
			if err := repo.Set(ctx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// StoreRotatedTokens keeps persisted credentials in step with token
// rotations performed by the API client. Best-effort: failures are logged.
// Wire it as the client's token listener.
func (g *Gate) StoreRotatedTokens(access, refresh string) {
	ctx := context.Background()
	repo := g.creds()
	if err := repo.Set(ctx, credentials.KeyAccessToken, access); err != nil {
		g.log.Warn(ctx, "persisting rotated access token failed", "err", err)
	}
	if err := repo.Set(ctx, credentials.KeyRefreshToken, refresh); err != nil {
		g.log.Warn(ctx, "persisting rotated refresh token failed", "err", err)
	}
	g.mu.Lock()
	if g.session != nil {
		g.session.AccessToken = access
		g.session.RefreshToken = refresh
	}
	g.mu.Unlock()
}

// Logout ends the session and clears persisted credentials. It does not
// broadcast revocation; the caller decides what to do with cached data.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	g.api.SetTokens("", "")
	if err := g.creds().Clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Revoke destroys the session after a downstream 401 and broadcasts the
// revocation signal. This is the only path besides Logout that clears
// persisted credentials.
func (g *Gate) Revoke(ctx context.Context) {
	g.mu.Lock()
	g.session = nil
	listeners := make([]func(context.Context), len(g.revoked))
	copy(listeners, g.revoked)
	g.mu.Unlock()

	g.api.SetTokens("", "")
	if err := g.creds().Clear(ctx); err != nil {
		g.log.Warn(ctx, "clearing credentials on revocation failed", "err", err)
	}
	g.log.Info(ctx, "session revoked")

	for _, fn := range listeners {
		fn(ctx)
	}
}

// CheckAuthError inspects an error from a protected call. A verbatim 401
// revokes the session and comes back as common.ErrSessionRevoked; anything
// else passes through unchanged.
func (g *Gate) CheckAuthError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) {
		g.Revoke(ctx)
		return common.ErrSessionRevoked
	}
	return err
}

// tokenExpired inspects the unverified exp claim of a JWT access token.
// Opaque (non-JWT) tokens are passed through for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(now)
}

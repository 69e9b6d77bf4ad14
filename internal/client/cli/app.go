// Package cli is a small interactive client exercising the feed core:
// session gate, query cache, optimistic interactions, and the persistent
// snapshot store, wired together the way a presentation layer would.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/config"
	"github.com/parlaysocial/feedcore/internal/client/debounce"
	"github.com/parlaysocial/feedcore/internal/client/interact"
	"github.com/parlaysocial/feedcore/internal/client/querycache"
	"github.com/parlaysocial/feedcore/internal/client/repositories/snapshots"
	"github.com/parlaysocial/feedcore/internal/client/services"
	"github.com/parlaysocial/feedcore/internal/client/session"
	"github.com/parlaysocial/feedcore/internal/client/store"
	"github.com/parlaysocial/feedcore/internal/logging"
)

// App wires the client core together and drives it from a REPL.
type App struct {
	config  *config.Config
	db      *sql.DB
	gate    *session.Gate
	feed    *services.FeedService
	profile *services.ProfileService
	log     logging.Logger
	reader  *bufio.Reader

	feedSub *querycache.Subscription
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	// The token listener closes over the gate, which needs the client first.
	var gate *session.Gate
	apiClient := api.NewHTTPClient(cfg.APIBaseURL, api.WithTokenListener(func(access, refresh string) {
		if gate != nil {
			gate.StoreRotatedTokens(access, refresh)
		}
	}))
	gate = session.NewGate(apiClient, db, log)

	cache := querycache.NewManager(gate, log,
		querycache.WithSnapshots(snapshots.NewSQLiteRepository(db)),
		querycache.WithCooldown(cfg.RefreshCooldown),
		querycache.WithSnapshotMaxAge(cfg.SnapshotMaxAge),
		querycache.WithReadRetries(cfg.ReadRetryAttempts),
	)
	gate.OnRevoked(cache.EvictProtected)

	ctrl := interact.NewController(cache, apiClient, gate, log, cfg.RequestTimeout)
	seq := debounce.New(cfg.DebounceWindow)

	return &App{
		config:  cfg,
		db:      db,
		gate:    gate,
		feed:    services.NewFeedService(cache, ctrl, seq, apiClient, gate, log),
		profile: services.NewProfileService(cache, apiClient, gate, log),
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

// Run drives the REPL until exit or EOF.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) isLoggedIn() bool {
	_, err := a.gate.Authorize(context.Background())
	return err == nil
}

func (a *App) status() string {
	if sess, err := a.gate.Authorize(context.Background()); err == nil {
		return sess.Principal.Email
	}
	return "not logged in"
}

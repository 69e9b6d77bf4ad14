package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/parlaysocial/feedcore/internal/client/api"
	"github.com/parlaysocial/feedcore/internal/client/models"
	"github.com/parlaysocial/feedcore/internal/client/repositories/snapshots"
	"github.com/parlaysocial/feedcore/internal/common"
	"github.com/parlaysocial/feedcore/internal/logging"
)

// Authorizer gates every fetch behind a verified session.
type Authorizer interface {
	Authorize(ctx context.Context) (*models.Session, error)
}

type entryKey struct {
	tag Tag
	key string
}

func (k entryKey) String() string { return string(k.tag) + "/" + k.key }

type entry struct {
	key        entryKey
	generation uint64

	payload    any
	hasPayload bool
	fetchedAt  time.Time
	err        error
	stale      bool

	loading        bool
	pendingRefetch bool
	flights        uint64

	loader  Loader
	decoder Decoder
	subs    map[*Subscription]struct{}
}

// Manager owns every cache entry. All mutations of cached payloads go
// through it; components read through subscriptions or the *View accessors.
type Manager struct {
	auth  Authorizer
	snaps snapshots.Repository
	log   logging.Logger

	cooldown *rate.Limiter
	maxAge   time.Duration
	retries  uint64
	now      func() time.Time

	mu         sync.Mutex
	entries    map[entryKey]*entry
	generation uint64
	group      singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithSnapshots enables persistent seeding and shadow writes.
func WithSnapshots(repo snapshots.Repository) Option {
	return func(m *Manager) { m.snaps = repo }
}

// WithCooldown sets the window coalescing unforced RefreshAll calls.
func WithCooldown(window time.Duration) Option {
	return func(m *Manager) { m.cooldown = rate.NewLimiter(rate.Every(window), 1) }
}

// WithSnapshotMaxAge sets the freshness threshold beyond which a seeded or
// cached payload always triggers a background refetch.
func WithSnapshotMaxAge(age time.Duration) Option {
	return func(m *Manager) { m.maxAge = age }
}

// WithReadRetries bounds automatic retries of transient read failures.
func WithReadRetries(n uint64) Option {
	return func(m *Manager) { m.retries = n }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(auth Authorizer, log logging.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logging.Nop{}
	}
	m := &Manager{
		auth:     auth,
		log:      log,
		cooldown: rate.NewLimiter(rate.Every(common.DefaultRefreshCooldown), 1),
		maxAge:   common.DefaultSnapshotMaxAge,
		retries:  2,
		now:      time.Now,
		entries:  make(map[entryKey]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe attaches to the (tag, key) entry, creating it if needed. An
// unauthenticated subscribe settles immediately as skipped: no network
// contact, no cache entry. decoder may be nil to opt out of snapshot seeding.
func (m *Manager) Subscribe(ctx context.Context, tag Tag, key string, loader Loader, decoder Decoder) (*Subscription, error) {
	if _, err := m.auth.Authorize(ctx); err != nil {
		if errors.Is(err, common.ErrUnauthenticated) {
			return newSettledSubscription(Result{Skipped: true}), nil
		}
		return nil, err
	}

	k := entryKey{tag: tag, key: key}

	m.mu.Lock()
	e, ok := m.entries[k]
	if !ok {
		m.generation++
		e = &entry{
			key:        k,
			generation: m.generation,
			loader:     loader,
			decoder:    decoder,
			subs:       make(map[*Subscription]struct{}),
		}
		m.entries[k] = e
		if m.snaps != nil && decoder != nil {
			// Snapshot I/O must not run under the manager lock: a slow disk
			// would stall every cache operation, including synchronous
			// mutation publishes.
			m.mu.Unlock()
			payload, savedAt, seeded := m.loadSnapshot(ctx, k, decoder)
			m.mu.Lock()
			if cur, alive := m.entries[k]; alive && cur == e && seeded && !e.hasPayload {
				e.payload = payload
				e.hasPayload = true
				e.fetchedAt = savedAt
			}
		}
	} else {
		// The newest loader/decoder win; they capture the freshest closure state.
		if loader != nil {
			e.loader = loader
		}
		if decoder != nil {
			e.decoder = decoder
		}
	}

	sub := newSubscription(func(s *Subscription) { m.detach(k, s) })
	e.subs[sub] = struct{}{}

	needsFetch := !e.hasPayload || e.stale || m.now().Sub(e.fetchedAt) > m.maxAge
	sub.publish(Result{Data: e.payload, Loading: needsFetch || e.loading, Err: e.err})

	if needsFetch {
		// Always launched: concurrent subscribers coalesce on the shared
		// flight rather than being gated here.
		m.startFetchLocked(e)
	}
	m.mu.Unlock()

	return sub, nil
}

// loadSnapshot reads and decodes the persisted snapshot for k. A snapshot
// renders immediately; staleness only decides whether a refetch follows,
// which Subscribe derives from the returned save time.
func (m *Manager) loadSnapshot(ctx context.Context, k entryKey, decoder Decoder) (any, time.Time, bool) {
	snap, err := m.snaps.Load(ctx, k.String())
	if err != nil {
		m.log.Warn(ctx, "snapshot load failed", "entry", k.String(), "err", err)
		return nil, time.Time{}, false
	}
	if snap == nil {
		return nil, time.Time{}, false
	}
	payload, err := decoder(snap.Payload)
	if err != nil {
		m.log.Warn(ctx, "snapshot decode failed", "entry", k.String(), "err", err)
		return nil, time.Time{}, false
	}
	return payload, snap.SavedAt, true
}

func (m *Manager) detach(k entryKey, s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[k]; ok {
		delete(e.subs, s)
	}
}

// startFetchLocked launches the entry's loader. Launches while a flight for
// the same loading episode is open coalesce onto it: the loader runs once,
// the executor settles, joiners just wait. A launch whose episode has already
// settled by the time it runs is a no-op. Settlement re-validates the entry's
// generation: results belonging to a superseded generation (eviction,
// revocation) are discarded, never applied.
func (m *Manager) startFetchLocked(e *entry) {
	if e.loader == nil {
		return
	}
	if !e.loading {
		e.loading = true
		e.flights++
	}
	k, gen, flight, loader := e.key, e.generation, e.flights, e.loader

	go func() {
		flightKey := fmt.Sprintf("%s#%d#%d", k, gen, flight)
		m.group.Do(flightKey, func() (any, error) {
			m.mu.Lock()
			cur, alive := m.entries[k]
			settled := !alive || cur.generation != gen || cur.flights != flight || !cur.loading
			m.mu.Unlock()
			if settled {
				return nil, nil
			}
			// Deliberately not the subscriber's context: there is no
			// mid-flight cancellation, only discard-on-completion.
			payload, err := m.load(context.Background(), loader)
			// Settling inside the flight keeps the entry loading until the
			// flight is forgotten; a relaunch can never execute twice for
			// one episode.
			m.settle(k, gen, payload, err)
			return payload, err
		})
	}()
}

// load runs the loader with bounded backoff on transient read failures.
func (m *Manager) load(ctx context.Context, loader Loader) (any, error) {
	var out any
	backoff := retry.WithMaxRetries(m.retries, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := loader(ctx)
		if err != nil {
			if api.Transient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// settle applies a completed fetch. Errors never destroy a previously cached
// payload: the entry keeps its last-good data with the error alongside.
func (m *Manager) settle(k entryKey, gen uint64, payload any, err error) {
	ctx := context.Background()

	m.mu.Lock()
	e, ok := m.entries[k]
	if !ok || e.generation != gen {
		m.mu.Unlock()
		m.log.Debug(ctx, "discarding result for superseded entry", "entry", k.String())
		return
	}
	e.loading = false

	if err != nil {
		e.err = err
		m.publishLocked(e, Result{Data: e.payload, Err: err})
		m.mu.Unlock()
		m.log.Warn(ctx, "fetch failed, keeping last-good payload", "entry", k.String(), "err", err)
		return
	}

	e.payload = payload
	e.hasPayload = true
	e.fetchedAt = m.now()
	e.err = nil
	e.stale = false
	refetch := e.pendingRefetch
	e.pendingRefetch = false
	m.publishLocked(e, Result{Data: payload})
	if refetch {
		// Invalidated while this fetch was in flight.
		m.startFetchLocked(e)
	}
	m.mu.Unlock()

	m.persistSnapshot(ctx, k, payload)
}

// persistSnapshot shadows the payload to durable storage. Best-effort only:
// failures are logged, never propagated to the interaction flow.
func (m *Manager) persistSnapshot(ctx context.Context, k entryKey, payload any) {
	if m.snaps == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		m.log.Warn(ctx, "snapshot encode failed", "entry", k.String(), "err", err)
		return
	}
	if err := m.snaps.Save(ctx, k.String(), data); err != nil {
		m.log.Warn(ctx, "snapshot save failed", "entry", k.String(), "err", err)
	}
}

func (m *Manager) publishLocked(e *entry, r Result) {
	for sub := range e.subs {
		sub.publish(r)
	}
}

// Invalidate marks entries under tag stale. With keys given, only those
// entries; otherwise the whole tag. Subscribed entries refetch immediately;
// their stale payload stays visible until the refetch resolves.
func (m *Manager) Invalidate(tag Tag, keys ...string) {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for k, e := range m.entries {
		if k.tag != tag {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[k.key]; !ok {
				continue
			}
		}
		m.invalidateLocked(e)
	}
}

func (m *Manager) invalidateLocked(e *entry) {
	e.stale = true
	if e.loading {
		e.pendingRefetch = true
		return
	}
	if len(e.subs) > 0 {
		m.startFetchLocked(e)
	}
}

// RefreshAll refetches every subscribed entry. Unforced calls inside the
// cooldown window coalesce into a no-op; force bypasses the window
// (pull-to-refresh). Reports whether a refresh actually ran.
func (m *Manager) RefreshAll(ctx context.Context, force bool) bool {
	if !force && !m.cooldown.Allow() {
		m.log.Debug(ctx, "refresh-all coalesced by cooldown")
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		m.invalidateLocked(e)
	}
	return true
}

// EvictProtected destroys every entry and bumps generations so in-flight
// results are discarded. Subscribers observe a skipped (unauthenticated)
// state. Wire it to the session gate's revocation signal.
func (m *Manager) EvictProtected(ctx context.Context) {
	m.mu.Lock()
	for k, e := range m.entries {
		m.generation++
		m.publishLocked(e, Result{Skipped: true})
		delete(m.entries, k)
	}
	m.mu.Unlock()

	if m.snaps != nil {
		if err := m.snaps.Clear(ctx); err != nil {
			m.log.Warn(ctx, "clearing snapshots on revocation failed", "err", err)
		}
	}
	m.log.Info(ctx, "evicted protected cache entries")
}

// Package snapshots is the persistent query-cache shadow: last-known
// payloads saved with a timestamp so the UI can render before the network
// responds on cold start. It is best-effort by contract — write failures are
// logged by callers and never surfaced to the interaction flow.
package snapshots

import (
	"context"
	"time"
)

// Snapshot is a stored payload plus the time it was saved, used for
// freshness checks when seeding the in-memory cache.
type Snapshot struct {
	Payload []byte
	SavedAt time.Time
}

// Repository persists one snapshot per namespace.
//
// Load returns nil with a nil error when the namespace has no snapshot.
type Repository interface {
	Save(ctx context.Context, namespace string, payload []byte) error
	Load(ctx context.Context, namespace string) (*Snapshot, error)
	Clear(ctx context.Context) error
}

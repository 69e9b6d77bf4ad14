package common

import "time"

// Defaults for policy knobs. Config may override each of them.
const (
	// DefaultDebounceWindow collapses rapid re-taps on one target.
	DefaultDebounceWindow = 500 * time.Millisecond

	// DefaultRefreshCooldown bounds full-collection refetches.
	DefaultRefreshCooldown = 5 * time.Minute

	// DefaultSnapshotMaxAge is the freshness threshold for persisted
	// snapshots: older ones still seed the UI but always trigger a refetch.
	DefaultSnapshotMaxAge = 5 * time.Minute

	// DefaultRequestTimeout applies to each authoritative request.
	DefaultRequestTimeout = 10 * time.Second
)

// Package common defines shared constants and sentinel errors used across
// the client core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrUnauthenticated means no valid session exists. Dependent queries
	// report a skipped result instead of contacting the network; the caller
	// should prompt for login, not retry.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrSessionRevoked means a protected call returned 401 mid-session.
	// Cached protected data has been evicted and re-authentication is required.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrActionInFlight means another interaction of the same collision class
	// is pending for the target. The action is rejected, never queued.
	ErrActionInFlight = errors.New("action already in flight")

	// ErrSuperseded means a debounced call was replaced by a later one for
	// the same target before it reached the network.
	ErrSuperseded = errors.New("superseded by a later action")

	// ErrNotFound is returned when a target is absent from the cache.
	ErrNotFound = errors.New("not found")
)

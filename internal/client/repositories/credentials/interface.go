// Package credentials is the durable key/value store for session
// credentials (tokens and the persisted principal). It survives restarts so
// the session gate can authorize without a fresh login.
package credentials

import "context"

// Repository stores small string values by key.
//
// Get returns "" with a nil error when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Well-known keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyEmail        = "email"
	KeyUsername     = "username"
)

package api

import "errors"

var (
	// ErrUnavailable covers transport failures, timeouts, and 5xx responses.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized is a verbatim 401: the session is no longer accepted.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyLiked is the server's conflict for a like on a target it
	// already considers liked. Handled by reconciliation, never shown to users.
	ErrAlreadyLiked = errors.New("already liked")

	// ErrNotFound is a 404 for the addressed resource.
	ErrNotFound = errors.New("resource not found")

	// ErrMalformedPayload means the response body could not be decoded.
	// Logged and treated as transient; cached data is preserved.
	ErrMalformedPayload = errors.New("malformed server payload")
)

// Transient reports whether err is worth an automatic retry for read
// queries. User-intent mutations never retry automatically regardless.
func Transient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrMalformedPayload)
}

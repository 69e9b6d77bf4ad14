// Package models defines the client-side data model: the authenticated
// session, feed posts, comments, and the user profile. The query cache holds
// the canonical in-memory copies; nothing outside the cache manager mutates
// them in place.
package models

import "regexp"

// emailShape is a deliberately minimal check: something@something.tld.
// Full RFC validation is the server's job; this only exists to short-circuit
// doomed requests for obviously broken principals.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Principal is the identity associated with a session.
type Principal struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Valid reports whether the principal can back network operations.
// Invalid principals must skip dependent queries rather than issue them.
func (p Principal) Valid() bool {
	return emailShape.MatchString(p.Email)
}

// Session is a verified identity plus its credentials. It is owned by the
// session gate: written once on login, cleared on logout or revocation.
type Session struct {
	Principal    Principal `json:"principal"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

package domain

import (
	"errors"
	"time"
)

// ErrDuplicateToken is returned by stores when a session with the same token fingerprint exists.
var ErrDuplicateToken = errors.New("session token already exists")

// Session is one sign-in of an account. TokenHash is the fingerprint of the bearer
// token; the raw token is never stored. Sessions are kept after sign-out.
type Session struct {
	ID          string
	AccountID   string
	TokenHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	SignedOutAt *time.Time // nil while signed in
}

// SignedOut reports whether the session has been signed out.
func (s *Session) SignedOut() bool {
	return s.SignedOutAt != nil
}

// Expired reports whether now is at or past ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// IsActive reports whether the session is signed in and within its validity window at now.
func (s *Session) IsActive(now time.Time) bool {
	return !s.SignedOut() && !s.Expired(now)
}

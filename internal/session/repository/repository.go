package repository

import (
	"context"
	"time"

	"qna-platform/backend/internal/session/domain"
)

// Repository defines persistence for sessions, keyed by token fingerprint.
type Repository interface {
	// GetByTokenHash returns the session for tokenHash, or nil if none exists.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Create persists s. Returns domain.ErrDuplicateToken when the fingerprint is taken.
	Create(ctx context.Context, s *domain.Session) error
	// MarkSignedOut sets SignedOutAt to at only if it is unset. It reports whether a
	// session was updated; false means missing or already signed out.
	MarkSignedOut(ctx context.Context, tokenHash string, at time.Time) (bool, error)
}

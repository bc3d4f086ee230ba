package repository

import (
	"context"

	"qna-platform/backend/internal/account/domain"
)

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Create returns domain.ErrDuplicateUsername or domain.ErrDuplicateEmail on a unique violation.
	Create(ctx context.Context, a *domain.Account) error
	// Delete removes the account. Returns false when no row matched.
	Delete(ctx context.Context, id string) (bool, error)
}

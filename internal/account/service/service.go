package service

import (
	"context"
	"errors"

	"qna-platform/backend/internal/account/domain"
	"qna-platform/backend/internal/audit"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/platform/rbac"
)

var ErrAccountNotFound = errors.New("account not found")

// SessionResolver resolves a bearer token to the caller. *identityservice.AuthService implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*identityservice.ResolvedSession, error)
}

// AccountRepo is the account persistence needed for profile reads and deletion.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Service implements profile lookup and administrative account deletion.
type Service struct {
	auth        SessionResolver
	accounts    AccountRepo
	authz       rbac.Authorizer
	auditLogger audit.AuditLogger
}

// NewService returns an account Service. auditLogger may be nil.
func NewService(auth SessionResolver, accounts AccountRepo, authz rbac.Authorizer, auditLogger audit.AuditLogger) *Service {
	return &Service{auth: auth, accounts: accounts, authz: authz, auditLogger: auditLogger}
}

// GetProfile returns the account for accountID to any signed-in caller.
func (s *Service) GetProfile(ctx context.Context, token, accountID string) (*domain.Account, error) {
	if _, err := s.auth.Resolve(ctx, token); err != nil {
		return nil, err
	}
	return s.get(ctx, accountID)
}

// Delete removes accountID. Admins only. The account's sessions and content are kept.
func (s *Service) Delete(ctx context.Context, token, accountID string) (*domain.Account, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	target, err := s.get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeAccountDeletion(ctx, rs.Principal()); err != nil {
		return nil, err
	}
	deleted, err := s.accounts.Delete(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrAccountNotFound
	}
	if s.auditLogger != nil {
		s.auditLogger.LogEvent(ctx, rs.Account.ID, audit.ActionAccountDelete, "account", target.ID)
	}
	return target, nil
}

func (s *Service) get(ctx context.Context, id string) (*domain.Account, error) {
	a, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	accountdomain "qna-platform/backend/internal/account/domain"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/platform/rbac"
	"qna-platform/backend/internal/question/domain"
	"qna-platform/backend/internal/question/repository"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrOwnerNotFound    = errors.New("owner account not found")
)

// SessionResolver resolves a bearer token to the caller. *identityservice.AuthService implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*identityservice.ResolvedSession, error)
}

// AccountLookup finds accounts by id.
type AccountLookup interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// Service implements the guarded question operations. Every call resolves the
// session first, then checks the target exists, then authorizes, then mutates.
type Service struct {
	auth      SessionResolver
	questions repository.Repository
	accounts  AccountLookup
	authz     rbac.Authorizer
	now       func() time.Time
}

// NewService returns a question Service.
func NewService(auth SessionResolver, questions repository.Repository, accounts AccountLookup, authz rbac.Authorizer) *Service {
	return &Service{
		auth:      auth,
		questions: questions,
		accounts:  accounts,
		authz:     authz,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create posts a question owned by the caller.
func (s *Service) Create(ctx context.Context, token, content string) (*domain.Question, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	content, err = domain.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	q := &domain.Question{
		ID:        uuid.New().String(),
		OwnerID:   rs.Account.ID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns every question. Any signed-in caller may read.
func (s *Service) List(ctx context.Context, token string) ([]*domain.Question, error) {
	if _, err := s.auth.Resolve(ctx, token); err != nil {
		return nil, err
	}
	return s.questions.List(ctx)
}

// ListByOwner returns the questions posted by ownerID.
func (s *Service) ListByOwner(ctx context.Context, token, ownerID string) ([]*domain.Question, error) {
	if _, err := s.auth.Resolve(ctx, token); err != nil {
		return nil, err
	}
	owner, err := s.accounts.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}
	return s.questions.ListByOwner(ctx, ownerID)
}

// Edit replaces the content of a question. Only the owner may edit, admins included.
func (s *Service) Edit(ctx context.Context, token, id, content string) (*domain.Question, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeEdit(ctx, rs.Principal(), q.OwnerID); err != nil {
		return nil, err
	}
	content, err = domain.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.questions.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}
	q.Content = content
	return q, nil
}

// Delete removes a question. The owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, token, id string) (*domain.Question, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	q, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeDelete(ctx, rs.Principal(), q.OwnerID); err != nil {
		return nil, err
	}
	if err := s.questions.Delete(ctx, id); err != nil {
		return nil, err
	}
	return q, nil
}

// Get returns the question for id or ErrQuestionNotFound. Used by the answer service.
func (s *Service) Get(ctx context.Context, id string) (*domain.Question, error) {
	return s.get(ctx, id)
}

func (s *Service) get(ctx context.Context, id string) (*domain.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

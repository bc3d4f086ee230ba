package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"qna-platform/backend/internal/answer/domain"
	"qna-platform/backend/internal/answer/repository"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/platform/rbac"
	questiondomain "qna-platform/backend/internal/question/domain"
	questionservice "qna-platform/backend/internal/question/service"
)

var ErrAnswerNotFound = errors.New("answer not found")

// SessionResolver resolves a bearer token to the caller. *identityservice.AuthService implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*identityservice.ResolvedSession, error)
}

// QuestionGetter returns a question or questionservice.ErrQuestionNotFound.
type QuestionGetter interface {
	Get(ctx context.Context, id string) (*questiondomain.Question, error)
}

// Service implements the guarded answer operations, in the order resolve, exists,
// authorize, mutate. Authorization looks only at the answer's owner and the caller.
type Service struct {
	auth      SessionResolver
	answers   repository.Repository
	questions QuestionGetter
	authz     rbac.Authorizer
	now       func() time.Time
}

// NewService returns an answer Service.
func NewService(auth SessionResolver, answers repository.Repository, questions QuestionGetter, authz rbac.Authorizer) *Service {
	return &Service{
		auth:      auth,
		answers:   answers,
		questions: questions,
		authz:     authz,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create posts an answer to questionID, owned by the caller.
func (s *Service) Create(ctx context.Context, token, questionID, content string) (*domain.Answer, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	if _, err := s.questions.Get(ctx, questionID); err != nil {
		return nil, err
	}
	content, err = questiondomain.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	a := &domain.Answer{
		ID:         uuid.New().String(),
		QuestionID: questionID,
		OwnerID:    rs.Account.ID,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.answers.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByQuestion returns the answers to questionID.
func (s *Service) ListByQuestion(ctx context.Context, token, questionID string) ([]*domain.Answer, error) {
	if _, err := s.auth.Resolve(ctx, token); err != nil {
		return nil, err
	}
	if _, err := s.questions.Get(ctx, questionID); err != nil {
		return nil, err
	}
	return s.answers.ListByQuestion(ctx, questionID)
}

// Edit replaces the content of an answer. Only the owner may edit.
func (s *Service) Edit(ctx context.Context, token, id, content string) (*domain.Answer, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeEdit(ctx, rs.Principal(), a.OwnerID); err != nil {
		return nil, err
	}
	content, err = questiondomain.ValidateContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.answers.UpdateContent(ctx, id, content); err != nil {
		return nil, err
	}
	a.Content = content
	return a, nil
}

// Delete removes an answer. The owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, token, id string) (*domain.Answer, error) {
	rs, err := s.auth.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeDelete(ctx, rs.Principal(), a.OwnerID); err != nil {
		return nil, err
	}
	if err := s.answers.Delete(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) get(ctx context.Context, id string) (*domain.Answer, error) {
	a, err := s.answers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAnswerNotFound
	}
	return a, nil
}

var _ QuestionGetter = (*questionservice.Service)(nil)

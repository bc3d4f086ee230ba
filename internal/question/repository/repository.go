package repository

import (
	"context"

	"qna-platform/backend/internal/question/domain"
)

// Repository defines persistence for questions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Question, error)
	List(ctx context.Context) ([]*domain.Question, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Question, error)
	Create(ctx context.Context, q *domain.Question) error
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"qna-platform/backend/internal/answer/domain"
)

// PostgresRepository stores answers in the answers table. Answers are removed with their question by ON DELETE CASCADE.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an answer repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the answer for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Answer, error) {
	var a domain.Answer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, question_id, owner_id, content, created_at FROM answers WHERE id = $1`, id,
	).Scan(&a.ID, &a.QuestionID, &a.OwnerID, &a.Content, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListByQuestion returns the answers to questionID, oldest first.
func (r *PostgresRepository) ListByQuestion(ctx context.Context, questionID string) ([]*domain.Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, question_id, owner_id, content, created_at FROM answers WHERE question_id = $1 ORDER BY created_at, id`,
		questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Answer{}
	for rows.Next() {
		var a domain.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.OwnerID, &a.Content, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Create persists the answer. The answer must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Answer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO answers (id, question_id, owner_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.QuestionID, a.OwnerID, a.Content, a.CreatedAt,
	)
	return err
}

// UpdateContent replaces the answer body.
func (r *PostgresRepository) UpdateContent(ctx context.Context, id, content string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE answers SET content = $2 WHERE id = $1`, id, content)
	return err
}

// Delete removes the answer.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM answers WHERE id = $1`, id)
	return err
}

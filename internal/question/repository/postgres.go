package repository

import (
	"context"
	"database/sql"
	"errors"

	"qna-platform/backend/internal/question/domain"
)

// PostgresRepository stores questions in the questions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a question repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the question for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	var q domain.Question
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, content, created_at FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.OwnerID, &q.Content, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// List returns all questions, oldest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Question, error) {
	return r.query(ctx, `SELECT id, owner_id, content, created_at FROM questions ORDER BY created_at, id`)
}

// ListByOwner returns the questions posted by ownerID, oldest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Question, error) {
	return r.query(ctx, `SELECT id, owner_id, content, created_at FROM questions WHERE owner_id = $1 ORDER BY created_at, id`, ownerID)
}

// Create persists the question. The question must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, q *domain.Question) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO questions (id, owner_id, content, created_at) VALUES ($1, $2, $3, $4)`,
		q.ID, q.OwnerID, q.Content, q.CreatedAt,
	)
	return err
}

// UpdateContent replaces the question body.
func (r *PostgresRepository) UpdateContent(ctx context.Context, id, content string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE questions SET content = $2 WHERE id = $1`, id, content)
	return err
}

// Delete removes the question; its answers go with it (ON DELETE CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM questions WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.Question{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.OwnerID, &q.Content, &q.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &q)
	}
	return out, rows.Err()
}

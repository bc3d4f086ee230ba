package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"qna-platform/backend/internal/session/domain"
)

// PostgresRepository stores sessions in the sessions table, keyed by token fingerprint.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByTokenHash returns the session for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	var (
		s         domain.Session
		signedOut sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, token_hash, issued_at, expires_at, signed_out_at FROM sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&s.ID, &s.AccountID, &s.TokenHash, &s.IssuedAt, &s.ExpiresAt, &signedOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.SignedOutAt = nullTimeToPtr(signedOut)
	return &s, nil
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, account_id, token_hash, issued_at, expires_at, signed_out_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.AccountID, s.TokenHash, s.IssuedAt, s.ExpiresAt, timeToNullTime(s.SignedOutAt),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateToken
	}
	return err
}

// MarkSignedOut sets signed_out_at for the session with tokenHash if it is still NULL.
func (r *PostgresRepository) MarkSignedOut(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET signed_out_at = $2 WHERE token_hash = $1 AND signed_out_at IS NULL`,
		tokenHash, at,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}

package repository

import (
	"context"
	"database/sql"

	"qna-platform/backend/internal/audit/domain"
)

// PostgresRepository appends audit rows to the audit_logs table. Rows are never updated.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, account_id, action, resource, ip, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID,
		sql.NullString{String: a.AccountID, Valid: a.AccountID != ""},
		a.Action, a.Resource, a.IP,
		sql.NullString{String: a.Metadata, Valid: a.Metadata != ""},
		a.CreatedAt,
	)
	return err
}


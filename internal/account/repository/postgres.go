package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"qna-platform/backend/internal/account/domain"
)

const uniqueViolation = "23505"

const accountColumns = `id, username, email, first_name, last_name, role, password_digest, password_salt,
	country, about_me, date_of_birth, contact_number, created_at`

// PostgresRepository stores accounts in the accounts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the account for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByUsername returns the account with the given username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

// GetByEmail returns the account with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// Create persists the account. The account must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.Username, a.Email,
		nullString(a.FirstName), nullString(a.LastName),
		string(a.Role), a.PasswordDigest, a.PasswordSalt,
		nullString(a.Country), nullString(a.AboutMe), nullString(a.DateOfBirth), nullString(a.ContactNumber),
		a.CreatedAt,
	)
	return mapUniqueViolation(err)
}

// Delete removes the account with the given id. Sessions and content rows are left untouched.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var (
		a                                            domain.Account
		role                                         string
		first, last, country, about, dob, contactNum sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.Username, &a.Email, &first, &last, &role, &a.PasswordDigest, &a.PasswordSalt,
		&country, &about, &dob, &contactNum, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = domain.Role(role)
	a.FirstName = first.String
	a.LastName = last.String
	a.Country = country.String
	a.AboutMe = about.String
	a.DateOfBirth = dob.String
	a.ContactNumber = contactNum.String
	return &a, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "accounts_username_key":
		return domain.ErrDuplicateUsername
	case "accounts_email_key":
		return domain.ErrDuplicateEmail
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

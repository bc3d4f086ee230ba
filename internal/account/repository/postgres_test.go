package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"qna-platform/backend/internal/account/domain"
	"qna-platform/backend/internal/db"
	"qna-platform/backend/internal/db/migrate"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Skipf("migrations failed (expected in test environment): %v", err)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		t.Skipf("Database connection failed (expected in test environment): %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newAccount() *domain.Account {
	id := uuid.New().String()
	return &domain.Account{
		ID:             id,
		Username:       "user-" + id[:8],
		Email:          id[:8] + "@example.com",
		FirstName:      "Ada",
		Role:           domain.RoleNonAdmin,
		PasswordDigest: "digest",
		PasswordSalt:   "salt",
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgresRepository_CreateGetDelete(t *testing.T) {
	repo := NewPostgresRepository(openTestDB(t))
	ctx := context.Background()
	a := newAccount()
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}

	for name, get := range map[string]func() (*domain.Account, error){
		"id":       func() (*domain.Account, error) { return repo.GetByID(ctx, a.ID) },
		"username": func() (*domain.Account, error) { return repo.GetByUsername(ctx, a.Username) },
		"email":    func() (*domain.Account, error) { return repo.GetByEmail(ctx, a.Email) },
	} {
		got, err := get()
		if err != nil {
			t.Fatalf("get by %s: %v", name, err)
		}
		if got == nil || got.ID != a.ID || got.Role != domain.RoleNonAdmin || got.FirstName != "Ada" {
			t.Errorf("get by %s = %+v", name, got)
		}
	}

	ok, err := repo.Delete(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if got, err := repo.GetByID(ctx, a.ID); err != nil || got != nil {
		t.Errorf("GetByID after delete = %+v, %v; want nil, nil", got, err)
	}
	if ok, err := repo.Delete(ctx, a.ID); err != nil || ok {
		t.Errorf("second Delete = %v, %v; want false, nil", ok, err)
	}
}

func TestPostgresRepository_DuplicateViolations(t *testing.T) {
	repo := NewPostgresRepository(openTestDB(t))
	ctx := context.Background()
	a := newAccount()
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _, _ = repo.Delete(ctx, a.ID) })

	sameUser := newAccount()
	sameUser.Username = a.Username
	if err := repo.Create(ctx, sameUser); !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Errorf("duplicate username: err = %v", err)
	}
	sameEmail := newAccount()
	sameEmail.Email = a.Email
	if err := repo.Create(ctx, sameEmail); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Errorf("duplicate email: err = %v", err)
	}
}

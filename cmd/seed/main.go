// seed creates the initial admin account for local development.
// Idempotent: exits successfully if the admin already exists.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	accountrepo "qna-platform/backend/internal/account/repository"
	"qna-platform/backend/internal/config"
	"qna-platform/backend/internal/db"
	identityservice "qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/security"
	sessionrepo "qna-platform/backend/internal/session/repository"
)

func main() {
	flags := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	username := flags.String("username", "admin", "Admin username")
	email := flags.String("email", "admin@example.com", "Admin email address")
	password := flags.String("password", os.Getenv("SEED_ADMIN_PASSWORD"), "Admin password (default $SEED_ADMIN_PASSWORD)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(2)
	}
	if *password == "" {
		log.Fatal("seed: --password or SEED_ADMIN_PASSWORD is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	// Sign-up never issues tokens, so no codec is needed.
	accounts := accountrepo.NewPostgresRepository(conn)
	auth := identityservice.NewAuthService(
		accounts,
		sessionrepo.NewPostgresRepository(conn),
		security.NewPasswordCrypto(security.PasswordParams{
			Time:     cfg.Argon2Time,
			MemoryKB: cfg.Argon2MemoryKB,
			Threads:  cfg.Argon2Threads,
		}),
		nil,
		nil,
		identityservice.Options{},
	)

	acct, err := auth.SignUp(context.Background(), identityservice.SignUpInput{
		Username:  *username,
		Email:     *email,
		Password:  *password,
		FirstName: "Platform",
		LastName:  "Admin",
		Role:      "admin",
	})
	switch {
	case errors.Is(err, identityservice.ErrDuplicateUsername):
		existing, err := accounts.GetByUsername(context.Background(), *username)
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		if existing == nil || !existing.IsAdmin() {
			log.Fatalf("seed: username %q is taken by a nonadmin account", *username)
		}
		log.Printf("seed: admin %q already exists; skipping", *username)
		return
	case err != nil:
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed: created admin %s (%s)", acct.Username, acct.ID)
}

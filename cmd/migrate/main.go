// migrate runs DB migrations from embedded SQL: go run ./cmd/migrate --direction up|down.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"qna-platform/backend/internal/config"
	"qna-platform/backend/internal/db/migrate"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	direction := flags.StringP("direction", "d", "up", "Migration direction: up or down")
	showVersion := flags.Bool("version", false, "Print the current schema version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	if *showVersion {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Printf("version %d (dirty=%t)\n", v, dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			// Already at target version; success.
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

package migrate

import (
	"errors"
	"os"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	if err := Run("", "up"); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("Run with empty DSN: err = %v, want ErrMissingDSN", err)
	}
	if _, _, err := Version(""); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("Version with empty DSN: err = %v, want ErrMissingDSN", err)
	}
}

func TestParseDirection(t *testing.T) {
	for _, ok := range []string{"up", "down"} {
		if d, err := ParseDirection(ok); err != nil || string(d) != ok {
			t.Errorf("ParseDirection(%q) = %q, %v", ok, d, err)
		}
	}
	for _, bad := range []string{"", "invalid", "UP", "Up", "both"} {
		if _, err := ParseDirection(bad); err == nil {
			t.Errorf("ParseDirection(%q) should fail", bad)
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	if err := Run("postgres://localhost/test", "sideways"); err == nil {
		t.Fatal("Run with invalid direction should return error")
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	for _, dsn := range []string{"invalid-dsn", "://localhost/test", "postgres://localhost with spaces/test"} {
		t.Run(dsn, func(t *testing.T) {
			err := Run(dsn, "up")
			if err == nil {
				t.Fatalf("Run with invalid DSN %q should return error", dsn)
			}
			if errors.Is(err, ErrNoChange) {
				t.Error("Run should never surface ErrNoChange")
			}
		})
	}
}

func TestRun_UpDown(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("Run up: %v", err)
	}
	if err := Run(dsn, "up"); err != nil {
		t.Fatalf("second Run up should be a no-op: %v", err)
	}
	v, dirty, err := Version(dsn)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v == 0 || dirty {
		t.Errorf("Version = %d dirty=%v, want applied and clean", v, dirty)
	}
}

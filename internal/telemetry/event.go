// Package telemetry defines the security events the auth core emits for observability.
package telemetry

import (
	"context"
	"time"
)

// Event is one security-relevant occurrence, such as a sign-in or an account deletion.
type Event struct {
	Name      string // e.g. signin, signin_failure, signout, account_delete
	AccountID string
	SessionID string
	Resource  string
	Outcome   string // success or failure
	Metadata  string
	At        time.Time
}

// EventEmitter emits events (e.g. as OTel log records). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event Event) error
}

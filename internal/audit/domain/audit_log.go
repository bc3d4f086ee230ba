package domain

import "time"

// AuditLog is one recorded security or content event. AccountID is empty for
// events without an identified caller, such as a sign-in with an unknown username.
type AuditLog struct {
	ID        string
	AccountID string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

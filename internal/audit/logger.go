package audit

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"qna-platform/backend/internal/audit/domain"
	auditrepo "qna-platform/backend/internal/audit/repository"
	"qna-platform/backend/internal/telemetry"
)

// Audit actions emitted by the auth core.
const (
	ActionSignUp        = "signup"
	ActionSignIn        = "signin"
	ActionSignInFailure = "signin_failure"
	ActionSignOut       = "signout"
	ActionAccountDelete = "account_delete"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, accountID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository, an optional IP extractor
// and an optional telemetry emitter.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
}

// NewLogger returns an AuditLogger that persists to repo and mirrors each event to emitter.
// Any argument may be nil; with a nil ipExtractor the IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter telemetry.EventEmitter) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, accountID, action, resource, metadata string) {
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	now := time.Now().UTC()
	if l.emitter != nil {
		telemetry.EmitAsync(l.emitter, telemetry.Event{
			Name:      action,
			AccountID: accountID,
			Resource:  resource,
			Outcome:   outcomeOf(action),
			Metadata:  metadata,
			At:        now,
		})
	}
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: now,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}

func outcomeOf(action string) string {
	if strings.HasSuffix(action, "_failure") {
		return "failure"
	}
	return "success"
}

type clientIPKey struct{}

// WithClientIP returns ctx carrying the caller's IP for ClientIP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP is an IPExtractor reading the IP stored by WithClientIP.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

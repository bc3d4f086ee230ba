package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"

	"qna-platform/backend/internal/audit"
	identityservice "qna-platform/backend/internal/identity/service"
)

const bearerPrefix = "bearer "

type callerKey struct{}

// callerSlot is filled by CallerTracker when a request's token resolves.
type callerSlot struct {
	accountID string
}

// SessionResolver resolves a bearer token. *identityservice.AuthService implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*identityservice.ResolvedSession, error)
}

// CallerTracker wraps the resolver given to the guarded services and records the
// resolved account on the request, so spans and audit entries can name the caller.
type CallerTracker struct {
	next SessionResolver
}

// NewCallerTracker returns a CallerTracker delegating to next.
func NewCallerTracker(next SessionResolver) *CallerTracker {
	return &CallerTracker{next: next}
}

// Resolve delegates to the wrapped resolver.
func (c *CallerTracker) Resolve(ctx context.Context, token string) (*identityservice.ResolvedSession, error) {
	rs, err := c.next.Resolve(ctx, token)
	if err == nil {
		if slot, ok := ctx.Value(callerKey{}).(*callerSlot); ok {
			slot.accountID = rs.Account.ID
		}
	}
	return rs, err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps h with a server span, request metrics, the client IP for audit
// entries and, when audited is set, an audit entry for each successful call.
func (s *Server) instrument(pattern string, audited bool, h http.Handler) http.Handler {
	ar := audit.ParseRoute(pattern)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		slot := &callerSlot{}
		ctx := context.WithValue(r.Context(), callerKey{}, slot)
		ctx = audit.WithClientIP(ctx, clientIP(r))
		ctx, span := s.tracer.Start(ctx, pattern,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(pattern),
				semconv.URLPathKey.String(r.URL.Path),
			))
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(rec.status))
		if slot.accountID != "" {
			span.SetAttributes(attribute.String("qna.account_id", slot.accountID))
		}
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		s.deps.Metrics.RecordRequest(ctx, pattern, rec.status, time.Since(start))

		if audited && s.deps.Audit != nil && rec.status < http.StatusBadRequest {
			s.deps.Audit.LogEvent(ctx, slot.accountID, ar.Action, ar.Resource, r.URL.Path)
		}
	})
}

// bearerToken returns the Authorization header value with an optional "Bearer " prefix removed.
func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= len(bearerPrefix) && strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(v[len(bearerPrefix):])
	}
	return v
}

// clientIP returns the client IP from X-Forwarded-For, X-Real-IP or the remote address, or "unknown".
func clientIP(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
		if i := strings.Index(v, ","); i > 0 {
			v = strings.TrimSpace(v[:i])
		}
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("X-Real-IP")); v != "" {
		return v
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "qna-platform/backend/internal/account/domain"
	"qna-platform/backend/internal/audit"
	"qna-platform/backend/internal/platform/rbac"
	"qna-platform/backend/internal/security"
	sessiondomain "qna-platform/backend/internal/session/domain"
)

// DefaultSessionTTL is the validity window of a newly issued session token.
const DefaultSessionTTL = 8 * time.Hour

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
var (
	ErrDuplicateUsername = accountdomain.ErrDuplicateUsername
	ErrDuplicateEmail    = accountdomain.ErrDuplicateEmail
	ErrInvalidSignUp     = errors.New("invalid sign-up request")
	ErrUnknownUsername   = errors.New("unknown username")
	ErrWrongPassword     = errors.New("wrong password")
	ErrNoActiveSession   = errors.New("no active session for token")
	ErrNotSignedIn       = errors.New("not signed in")
	ErrSignedOut         = errors.New("session signed out")
	ErrSessionExpired    = errors.New("session expired")
	ErrInvalidToken      = security.ErrInvalidToken
)

// AccountRepo is the minimal account repository needed by the auth service.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	GetByUsername(ctx context.Context, username string) (*accountdomain.Account, error)
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	Create(ctx context.Context, a *accountdomain.Account) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByTokenHash(ctx context.Context, tokenHash string) (*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	MarkSignedOut(ctx context.Context, tokenHash string, at time.Time) (bool, error)
}

// SignInRecorder counts sign-in outcomes. *otel.Metrics implements it.
type SignInRecorder interface {
	RecordSignIn(ctx context.Context, outcome string)
}

// Options configures an AuthService. Zero values select the defaults.
type Options struct {
	SessionTTL time.Duration
	// EnforceExpiry makes Resolve reject sessions past ExpiresAt with ErrSessionExpired.
	// Off by default: expired sessions that were never signed out keep resolving.
	EnforceExpiry bool
	Metrics       SignInRecorder
	// Now overrides the clock; tests only.
	Now func() time.Time
}

// SignUpInput is the candidate account submitted at sign-up.
type SignUpInput struct {
	Username      string
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          string
	Country       string
	AboutMe       string
	DateOfBirth   string
	ContactNumber string
}

// SignInResult holds the new session, its bearer token and the signed-in account.
type SignInResult struct {
	Session *sessiondomain.Session
	Token   string
	Account *accountdomain.Account
}

// ResolvedSession is a usable session together with its owning account.
type ResolvedSession struct {
	Session *sessiondomain.Session
	Account *accountdomain.Account
}

// Principal returns the caller identity for authorization checks.
func (r *ResolvedSession) Principal() rbac.Principal {
	return rbac.Principal{AccountID: r.Account.ID, Role: r.Account.Role}
}

// AuthService implements sign-up, sign-in, sign-out and token resolution.
type AuthService struct {
	accounts      AccountRepo
	sessions      SessionRepo
	crypto        *security.PasswordCrypto
	tokens        *security.TokenCodec
	auditLogger   audit.AuditLogger
	metrics       SignInRecorder
	sessionTTL    time.Duration
	enforceExpiry bool
	now           func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. auditLogger may be nil.
func NewAuthService(
	accounts AccountRepo,
	sessions SessionRepo,
	crypto *security.PasswordCrypto,
	tokens *security.TokenCodec,
	auditLogger audit.AuditLogger,
	opts Options,
) *AuthService {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AuthService{
		accounts:      accounts,
		sessions:      sessions,
		crypto:        crypto,
		tokens:        tokens,
		auditLogger:   auditLogger,
		metrics:       opts.Metrics,
		sessionTTL:    ttl,
		enforceExpiry: opts.EnforceExpiry,
		now:           now,
	}
}

// SignUp creates an account. Username uniqueness is checked before email uniqueness,
// so a candidate colliding on both fails with ErrDuplicateUsername.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*accountdomain.Account, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidSignUp)
	}
	if err := validateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignUp, err)
	}
	role, err := accountdomain.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignUp, err)
	}

	existing, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUsername
	}
	existing, err = s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	salt := s.crypto.GenerateSalt()
	account := &accountdomain.Account{
		ID:             uuid.New().String(),
		Username:       username,
		Email:          email,
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Role:           role,
		PasswordDigest: s.crypto.Hash(in.Password, salt),
		PasswordSalt:   salt,
		Country:        in.Country,
		AboutMe:        in.AboutMe,
		DateOfBirth:    in.DateOfBirth,
		ContactNumber:  in.ContactNumber,
		CreatedAt:      s.now(),
	}
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignUp, err)
	}
	// A concurrent sign-up can still win the unique index; the repository maps that
	// to the same duplicate errors.
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	s.audit(ctx, account.ID, audit.ActionSignUp, "account", "")
	return account, nil
}

// SignIn verifies username and password and opens a new session valid for the
// configured TTL. Every call creates an independent session.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if account == nil {
		s.signInFailed(ctx, "", "unknown_username")
		return nil, ErrUnknownUsername
	}
	if !s.crypto.Verify(password, account.PasswordSalt, account.PasswordDigest) {
		s.signInFailed(ctx, account.ID, "wrong_password")
		return nil, ErrWrongPassword
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.sessionTTL)
	token, err := s.tokens.Issue(account.ID, issuedAt, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	sess := &sessiondomain.Session{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		TokenHash: security.HashToken(token),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSignIn(ctx, "success")
	}
	s.audit(ctx, account.ID, audit.ActionSignIn, "session", sess.ID)
	return &SignInResult{Session: sess, Token: token, Account: account}, nil
}

// SignOut ends the session for token and returns its account id. Expired sessions may
// still be signed out. A token with no session, or one already signed out, fails with
// ErrNoActiveSession and changes nothing.
func (s *AuthService) SignOut(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoActiveSession
	}
	hash := security.HashToken(token)
	sess, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		return "", err
	}
	if sess == nil || sess.SignedOut() {
		return "", ErrNoActiveSession
	}
	updated, err := s.sessions.MarkSignedOut(ctx, hash, s.now())
	if err != nil {
		return "", err
	}
	if !updated {
		// Lost a race with a concurrent sign-out of the same token.
		return "", ErrNoActiveSession
	}
	s.audit(ctx, sess.AccountID, audit.ActionSignOut, "session", sess.ID)
	return sess.AccountID, nil
}

// Resolve returns the session and account for token. Every guarded operation calls it first.
func (s *AuthService) Resolve(ctx context.Context, token string) (*ResolvedSession, error) {
	if token == "" {
		return nil, ErrNotSignedIn
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sess, err := s.sessions.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	if claims.SubjectID != sess.AccountID {
		return nil, ErrInvalidToken
	}
	if sess.SignedOut() {
		return nil, ErrSignedOut
	}
	if s.enforceExpiry && sess.Expired(s.now()) {
		return nil, ErrSessionExpired
	}
	account, err := s.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotSignedIn
	}
	return &ResolvedSession{Session: sess, Account: account}, nil
}

func (s *AuthService) signInFailed(ctx context.Context, accountID, reason string) {
	if s.metrics != nil {
		s.metrics.RecordSignIn(ctx, "failure")
	}
	s.audit(ctx, accountID, audit.ActionSignInFailure, "session", reason)
}

func (s *AuthService) audit(ctx context.Context, accountID, action, resource, metadata string) {
	if s.auditLogger == nil {
		return
	}
	s.auditLogger.LogEvent(ctx, accountID, action, resource, metadata)
}

var simpleEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !simpleEmail.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}


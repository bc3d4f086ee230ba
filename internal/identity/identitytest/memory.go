// Package identitytest provides in-memory account and session stores and a ready-made
// AuthService for tests of packages that guard operations with it.
package identitytest

import (
	"context"
	"sync"
	"time"

	accountdomain "qna-platform/backend/internal/account/domain"
	"qna-platform/backend/internal/identity/service"
	"qna-platform/backend/internal/security"
	sessiondomain "qna-platform/backend/internal/session/domain"
)

// Accounts is an in-memory account store with the same uniqueness rules as Postgres.
type Accounts struct {
	mu   sync.Mutex
	byID map[string]*accountdomain.Account
	// Err, when set, is returned by every method.
	Err error
}

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[string]*accountdomain.Account)}
}

func (r *Accounts) GetByID(_ context.Context, id string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return copyAccount(r.byID[id]), nil
}

func (r *Accounts) GetByUsername(_ context.Context, username string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, a := range r.byID {
		if a.Username == username {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

func (r *Accounts) GetByEmail(_ context.Context, email string) (*accountdomain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	for _, a := range r.byID {
		if a.Email == email {
			return copyAccount(a), nil
		}
	}
	return nil, nil
}

func (r *Accounts) Create(_ context.Context, a *accountdomain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for _, existing := range r.byID {
		if existing.Username == a.Username {
			return accountdomain.ErrDuplicateUsername
		}
		if existing.Email == a.Email {
			return accountdomain.ErrDuplicateEmail
		}
	}
	r.byID[a.ID] = copyAccount(a)
	return nil
}

func (r *Accounts) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return false, r.Err
	}
	_, ok := r.byID[id]
	delete(r.byID, id)
	return ok, nil
}

// Len returns the number of stored accounts.
func (r *Accounts) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func copyAccount(a *accountdomain.Account) *accountdomain.Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Sessions is an in-memory session store keyed by token fingerprint.
type Sessions struct {
	mu     sync.Mutex
	byHash map[string]*sessiondomain.Session
}

func NewSessions() *Sessions {
	return &Sessions{byHash: make(map[string]*sessiondomain.Session)}
}

func (r *Sessions) GetByTokenHash(_ context.Context, tokenHash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySession(r.byHash[tokenHash]), nil
}

func (r *Sessions) Create(_ context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[s.TokenHash]; ok {
		return sessiondomain.ErrDuplicateToken
	}
	r.byHash[s.TokenHash] = copySession(s)
	return nil
}

func (r *Sessions) MarkSignedOut(_ context.Context, tokenHash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byHash[tokenHash]
	if !ok || s.SignedOutAt != nil {
		return false, nil
	}
	s.SignedOutAt = &at
	return true, nil
}

// Len returns the number of stored sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}

func copySession(s *sessiondomain.Session) *sessiondomain.Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.SignedOutAt != nil {
		t := *s.SignedOutAt
		c.SignedOutAt = &t
	}
	return &c
}

// Clock is a settable test clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Env bundles an AuthService with its in-memory stores.
type Env struct {
	Auth     *service.AuthService
	Accounts *Accounts
	Sessions *Sessions
	Clock    *Clock
}

// New returns an Env using cheap password hashing and a fresh ES256 key.
// opts.Now is replaced by the Env clock.
func New(opts service.Options) (*Env, error) {
	tokens, err := security.NewTestTokenCodec()
	if err != nil {
		return nil, err
	}
	env := &Env{
		Accounts: NewAccounts(),
		Sessions: NewSessions(),
		Clock:    NewClock(time.Now().UTC()),
	}
	opts.Now = env.Clock.Now
	env.Auth = service.NewAuthService(env.Accounts, env.Sessions, security.NewTestPasswordCrypto(), tokens, nil, opts)
	return env, nil
}

// SignUpAndSignIn creates an account with role and returns it with a fresh token.
func (e *Env) SignUpAndSignIn(ctx context.Context, username, role string) (*accountdomain.Account, string, error) {
	acct, err := e.Auth.SignUp(ctx, service.SignUpInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw-" + username,
		Role:     role,
	})
	if err != nil {
		return nil, "", err
	}
	res, err := e.Auth.SignIn(ctx, username, "pw-"+username)
	if err != nil {
		return nil, "", err
	}
	return acct, res.Token, nil
}

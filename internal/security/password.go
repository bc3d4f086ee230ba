package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/argon2"
)

const saltBytes = 16

// PasswordParams are the argon2id cost parameters used to derive password digests.
type PasswordParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	KeyLen   uint32
}

// DefaultPasswordParams returns the RFC 9106 second recommended argon2id profile.
func DefaultPasswordParams() PasswordParams {
	return PasswordParams{Time: 1, MemoryKB: 64 * 1024, Threads: 4, KeyLen: 32}
}

// PasswordCrypto derives and verifies password digests with a per-account salt.
// Callers must not log or persist plaintext passwords.
type PasswordCrypto struct {
	params PasswordParams
}

// NewPasswordCrypto returns a PasswordCrypto using params. Zero fields fall back to the defaults.
func NewPasswordCrypto(params PasswordParams) *PasswordCrypto {
	def := DefaultPasswordParams()
	if params.Time == 0 {
		params.Time = def.Time
	}
	if params.MemoryKB == 0 {
		params.MemoryKB = def.MemoryKB
	}
	if params.Threads == 0 {
		params.Threads = def.Threads
	}
	if params.KeyLen == 0 {
		params.KeyLen = def.KeyLen
	}
	return &PasswordCrypto{params: params}
}

// Params returns the effective argon2id parameters.
func (p *PasswordCrypto) Params() PasswordParams {
	return p.params
}

// GenerateSalt returns a fresh random salt, base64 encoded for storage.
func (p *PasswordCrypto) GenerateSalt() string {
	b := make([]byte, saltBytes)
	// crypto/rand.Read never returns an error since Go 1.24.
	_, _ = rand.Read(b)
	return base64.RawStdEncoding.EncodeToString(b)
}

// Hash derives the digest of password under salt. The same pair always yields the
// same digest. Any string is accepted as salt, including the empty string.
func (p *PasswordCrypto) Hash(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), p.params.Time, p.params.MemoryKB, p.params.Threads, p.params.KeyLen)
	return base64.RawStdEncoding.EncodeToString(key)
}

// Verify reports whether password hashes to digest under salt, using constant-time comparison.
func (p *PasswordCrypto) Verify(password, salt, digest string) bool {
	computed := p.Hash(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

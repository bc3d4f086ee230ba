package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
)

// Cheap argon2id parameters for unit tests. Do not use in production.
var testPasswordParams = PasswordParams{Time: 1, MemoryKB: 8 * 1024, Threads: 1, KeyLen: 32}

// NewTestPasswordCrypto returns a PasswordCrypto with low-cost parameters.
// For unit tests only.
func NewTestPasswordCrypto() *PasswordCrypto {
	return NewPasswordCrypto(testPasswordParams)
}

// NewTestTokenCodec returns an ES256 TokenCodec backed by a freshly generated P-256 key.
// For unit tests only.
func NewTestTokenCodec() (*TokenCodec, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewTokenCodec(key, &key.PublicKey, "test-issuer", "test-audience")
}

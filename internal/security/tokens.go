package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, tampered with, or signed by another issuer.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSigningKey is returned when a TokenCodec is built without usable key material.
	ErrNoSigningKey = errors.New("no token signing key configured")
)

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// TokenClaims is the decoded content of a session token.
type TokenClaims struct {
	ID        string
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and decodes signed session tokens. Tokens are signed with RS256/ES256
// when built from a key pair, or HS256 when built from a shared secret.
type TokenCodec struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	audience  string
}

// NewTokenCodec returns a TokenCodec that signs with privateKey (RSA or ECDSA P-256) and
// verifies with publicKey.
func NewTokenCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) (*TokenCodec, error) {
	if privateKey == nil || publicKey == nil {
		return nil, ErrNoSigningKey
	}
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	return &TokenCodec{
		method:    method,
		signKey:   privateKey,
		verifyKey: publicKey,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// NewHMACTokenCodec returns a TokenCodec that signs and verifies with HS256 and secret.
func NewHMACTokenCodec(secret []byte, issuer, audience string) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrNoSigningKey
	}
	return &TokenCodec{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		issuer:    issuer,
		audience:  audience,
	}, nil
}

// Issue returns a signed token for subjectID valid from issuedAt until expiresAt.
// Each call embeds a fresh random jti, so two tokens are never equal.
func (c *TokenCodec) Issue(subjectID string, issuedAt, expiresAt time.Time) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subjectID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.signKey)
}

// Decode verifies the signature, issuer and audience of token and returns its claims.
// The validity window is returned but not enforced.
func (c *TokenCodec) Decode(token string) (TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return c.verifyKey, nil
	})
	if err != nil {
		return TokenClaims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return TokenClaims{}, ErrInvalidToken
	}
	if claims.Issuer != c.issuer || !slices.Contains(claims.Audience, c.audience) {
		return TokenClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return TokenClaims{}, ErrInvalidToken
	}
	return TokenClaims{
		ID:        claims.ID,
		SubjectID: claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

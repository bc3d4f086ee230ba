package security

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidKey is returned when key material is not an RSA or ECDSA key in PEM form.
	ErrInvalidKey = errors.New("invalid key")
	// ErrKeyMismatch is returned when JWT_PUBLIC_KEY does not belong to JWT_PRIVATE_KEY.
	ErrKeyMismatch = errors.New("public key does not match private key")
)

// NewTokenCodecFromPEM builds an RS256 or ES256 codec from a PEM key pair. Each source is
// either inline PEM or a path to a PEM file.
func NewTokenCodecFromPEM(privateSrc, publicSrc, issuer, audience string) (*TokenCodec, error) {
	privPEM, err := readPEM(privateSrc)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	pubPEM, err := readPEM(publicSrc)
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}

	var (
		signer crypto.Signer
		pub    crypto.PublicKey
	)
	if rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM); err == nil {
		rsaPub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %v", ErrInvalidKey, err)
		}
		signer, pub = rsaKey, rsaPub
	} else if ecKey, err := jwt.ParseECPrivateKeyFromPEM(privPEM); err == nil {
		ecPub, err := jwt.ParseECPublicKeyFromPEM(pubPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: public key: %v", ErrInvalidKey, err)
		}
		signer, pub = ecKey, ecPub
	} else {
		return nil, fmt.Errorf("%w: private key is neither RSA nor ECDSA", ErrInvalidKey)
	}

	type equaler interface{ Equal(crypto.PublicKey) bool }
	if eq, ok := signer.Public().(equaler); !ok || !eq.Equal(pub) {
		return nil, ErrKeyMismatch
	}
	return NewTokenCodec(signer, pub, issuer, audience)
}

func readPEM(src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, ErrInvalidKey
	case strings.HasPrefix(src, "-----BEGIN"):
		return []byte(src), nil
	}
	return os.ReadFile(src)
}

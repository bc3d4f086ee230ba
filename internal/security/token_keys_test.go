package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func pemPair(t *testing.T, key crypto.Signer) (string, string) {
	t.Helper()
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})),
		string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}))
}

func TestNewTokenCodecFromPEM(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ecPriv, ecPub := pemPair(t, ecKey)
	rsaPriv, rsaPub := pemPair(t, rsaKey)

	pubPath := filepath.Join(t.TempDir(), "pub.pem")
	if err := os.WriteFile(pubPath, []byte(ecPub), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	for name, pair := range map[string][2]string{
		"ecdsa inline":   {ecPriv, ecPub},
		"ecdsa pub file": {ecPriv, pubPath},
		"rsa inline":     {rsaPriv, rsaPub},
	} {
		t.Run(name, func(t *testing.T) {
			codec, err := NewTokenCodecFromPEM(pair[0], pair[1], "iss", "aud")
			if err != nil {
				t.Fatalf("NewTokenCodecFromPEM: %v", err)
			}
			now := time.Now()
			tok, err := codec.Issue("acct-1", now, now.Add(time.Hour))
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			claims, err := codec.Decode(tok)
			if err != nil || claims.SubjectID != "acct-1" {
				t.Errorf("Decode = %+v, %v", claims, err)
			}
		})
	}
}

func TestNewTokenCodecFromPEM_Rejects(t *testing.T) {
	a, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	b, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	aPriv, _ := pemPair(t, a)
	_, bPub := pemPair(t, b)

	if _, err := NewTokenCodecFromPEM(aPriv, bPub, "iss", "aud"); !errors.Is(err, ErrKeyMismatch) {
		t.Errorf("mismatched pair: err = %v, want ErrKeyMismatch", err)
	}
	if _, err := NewTokenCodecFromPEM("", bPub, "iss", "aud"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("empty private key: err = %v, want ErrInvalidKey", err)
	}
	if _, err := NewTokenCodecFromPEM("-----BEGIN NOTHING-----", bPub, "iss", "aud"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("garbage private key: err = %v, want ErrInvalidKey", err)
	}
	if _, err := NewTokenCodecFromPEM(filepath.Join(t.TempDir(), "missing.pem"), bPub, "iss", "aud"); err == nil {
		t.Error("missing key file should fail")
	}
}

package security

import "testing"

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Errorf("len(HashToken) = %d, want 64 hex chars", len(a))
	}
	if a != HashToken("token-a") {
		t.Error("HashToken not deterministic")
	}
	if a == HashToken("token-b") {
		t.Error("different tokens share a fingerprint")
	}
}

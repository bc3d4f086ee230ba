package security

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// sessionTokenKey is the BLAKE3 key for session token fingerprints: ASCII domain
// name zero-padded to 32 bytes. Changing it orphans every stored session.
var sessionTokenKey = [32]byte{
	'q', 'n', 'a', '.', 's', 'e', 's', 's', 'i', 'o', 'n', '.',
	't', 'o', 'k', 'e', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashToken returns the hex-encoded keyed BLAKE3 fingerprint of a bearer token.
// Session stores index by this value so raw tokens are never persisted.
func HashToken(token string) string {
	h, err := blake3.NewKeyed(sessionTokenKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("security: invalid token hash key: " + err.Error())
	}
	_, _ = h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns a trimmed-input SHA-256 hash encoded in hex.
func SHA256Hex(input string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(input)))
	return hex.EncodeToString(sum[:])
}

// DeriveIdentifier builds the opaque gate identifier for a caller from its
// network address and client signature (user agent or similar). The two parts
// are hashed together so raw addresses never appear as store keys.
func DeriveIdentifier(remoteAddr, clientSignature string) string {
	return SHA256Hex(strings.TrimSpace(remoteAddr) + "|" + strings.TrimSpace(clientSignature))
}

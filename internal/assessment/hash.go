package assessment

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashValue returns the lowercase hex SHA-256 digest of value. Raw IPs,
// fingerprints and user agents are never stored; only these digests are.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

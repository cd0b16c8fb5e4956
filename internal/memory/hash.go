package memory

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent computes the SHA-256 digest of content, hex-encoded.
// Deterministic and side-effect free; used for integrity verification.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// VerifyContentHash checks a record's stored hash against its content.
// A record without a stored hash always verifies.
func VerifyContentHash(m *Memory) error {
	if m.ContentHash == "" {
		return nil
	}
	if HashContent([]byte(m.Content)) != m.ContentHash {
		return NewStoreErrorWithPath(KindConsistency, "VerifyContentHash", m.ID, ErrHashMismatch)
	}
	return nil
}

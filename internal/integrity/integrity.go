// Package integrity computes and compares document content digests.
//
// The digest is SHA-256 over the exact stored bytes, hex-encoded. Verification
// is binary: the recomputed digest either equals the reference or it does not.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Algorithm names the digest recorded alongside documents.
const Algorithm = "sha256"

// Result is the outcome of a verification.
type Result struct {
	Verified bool   `json:"verified"`
	Hash     string `json:"hash"`
}

// Hash returns the hex-encoded SHA-256 digest of payload.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest of payload and compares it with referenceHash.
// Hex case in the reference is ignored.
func Verify(payload []byte, referenceHash string) Result {
	computed := Hash(payload)
	ref := strings.ToLower(strings.TrimSpace(referenceHash))
	ok := len(ref) == len(computed) &&
		subtle.ConstantTimeCompare([]byte(computed), []byte(ref)) == 1
	return Result{Verified: ok, Hash: computed}
}

// Notification payloads are canonicalized per RFC 8785 before hashing so
// that two deliveries of the same notification produce the same checksum
// regardless of key order or whitespace in the JSON.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785.
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	return jcs.Transform(jsonData)
}

// CanonicalSHA256Hex canonicalizes JSON and returns the SHA-256 of the
// canonical form as a hex string. Used to deduplicate redelivered
// notifications.
func CanonicalSHA256Hex(jsonData []byte) (string, error) {
	canonical, err := CanonicalizeJSON(jsonData)
	if err != nil {
		return "", WrapInternalError(err, "failed to canonicalize JSON")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Package checksum provides the content fingerprinting primitives used for
// dataset identities and stage record staleness checks.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// JSON marshals v to canonical JSON (encoding/json sorts map keys) and
// returns the digest of the result. Payload fingerprints must be stable
// across processes, so only JSON-serializable values are accepted.
func JSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("checksum: marshal payload: %w", err)
	}
	return Sum(data), nil
}

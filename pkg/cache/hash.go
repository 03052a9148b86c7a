package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// HashReader hashes everything readable from r without buffering it.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Key joins a namespace and its parts into a cache key ("probe:v1:<hash>").
func Key(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

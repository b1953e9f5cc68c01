package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns a stable hex digest used for cache keys derived from free text.
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

package common

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// ContentChecksum computes the canonical identity of a markdown artifact:
// Unicode NFC normalization followed by SHA-256, lowercase hex.
// Any other hashing in the system (e.g. the in-browser DOM signature)
// must not be compared against this value.
func ContentChecksum(content string) string {
	normalized := norm.NFC.String(content)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeNFC applies Unicode NFC normalization to a string.
func NormalizeNFC(s string) string {
	return norm.NFC.String(s)
}

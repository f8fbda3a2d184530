package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// RowFingerprint is the content hash of a single data row, used for
// duplicate-row detection. Cells are joined with an unlikely separator so
// that ["a,b"] and ["a","b"] fingerprint differently.
type RowFingerprint Hash

// NewRowFingerprint computes the fingerprint of a row's cells in column order
func NewRowFingerprint(cells []string) RowFingerprint {
	var data strings.Builder
	for i, cell := range cells {
		if i > 0 {
			data.WriteByte(0x1f) // unit separator
		}
		data.WriteString(cell)
	}
	return RowFingerprint(NewHash([]byte(data.String())))
}

// String conversion
func (f RowFingerprint) String() string { return Hash(f).String() }

// Package hashid implements the 32-byte SHA-256 digest used to
// content-address transactions throughout the graph.
package hashid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size is the number of bytes in a Hash.
const Size = 32

// Hash is a fixed-size SHA-256 digest.
type Hash [Size]byte

// Sum returns the SHA-256 digest of data.
func Sum(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// FromBytes parses a Hash from exactly Size raw bytes.
func FromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != Size {
		return h, fmt.Errorf("hashid: invalid length %d, expected %d", len(b), Size)
	}
	copy(h[:], b)
	return h, nil
}

// FromHex parses a Hash from a lower-hex encoded string of 64 characters.
func FromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("hashid: invalid hex: %w", err)
	}
	return FromBytes(b)
}

// String returns the lower-hex representation of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the underlying bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// Equal reports whether h and other hold the same bytes.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// IsZero reports whether h is the zero value.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Package chainhash provides the fixed-width hash type and hashing
// primitives the rest of this module builds on: single/double SHA256,
// RIPEMD160, HASH160, HASH256, and the BIP340 tagged hash.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

// HashSize is the number of bytes in a hash.
const HashSize = 32

// Hash is a 32-byte, internal-byte-order hash. Bitcoin displays hashes in
// reversed (big-endian) hex; String() performs that reversal, but the
// underlying bytes are stored the way they are hashed and serialized.
type Hash [HashSize]byte

// String returns the reverse-hex representation used by block explorers and
// RPC surfaces (txid display order), not the internal byte order.
func (h Hash) String() string {
	var reversed Hash
	for i := 0; i < HashSize/2; i++ {
		reversed[i], reversed[HashSize-1-i] = h[HashSize-1-i], h[i]
	}
	return hex.EncodeToString(reversed[:])
}

// CloneBytes returns a copy of the raw, internal-order bytes.
func (h Hash) CloneBytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// IsEqual reports whether h and target are byte-for-byte equal. A nil
// target compares equal only to nil.
func (h *Hash) IsEqual(target *Hash) bool {
	if h == nil && target == nil {
		return true
	}
	if h == nil || target == nil {
		return false
	}
	return *h == *target
}

// SetBytes copies the internal-order bytes of newHash into h.
func (h *Hash) SetBytes(newHash []byte) error {
	if len(newHash) != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v",
			len(newHash), HashSize)
	}
	copy(h[:], newHash)
	return nil
}

// NewHash returns a new Hash from a byte slice in internal order.
func NewHash(newHash []byte) (*Hash, error) {
	var h Hash
	if err := h.SetBytes(newHash); err != nil {
		return nil, err
	}
	return &h, nil
}

// Sum256 returns the SHA256 digest of b.
func Sum256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// HashB returns the single SHA256 digest of b.
func HashB(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}

// HashH returns the single SHA256 digest of b as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB returns SHA256(SHA256(b)), the digest used for legacy
// signature hashes and transaction IDs.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH returns SHA256(SHA256(b)) as a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

// Ripemd160 returns the RIPEMD160 digest of b.
func Ripemd160(b []byte) []byte {
	h := ripemd160.New()
	// hash.Hash never returns an error from Write.
	_, _ = h.Write(b)
	return h.Sum(nil)
}

// Hash160 returns RIPEMD160(SHA256(b)), used to derive pubkey hashes and
// script hashes.
func Hash160(b []byte) []byte {
	return Ripemd160(HashB(b))
}

// TaggedHash implements the BIP340 tagged hash construction:
// SHA256(SHA256(tag) || SHA256(tag) || msg).
func TaggedHash(tag string, msgParts ...[]byte) Hash {
	tagHash := sha256.Sum256([]byte(tag))

	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, part := range msgParts {
		h.Write(part)
	}

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

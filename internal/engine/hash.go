package engine

import (
	"crypto"
	"crypto/sha256"
	_ "crypto/sha512"
	"encoding/hex"
	"fmt"

	_ "golang.org/x/crypto/blake2s"
	_ "golang.org/x/crypto/sha3"
)

// DigestSize is the output size every approved hash must have.
const DigestSize = 32

var approvedHashes = map[crypto.Hash]bool{
	crypto.SHA256:      true,
	crypto.SHA512_256:  true,
	crypto.SHA3_256:    true,
	crypto.BLAKE2s_256: true,
}

// Digest returns the SHA-256 digest of b.
func Digest(b []byte) [DigestSize]byte {
	return sha256.Sum256(b)
}

// HexEncode returns the lowercase hex encoding of b.
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// Hasher computes fixed-size digests with a vetted cryptographic hash.
// The zero value uses SHA-256.
type Hasher struct {
	h crypto.Hash
}

// NewHasher checks h against the approved list. Anything else, including
// hashes not linked into the binary, is rejected with ErrWeakHash.
func NewHasher(h crypto.Hash) (Hasher, error) {
	if !approvedHashes[h] {
		return Hasher{}, fmt.Errorf("%w: %v", ErrWeakHash, h)
	}
	if !h.Available() {
		return Hasher{}, fmt.Errorf("%w: %v not linked into binary", ErrWeakHash, h)
	}
	if h.Size() != DigestSize {
		return Hasher{}, fmt.Errorf("%w: %v has %d byte digest", ErrWeakHash, h, h.Size())
	}
	return Hasher{h: h}, nil
}

// Hash reports the underlying algorithm.
func (hs Hasher) Hash() crypto.Hash {
	if hs.h == 0 {
		return crypto.SHA256
	}
	return hs.h
}

// Sum returns the digest of b.
func (hs Hasher) Sum(b []byte) [DigestSize]byte {
	if hs.h == 0 || hs.h == crypto.SHA256 {
		return Digest(b)
	}
	d := hs.h.New()
	d.Write(b)
	var out [DigestSize]byte
	copy(out[:], d.Sum(nil))
	return out
}

// HexSum returns the lowercase hex digest of b.
func (hs Hasher) HexSum(b []byte) string {
	sum := hs.Sum(b)
	return HexEncode(sum[:])
}

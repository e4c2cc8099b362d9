package engine

import (
	"crypto/rand"
	"fmt"
	"io"
)

// SeedBytes is the amount of entropy behind every seed.
const SeedBytes = 32

// SystemEntropy returns the operating system's CSPRNG.
func SystemEntropy() io.Reader {
	return rand.Reader
}

// Valid reports whether s is exactly 64 lowercase hex characters.
func (s Seed) Valid() bool {
	if len(s) != SeedBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// GenerateSeed draws a fresh seed from the engine's entropy source.
// A failing source is reported as ErrEntropyUnavailable; there is no fallback.
func (f *Fairness) GenerateSeed() (Seed, error) {
	var buf [SeedBytes]byte
	if _, err := io.ReadFull(f.entropy, buf[:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return Seed(HexEncode(buf[:])), nil
}

// Intn returns a uniform integer in [0, n) from the entropy source using
// rejection sampling over 32-bit draws.
func (f *Fairness) Intn(n int) (int, error) {
	if n <= 0 || uint64(n) > windowSpace {
		return 0, fmt.Errorf("engine: Intn bound must be in [1, 2^32], got %d", n)
	}
	limit := rejectionLimit(uint64(n))
	var buf [4]byte
	for {
		if _, err := io.ReadFull(f.entropy, buf[:]); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
		}
		v := beUint32(buf)
		if uint64(v) < limit {
			return int(uint64(v) % uint64(n)), nil
		}
	}
}

package engine

import "errors"

var (
	// ErrEntropyUnavailable means no secure random source could produce a seed.
	// It is fatal: callers must not substitute a weaker source.
	ErrEntropyUnavailable = errors.New("engine: secure entropy unavailable")

	// ErrWeakHash is returned when a digest that isn't an approved 256-bit
	// cryptographic hash is configured.
	ErrWeakHash = errors.New("engine: hash is not an approved cryptographic digest")

	// ErrInvalidLayout is returned for empty layouts or rounds with too few cups.
	ErrInvalidLayout = errors.New("engine: invalid round layout")
)

// Package store keeps live game sessions and serializes actions on each one.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/games"
)

var (
	ErrNotFound = errors.New("store: session not found")
	ErrExists   = errors.New("store: session already exists")
)

// UpdateFunc computes the replacement for a session. Returning an error
// leaves the stored session untouched.
type UpdateFunc func(games.Session) (games.Session, error)

// SessionStore represents the session storage interface
type SessionStore interface {
	Create(ctx context.Context, s games.Session) error
	Get(ctx context.Context, id string) (games.Session, error)
	// Update runs fn while holding the session's lock, so two actions on
	// the same session never interleave.
	Update(ctx context.Context, id string, fn UpdateFunc) (games.Session, error)
	// Sweep drops finished sessions last touched before cutoff and reports
	// how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
	// Expire applies fn to active sessions last touched before cutoff and
	// returns the updated sessions.
	Expire(ctx context.Context, cutoff time.Time, fn UpdateFunc) ([]games.Session, error)
	Len() int
}

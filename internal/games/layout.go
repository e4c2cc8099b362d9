package games

import (
	"fmt"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
)

// DefaultRounds is the number of rounds in a generated layout.
const DefaultRounds = 10

// maxRounds bounds generated and player-supplied layouts.
const maxRounds = 50

// Intner draws uniform integers in [0, n).
type Intner interface {
	Intn(n int) (int, error)
}

// RandomLayout draws rounds with between engine.MinCups and
// engine.MaxDesignCups cups each.
func RandomLayout(rng Intner, rounds int) (engine.Layout, error) {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	if rounds > maxRounds {
		return nil, fmt.Errorf("%w: %d rounds, at most %d", engine.ErrInvalidLayout, rounds, maxRounds)
	}
	span := engine.MaxDesignCups - engine.MinCups + 1
	layout := make(engine.Layout, rounds)
	for i := range layout {
		n, err := rng.Intn(span)
		if err != nil {
			return nil, fmt.Errorf("random layout: %w", err)
		}
		layout[i] = engine.Round{Cups: engine.MinCups + n}
	}
	return layout, nil
}

// ValidatePlayable checks a layout a player asked to play: the verifier
// rules plus the design bounds on cups and round count.
func ValidatePlayable(layout engine.Layout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	if len(layout) > maxRounds {
		return fmt.Errorf("%w: %d rounds, at most %d", engine.ErrInvalidLayout, len(layout), maxRounds)
	}
	for i, r := range layout {
		if r.Cups > engine.MaxDesignCups {
			return fmt.Errorf("%w: round %d has %d cups, at most %d", engine.ErrInvalidLayout, i, r.Cups, engine.MaxDesignCups)
		}
	}
	return nil
}

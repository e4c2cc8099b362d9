package engine

import "fmt"

// ProtocolV1 is the commitment scheme shipped with the first release:
// SHA-256 over compact JSON, modulo index derivation.
const ProtocolV1 = "v1"

const (
	MinCups       = 2 // verifier lower bound
	MaxDesignCups = 7 // game-design upper bound, not enforced by the verifier
)

// Seed is a 256-bit secret encoded as 64 lowercase hex characters.
// It is hashed as ASCII text; do NOT hex-decode.
type Seed string

// Commitment is "0x" followed by the lowercase hex digest of the
// canonical game payload.
type Commitment string

// Round is one row of cups. The JSON field name is part of the commitment payload.
type Round struct {
	Cups int `json:"cups" yaml:"cups"`
}

// Layout is the ordered list of rounds a game is played over.
type Layout []Round

// NewLayout builds a layout from plain cup counts.
func NewLayout(cups ...int) Layout {
	layout := make(Layout, len(cups))
	for i, c := range cups {
		layout[i] = Round{Cups: c}
	}
	return layout
}

// Clone returns a copy that shares no memory with l.
func (l Layout) Clone() Layout {
	if l == nil {
		return nil
	}
	out := make(Layout, len(l))
	copy(out, l)
	return out
}

// Cups returns the cup counts in round order.
func (l Layout) Cups() []int {
	out := make([]int, len(l))
	for i, r := range l {
		out[i] = r.Cups
	}
	return out
}

// Validate rejects layouts that can't be played: no rounds, or a round
// with fewer than MinCups cups. The design bound of MaxDesignCups is
// left to the layout generator.
func (l Layout) Validate() error {
	if len(l) == 0 {
		return fmt.Errorf("%w: layout has no rounds", ErrInvalidLayout)
	}
	for i, r := range l {
		if r.Cups < MinCups {
			return fmt.Errorf("%w: round %d has %d cups, need at least %d", ErrInvalidLayout, i, r.Cups, MinCups)
		}
	}
	return nil
}

// DeathCup is the losing cup of a single round.
type DeathCup struct {
	Round     int `json:"round"`
	Position  int `json:"position"`
	TotalCups int `json:"total_cups"`
}

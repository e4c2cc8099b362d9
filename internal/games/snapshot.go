package games

import (
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/shopspring/decimal"
)

// Snapshot is the read-only view handed to presentation layers. The seed
// and death cups are only filled in once the session has ended.
type Snapshot struct {
	ID                string            `json:"id"`
	Version           string            `json:"version"`
	Commitment        engine.Commitment `json:"commitment"`
	Rows              engine.Layout     `json:"rows"`
	CurrentRound      int               `json:"current_round"`
	TotalRounds       int               `json:"total_rounds"`
	BetAmount         decimal.Decimal   `json:"bet_amount"`
	SelectedCups      []int             `json:"selected_cups"`
	Status            Status            `json:"status"`
	CurrentMultiplier float64           `json:"current_multiplier"`
	NextMultiplier    float64           `json:"next_multiplier"`
	FinalMultiplier   float64           `json:"final_multiplier"`
	Payout            decimal.Decimal   `json:"payout"`
	PayoutCap         *decimal.Decimal  `json:"payout_cap,omitempty"`
	Capped            bool              `json:"capped"`
	CreatedAt         time.Time         `json:"created_at"`

	Seed      engine.Seed       `json:"seed,omitempty"`
	DeathCups []engine.DeathCup `json:"death_cups,omitempty"`
}

// Snapshot copies s into a Snapshot.
func (s Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:              s.ID,
		Version:         s.Version,
		Commitment:      s.Commitment,
		Rows:            s.Layout.Clone(),
		CurrentRound:    s.CurrentRound,
		TotalRounds:     len(s.Layout),
		BetAmount:       s.BetAmount,
		SelectedCups:    append([]int{}, s.SelectedCups...),
		Status:          s.Status,
		NextMultiplier:  s.NextMultiplier(),
		FinalMultiplier: s.FinalMultiplier,
		Payout:          s.Payout,
		Capped:          s.Capped,
		CreatedAt:       s.CreatedAt,
	}
	if s.PayoutCap.IsPositive() {
		payoutCap := s.PayoutCap
		snap.PayoutCap = &payoutCap
	}
	if s.Status == StatusActive {
		snap.CurrentMultiplier = s.CashOutMultiplier()
		return snap
	}
	snap.CurrentMultiplier = s.FinalMultiplier
	snap.Seed = s.Seed
	snap.DeathCups = append([]engine.DeathCup(nil), s.DeathCups...)
	return snap
}

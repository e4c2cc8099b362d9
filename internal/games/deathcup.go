package games

import (
	"fmt"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/risk"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GameSpec describes the game to clients.
type GameSpec struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	MetricLabel string  `json:"metric_label"`
	Version     string  `json:"version"`
	HouseEdge   float64 `json:"house_edge"`
	MinCups     int     `json:"min_cups"`
	MaxCups     int     `json:"max_cups"`
	IndexMode   string  `json:"index_mode"`
}

// DealerConfig holds the house settings a Dealer deals with.
type DealerConfig struct {
	Version   string
	HouseEdge float64
	Limits    risk.Limits
	// EnforcePayoutCap turns the pot payout limit into a hard cap on every
	// session. When false the cap is only checked by callers.
	EnforcePayoutCap bool
	Clock            quartz.Clock
}

// Dealer opens sessions: it checks the bet, draws a seed and commits to it
// before the first cup is picked.
type Dealer struct {
	fairness   *engine.Fairness
	version    string
	calc       Calculator
	limits     risk.Limits
	enforceCap bool
	clock      quartz.Clock
}

// NewDealer wires a Dealer to a fairness engine.
func NewDealer(f *engine.Fairness, cfg DealerConfig) *Dealer {
	if cfg.Version == "" {
		cfg.Version = engine.ProtocolV1
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Limits.MaxBetFraction.IsZero() && cfg.Limits.MaxPayoutFraction.IsZero() {
		cfg.Limits = risk.DefaultLimits()
	}
	return &Dealer{
		fairness:   f,
		version:    cfg.Version,
		calc:       NewCalculator(cfg.HouseEdge),
		limits:     cfg.Limits,
		enforceCap: cfg.EnforcePayoutCap,
		clock:      cfg.Clock,
	}
}

// Spec returns metadata about the game.
func (d *Dealer) Spec() GameSpec {
	return GameSpec{
		ID:          "deathcup",
		Name:        "Death Cup",
		MetricLabel: "rounds_survived",
		Version:     d.version,
		HouseEdge:   d.calc.HouseEdge,
		MinCups:     engine.MinCups,
		MaxCups:     engine.MaxDesignCups,
		IndexMode:   d.fairness.Mode().String(),
	}
}

func (d *Dealer) Calculator() Calculator { return d.calc }

func (d *Dealer) Limits() risk.Limits { return d.limits }

func (d *Dealer) EnforcesPayoutCap() bool { return d.enforceCap }

// RandomLayout draws a layout from the dealer's entropy source.
func (d *Dealer) RandomLayout(rounds int) (engine.Layout, error) {
	return RandomLayout(d.fairness, rounds)
}

// Deal validates layout and bet against the current pot and opens a
// session committed to a fresh seed.
func (d *Dealer) Deal(pot, bet decimal.Decimal, layout engine.Layout) (Session, error) {
	if err := ValidatePlayable(layout); err != nil {
		return Session{}, err
	}
	if err := d.limits.ValidateBet(pot, bet); err != nil {
		return Session{}, err
	}
	seed, err := d.fairness.GenerateSeed()
	if err != nil {
		return Session{}, fmt.Errorf("deal: %w", err)
	}

	layout = layout.Clone()
	s := NewSession(
		uuid.NewString(),
		d.version,
		seed,
		d.fairness.CommitmentHash(d.version, layout, seed),
		layout,
		d.fairness.GenerateAllDeathCups(seed, layout),
		bet,
		d.calc,
	)
	s.CreatedAt = d.clock.Now()
	if d.enforceCap {
		s = s.WithPayoutCap(d.limits.MaxPayout(pot))
	}
	return s, nil
}

// Audit is the outcome of checking a revealed game.
type Audit struct {
	Valid     bool              `json:"valid"`
	Message   string            `json:"message"`
	DeathCups []engine.DeathCup `json:"death_cups"`
	Replay    *Snapshot         `json:"replay,omitempty"`
}

const (
	auditValidMessage   = "Game is provably fair! The commitment hash matches the seed and round configuration."
	auditInvalidMessage = "Verification failed! The commitment hash does not match the provided seed and round configuration."
)

// Verify checks a revealed (seed, layout) against a published commitment
// and derives the death cups it implies.
func (d *Dealer) Verify(commitment engine.Commitment, version string, layout engine.Layout, seed engine.Seed) Audit {
	a := Audit{
		Valid:     d.fairness.Verify(commitment, version, layout, seed),
		DeathCups: d.fairness.GenerateAllDeathCups(seed, layout),
	}
	a.Message = auditInvalidMessage
	if a.Valid {
		a.Message = auditValidMessage
	}
	return a
}

// Replay rebuilds a finished game from its revealed data and the picks the
// player made, so the recorded outcome can be checked independently. A
// replay that ends still active is cashed out when cashedOut is set.
func (d *Dealer) Replay(version string, layout engine.Layout, seed engine.Seed, bet decimal.Decimal, picks []int, cashedOut bool) (Session, error) {
	if err := layout.Validate(); err != nil {
		return Session{}, err
	}
	s := NewSession("replay", version, seed, d.fairness.CommitmentHash(version, layout, seed),
		layout, d.fairness.GenerateAllDeathCups(seed, layout), bet, d.calc)
	for i, cup := range picks {
		next, err := s.Select(cup)
		if err != nil {
			return s, fmt.Errorf("replay pick %d: %w", i, err)
		}
		s = next
	}
	if cashedOut {
		s = CashOut(s)
	}
	return s, nil
}

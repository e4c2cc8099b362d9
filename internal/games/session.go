package games

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a session. Only Active is non-terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusBusted    Status = "busted"
	StatusCompleted Status = "completed"
	StatusCashedOut Status = "cashed_out"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s != StatusActive
}

var (
	ErrSessionClosed = errors.New("games: session is no longer active")
	ErrCupOutOfRange = errors.New("games: cup index out of range")
)

// Session is one game. It is a value: transitions return a new Session and
// never modify the one they were given.
type Session struct {
	ID              string            `json:"id"`
	Version         string            `json:"version"`
	Seed            engine.Seed       `json:"seed"`
	Commitment      engine.Commitment `json:"commitment"`
	Layout          engine.Layout     `json:"rows"`
	DeathCups       []engine.DeathCup `json:"death_cups"`
	CurrentRound    int               `json:"current_round"`
	BetAmount       decimal.Decimal   `json:"bet_amount"`
	SelectedCups    []int             `json:"selected_cups"`
	Status          Status            `json:"status"`
	FinalMultiplier float64           `json:"final_multiplier"`
	Payout          decimal.Decimal   `json:"payout"`
	Multipliers     Calculator        `json:"multipliers"`
	// PayoutCap, when positive, is enforced at cash-out and completion.
	PayoutCap decimal.Decimal `json:"payout_cap"`
	Capped    bool            `json:"capped"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewSession starts a game at round 0. The session keeps its own copies of
// layout and deathCups. While active the whole bet is at stake, so the
// multiplier is 1 and the payout equals the bet.
func NewSession(id, version string, seed engine.Seed, commitment engine.Commitment, layout engine.Layout,
	deathCups []engine.DeathCup, bet decimal.Decimal, calc Calculator) Session {
	return Session{
		ID:              id,
		Version:         version,
		Seed:            seed,
		Commitment:      commitment,
		Layout:          layout.Clone(),
		DeathCups:       append([]engine.DeathCup(nil), deathCups...),
		BetAmount:       bet,
		SelectedCups:    []int{},
		Status:          StatusActive,
		FinalMultiplier: 1.0,
		Payout:          payoutFor(bet, 1.0),
		Multipliers:     calc,
	}
}

// WithPayoutCap returns a copy of s that enforces maxPayout at settlement.
func (s Session) WithPayoutCap(maxPayout decimal.Decimal) Session {
	s.PayoutCap = maxPayout
	return s
}

// SelectCup plays the current round. Picking the death cup busts the
// session; otherwise the pick is recorded and the session either moves to
// the next round or completes after the last one. Any other cup counts as
// safe, including one outside the round; Select is the checked entry point.
// Inactive sessions are returned unchanged.
func SelectCup(s Session, cup int) Session {
	if s.Status != StatusActive || s.CurrentRound >= len(s.DeathCups) {
		return s
	}
	death := s.DeathCups[s.CurrentRound]

	next := s.clone()
	if cup == death.Position {
		next.Status = StatusBusted
		next.FinalMultiplier = 0
		next.Payout = payoutFor(next.BetAmount, 0)
		return next
	}

	next.SelectedCups = append(next.SelectedCups, cup)
	next.CurrentRound++
	if next.CurrentRound == len(next.Layout) {
		next.Status = StatusCompleted
		next.settle(next.Multipliers.Total(next.Layout, next.CurrentRound-1))
	}
	return next
}

// CashOut ends an active session at the multiplier earned so far. Cashing
// out before surviving a round returns the stake (multiplier 1).
func CashOut(s Session) Session {
	if s.Status != StatusActive {
		return s
	}
	next := s.clone()
	next.Status = StatusCashedOut
	next.settle(next.CashOutMultiplier())
	return next
}

// Select is SelectCup with the rejected cases reported as errors.
func (s Session) Select(cup int) (Session, error) {
	if s.Status != StatusActive || s.CurrentRound >= len(s.Layout) {
		return s, fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	if total := s.Layout[s.CurrentRound].Cups; cup < 0 || cup >= total {
		return s, fmt.Errorf("%w: cup %d, round %d has %d cups", ErrCupOutOfRange, cup, s.CurrentRound, total)
	}
	return SelectCup(s, cup), nil
}

// CashOut is the package CashOut with a closed session reported as an error.
func (s Session) CashOut() (Session, error) {
	if s.Status != StatusActive {
		return s, fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	return CashOut(s), nil
}

// CashOutMultiplier is what cashing out now would pay, before any cap.
func (s Session) CashOutMultiplier() float64 {
	if s.CurrentRound < 1 {
		return 1.0
	}
	return s.Multipliers.Total(s.Layout, s.CurrentRound-1)
}

// NextMultiplier is what surviving the current round would be worth.
func (s Session) NextMultiplier() float64 {
	if s.Status != StatusActive {
		return s.FinalMultiplier
	}
	return s.Multipliers.Total(s.Layout, s.CurrentRound)
}

func (s *Session) settle(multiplier float64) {
	s.FinalMultiplier = multiplier
	if s.PayoutCap.IsPositive() && s.BetAmount.IsPositive() && payoutFor(s.BetAmount, multiplier).GreaterThan(s.PayoutCap) {
		s.FinalMultiplier = cappedMultiplier(s.BetAmount, s.PayoutCap, multiplier)
		s.Capped = true
	}
	s.Payout = payoutFor(s.BetAmount, s.FinalMultiplier)
}

// cappedMultiplier is the largest float multiplier m <= ceiling whose
// payout bet*m does not exceed maxPayout.
func cappedMultiplier(bet, maxPayout decimal.Decimal, ceiling float64) float64 {
	m := math.Min(maxPayout.Div(bet).InexactFloat64(), ceiling)
	for m > 0 && payoutFor(bet, m).GreaterThan(maxPayout) {
		m = math.Nextafter(m, 0)
	}
	return m
}

func payoutFor(bet decimal.Decimal, multiplier float64) decimal.Decimal {
	return bet.Mul(decimal.NewFromFloat(multiplier))
}

func (s Session) clone() Session {
	next := s
	next.Layout = s.Layout.Clone()
	next.DeathCups = append([]engine.DeathCup(nil), s.DeathCups...)
	next.SelectedCups = append(make([]int, 0, len(s.SelectedCups)+1), s.SelectedCups...)
	return next
}

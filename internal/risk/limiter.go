package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultMaxBetFraction    = 0.01
	DefaultMaxPayoutFraction = 0.05
)

var (
	ErrInvalidBetAmount = errors.New("risk: invalid bet amount")
	ErrPayoutExceedsCap = errors.New("risk: payout exceeds cap")
)

// BetError explains why a bet was refused.
type BetError struct {
	Amount decimal.Decimal
	MaxBet decimal.Decimal
	Reason string
}

func (e *BetError) Error() string {
	return e.Reason
}

func (e *BetError) Unwrap() error {
	return ErrInvalidBetAmount
}

// PayoutError carries the highest multiplier the bet could still be paid at.
type PayoutError struct {
	Payout        decimal.Decimal
	MaxPayout     decimal.Decimal
	MaxMultiplier float64
	Reason        string
}

func (e *PayoutError) Error() string {
	return e.Reason
}

func (e *PayoutError) Unwrap() error {
	return ErrPayoutExceedsCap
}

// Limits caps bets and payouts as fractions of the pot. The pot itself is
// passed to every call and never stored.
type Limits struct {
	MaxBetFraction    decimal.Decimal
	MaxPayoutFraction decimal.Decimal
}

// DefaultLimits returns 1% of pot per bet and 5% of pot per payout.
func DefaultLimits() Limits {
	return NewLimits(DefaultMaxBetFraction, DefaultMaxPayoutFraction)
}

// NewLimits builds Limits from float fractions.
func NewLimits(maxBetFraction, maxPayoutFraction float64) Limits {
	return Limits{
		MaxBetFraction:    decimal.NewFromFloat(maxBetFraction),
		MaxPayoutFraction: decimal.NewFromFloat(maxPayoutFraction),
	}
}

// MaxBet is pot * MaxBetFraction.
func (l Limits) MaxBet(pot decimal.Decimal) decimal.Decimal {
	return pot.Mul(l.MaxBetFraction)
}

// MaxPayout is pot * MaxPayoutFraction.
func (l Limits) MaxPayout(pot decimal.Decimal) decimal.Decimal {
	return pot.Mul(l.MaxPayoutFraction)
}

// ValidateBet refuses non-positive bets and bets above MaxBet.
func (l Limits) ValidateBet(pot, amount decimal.Decimal) error {
	maxBet := l.MaxBet(pot)
	if !amount.IsPositive() {
		return &BetError{Amount: amount, MaxBet: maxBet, Reason: "bet amount must be greater than 0"}
	}
	if amount.GreaterThan(maxBet) {
		return &BetError{
			Amount: amount,
			MaxBet: maxBet,
			Reason: fmt.Sprintf("bet exceeds maximum of %s (%s%% of pot)", maxBet.StringFixed(4), percent(l.MaxBetFraction)),
		}
	}
	return nil
}

// ValidatePayout checks bet*multiplier against MaxPayout. On failure the
// error reports MaxPayout/bet so the player can be told when to cash out.
func (l Limits) ValidatePayout(pot, bet decimal.Decimal, multiplier float64) error {
	maxPayout := l.MaxPayout(pot)
	payout := bet.Mul(decimal.NewFromFloat(multiplier))
	if payout.LessThanOrEqual(maxPayout) {
		return nil
	}
	maxMultiplier := 0.0
	if bet.IsPositive() {
		maxMultiplier = maxPayout.Div(bet).InexactFloat64()
	}
	return &PayoutError{
		Payout:        payout,
		MaxPayout:     maxPayout,
		MaxMultiplier: maxMultiplier,
		Reason: fmt.Sprintf("payout would exceed maximum of %s (%s%% of pot). Please cash out before %.2fx",
			maxPayout.StringFixed(4), percent(l.MaxPayoutFraction), maxMultiplier),
	}
}

func percent(fraction decimal.Decimal) string {
	return fraction.Shift(2).String()
}

// PotSource reports the current bankroll. Implementations talk to whatever
// ledger or contract holds the pot; callers ask again for every decision.
type PotSource interface {
	Pot(ctx context.Context) (decimal.Decimal, error)
}

// StaticPot is a fixed pot, used when no ledger is wired in.
type StaticPot decimal.Decimal

func (p StaticPot) Pot(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(p), nil
}

// PotFunc adapts a function to PotSource.
type PotFunc func(ctx context.Context) (decimal.Decimal, error)

func (f PotFunc) Pot(ctx context.Context) (decimal.Decimal, error) {
	return f(ctx)
}

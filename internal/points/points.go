// Package points computes loyalty points: one point per whole USD wagered,
// earned on every finished game whatever the outcome.
package points

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPriceUSD is the bet currency price used when no oracle is wired in.
var DefaultPriceUSD = decimal.NewFromInt(100)

// PriceSource quotes the bet currency in USD.
type PriceSource interface {
	PriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// StaticPrice is a fixed quote.
type StaticPrice decimal.Decimal

func (p StaticPrice) PriceUSD(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(p), nil
}

// ForBet returns floor(bet * priceUSD). Negative inputs earn nothing.
func ForBet(bet, priceUSD decimal.Decimal) int64 {
	usd := bet.Mul(priceUSD)
	if !usd.IsPositive() {
		return 0
	}
	return usd.Floor().IntPart()
}

// Calculator resolves the price on each call.
type Calculator struct {
	Prices PriceSource
}

// ForBet prices the bet with the current quote.
func (c Calculator) ForBet(ctx context.Context, bet decimal.Decimal) (int64, error) {
	price := DefaultPriceUSD
	if c.Prices != nil {
		p, err := c.Prices.PriceUSD(ctx)
		if err != nil {
			return 0, fmt.Errorf("points: price: %w", err)
		}
		price = p
	}
	return ForBet(bet, price), nil
}

package games

import "github.com/OnChainMee/onchainmee.fun/internal/engine"

// DefaultHouseEdge is the share of the fair multiplier paid out (95% RTP).
const DefaultHouseEdge = 0.95

// BaseMultiplier is the fair multiplier for surviving one round with a
// single death cup among cups: 1 / (1 - 1/cups).
func BaseMultiplier(cups int) float64 {
	if cups <= 1 {
		return 1.0
	}
	return 1 / (1 - 1/float64(cups))
}

// CumulativeMultiplier multiplies the base multipliers of rounds 0..upTo
// left to right. Rounds past the end of the layout are ignored.
func CumulativeMultiplier(layout engine.Layout, upTo int) float64 {
	cumulative := 1.0
	for i := 0; i <= upTo && i < len(layout); i++ {
		cumulative *= BaseMultiplier(layout[i].Cups)
	}
	return cumulative
}

// Calculator applies the house edge to cumulative multipliers.
type Calculator struct {
	HouseEdge float64 `json:"house_edge"`
}

// NewCalculator returns a Calculator, falling back to DefaultHouseEdge
// for a zero or negative edge.
func NewCalculator(houseEdge float64) Calculator {
	if houseEdge <= 0 {
		houseEdge = DefaultHouseEdge
	}
	return Calculator{HouseEdge: houseEdge}
}

func (c Calculator) edge() float64 {
	if c.HouseEdge <= 0 {
		return DefaultHouseEdge
	}
	return c.HouseEdge
}

// Total is the player-facing multiplier after surviving roundIndex.
func (c Calculator) Total(layout engine.Layout, roundIndex int) float64 {
	return CumulativeMultiplier(layout, roundIndex) * c.edge()
}

// RoundQuote is one row of a multiplier table.
type RoundQuote struct {
	Round      int     `json:"round"`
	Cups       int     `json:"cups"`
	Base       float64 `json:"base"`
	Cumulative float64 `json:"cumulative"`
	Total      float64 `json:"total"`
	// Survival is the chance of clearing every round up to this one.
	Survival float64 `json:"survival"`
}

// Table quotes every round of layout.
func (c Calculator) Table(layout engine.Layout) []RoundQuote {
	quotes := make([]RoundQuote, len(layout))
	cumulative, survival := 1.0, 1.0
	for i, r := range layout {
		base := BaseMultiplier(r.Cups)
		cumulative *= base
		survival /= base
		quotes[i] = RoundQuote{
			Round:      i,
			Cups:       r.Cups,
			Base:       base,
			Cumulative: cumulative,
			Total:      cumulative * c.edge(),
			Survival:   survival,
		}
	}
	return quotes
}

package sim

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimulator(t *testing.T) *Simulator {
	t.Helper()
	f, err := engine.NewFairness(engine.SystemEntropy())
	require.NoError(t, err)
	return New(f, games.NewCalculator(games.DefaultHouseEdge), 4)
}

func TestReturnToPlayerMatchesHouseEdge(t *testing.T) {
	tests := []struct {
		name         string
		rows         engine.Layout
		cashOutAfter int
	}{
		{"single coin flip", engine.NewLayout(2), 0},
		{"cash out early", engine.NewLayout(3, 4, 5), 1},
		{"play through", engine.NewLayout(3, 4), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const n = 40_000
			sum, err := newSimulator(t).Run(context.Background(), Request{
				Rows:         tt.rows,
				CashOutAfter: tt.cashOutAfter,
				Games:        n,
			})
			require.NoError(t, err)

			assert.Equal(t, uint64(n), sum.Games)
			assert.Equal(t, sum.Games, sum.Busted+sum.Completed+sum.CashedOut)
			assert.InDelta(t, games.DefaultHouseEdge, sum.ExpectedRTP, 1e-9)
			// Several standard errors wide for these layouts.
			assert.InDelta(t, sum.ExpectedRTP, sum.ReturnToPlayer, 0.06)
			assert.False(t, sum.TimedOut)
		})
	}
}

func TestCashOutStrategyOutcomes(t *testing.T) {
	sum, err := newSimulator(t).Run(context.Background(), Request{
		Rows:         engine.NewLayout(3, 4),
		CashOutAfter: 1,
		Games:        2_000,
	})
	require.NoError(t, err)

	assert.Zero(t, sum.Completed, "cashing out after round one never completes")
	assert.NotZero(t, sum.CashedOut)
	assert.NotZero(t, sum.Busted)
	want := games.NewCalculator(games.DefaultHouseEdge).Total(engine.NewLayout(3, 4), 0)
	assert.Equal(t, want, sum.MaxMultiplier)
	assert.LessOrEqual(t, sum.MeanRounds, 1.0)
	assert.False(t, math.IsNaN(sum.ReturnToPlayer))
}

func TestRunRejectsBadRequests(t *testing.T) {
	s := newSimulator(t)
	ctx := context.Background()

	_, err := s.Run(ctx, Request{Rows: engine.NewLayout(3), Games: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Run(ctx, Request{Rows: engine.NewLayout(3), Games: MaxGames + 1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Run(ctx, Request{Rows: engine.NewLayout(3, 4), CashOutAfter: 3, Games: 10})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.Run(ctx, Request{Rows: engine.NewLayout(1), Games: 10})
	assert.ErrorIs(t, err, engine.ErrInvalidLayout)
}

func TestRunTimesOut(t *testing.T) {
	sum, err := newSimulator(t).Run(context.Background(), Request{
		Rows:    engine.NewLayout(2, 3, 4, 5, 6, 7),
		Games:   MaxGames,
		Timeout: time.Nanosecond,
	})
	require.NoError(t, err)
	assert.True(t, sum.TimedOut)
	assert.Less(t, sum.Games, uint64(MaxGames))
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSimulator(t).Run(ctx, Request{Rows: engine.NewLayout(2), Games: 1000})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEntropyFailure(t *testing.T) {
	f, err := engine.NewFairness(bytes.NewReader(nil))
	require.NoError(t, err)
	_, err = New(f, games.NewCalculator(0), 2).Run(context.Background(), Request{Rows: engine.NewLayout(2), Games: 10})
	assert.ErrorIs(t, err, engine.ErrEntropyUnavailable)
}

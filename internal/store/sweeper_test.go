package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSweeper(t *testing.T) (*Sweeper, *quartz.Mock) {
	clock := quartz.NewMock(t)
	return &Sweeper{
		Store:    NewMemory(clock),
		Clock:    clock,
		TTL:      30 * time.Minute,
		Interval: time.Minute,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, clock
}

func TestSweeperSweepOnce(t *testing.T) {
	ctx := context.Background()
	sw, clock := newSweeper(t)

	require.NoError(t, sw.Store.Create(ctx, newSession("a")))
	_, err := sw.Store.Update(ctx, "a", func(s games.Session) (games.Session, error) { return s.CashOut() })
	require.NoError(t, err)

	clock.Advance(29 * time.Minute).MustWait(ctx)
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "still inside the TTL")

	clock.Advance(2 * time.Minute).MustWait(ctx)
	n, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, sw.Store.Len())
}

func TestSweeperSettlesAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	sw, clock := newSweeper(t)
	sw.IdleTTL = 2 * time.Hour

	require.NoError(t, sw.Store.Create(ctx, newSession("abandoned")))

	clock.Advance(time.Hour).MustWait(ctx)
	_, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	got, err := sw.Store.Get(ctx, "abandoned")
	require.NoError(t, err)
	assert.Equal(t, games.StatusActive, got.Status, "not idle long enough")

	clock.Advance(90 * time.Minute).MustWait(ctx)
	_, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	got, err = sw.Store.Get(ctx, "abandoned")
	require.NoError(t, err)
	assert.Equal(t, games.StatusCashedOut, got.Status)
	assert.True(t, got.Payout.Equal(got.BetAmount), "no round survived, stake returned")

	clock.Advance(31 * time.Minute).MustWait(ctx)
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, sw.Store.Len())
}

func TestSweeperWithoutIdleTTLKeepsActiveSessions(t *testing.T) {
	ctx := context.Background()
	sw, clock := newSweeper(t)
	require.NoError(t, sw.Store.Create(ctx, newSession("a")))

	clock.Advance(48 * time.Hour).MustWait(ctx)
	n, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := sw.Store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, games.StatusActive, got.Status)
}

func TestSweeperRunStopsWithContext(t *testing.T) {
	sw, _ := newSweeper(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, sw.Run(ctx))
}

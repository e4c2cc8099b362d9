package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSeed = engine.Seed("d907aa9543e264544a1fbed0eed6fb914660055d5f876a9416872f7a1cdbd73f")

// Death cups for layout [3, 4] under fixtureSeed are [1, 2].
func newSession(id string) games.Session {
	layout := engine.NewLayout(3, 4)
	return games.NewSession(id, engine.ProtocolV1, fixtureSeed,
		engine.CommitmentHash(engine.ProtocolV1, layout, fixtureSeed),
		layout, engine.GenerateAllDeathCups(fixtureSeed, layout),
		decimal.NewFromInt(10), games.NewCalculator(games.DefaultHouseEdge))
}

func selectCup(cup int) UpdateFunc {
	return func(s games.Session) (games.Session, error) { return s.Select(cup) }
}

func TestMemoryCreateGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(quartz.NewMock(t))

	require.NoError(t, m.Create(ctx, newSession("a")))
	assert.ErrorIs(t, m.Create(ctx, newSession("a")), ErrExists)
	assert.Error(t, m.Create(ctx, newSession("")))

	s, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, games.StatusActive, s.Status)
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.Create(ctx, newSession("a")))

	s, err := m.Update(ctx, "a", selectCup(0))
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentRound)

	// A rejected action leaves the stored session as it was.
	s, err = m.Update(ctx, "a", selectCup(9))
	assert.ErrorIs(t, err, games.ErrCupOutOfRange)
	assert.Equal(t, 1, s.CurrentRound)

	s, err = m.Update(ctx, "a", selectCup(2))
	require.NoError(t, err)
	assert.Equal(t, games.StatusBusted, s.Status)

	_, err = m.Update(ctx, "a", selectCup(0))
	assert.ErrorIs(t, err, games.ErrSessionClosed)

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, games.StatusBusted, got.Status)
	assert.True(t, got.Payout.IsZero())

	_, err = m.Update(ctx, "missing", selectCup(0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateHonoursContext(t *testing.T) {
	m := NewMemory(nil)
	require.NoError(t, m.Create(context.Background(), newSession("a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Update(ctx, "a", selectCup(0))
	assert.ErrorIs(t, err, context.Canceled)

	s, err := m.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 0, s.CurrentRound)
}

func TestMemoryUpdateSerializesPerSession(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	require.NoError(t, m.Create(ctx, newSession("a")))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, "a", func(s games.Session) (games.Session, error) { return s.CashOut() })
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, games.ErrSessionClosed) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted, "exactly one cash-out wins")
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m := NewMemory(clock)

	require.NoError(t, m.Create(ctx, newSession("active")))
	require.NoError(t, m.Create(ctx, newSession("done")))
	_, err := m.Update(ctx, "done", func(s games.Session) (games.Session, error) { return s.CashOut() })
	require.NoError(t, err)

	clock.Advance(time.Minute).MustWait(ctx)
	require.NoError(t, m.Create(ctx, newSession("fresh-done")))
	_, err = m.Update(ctx, "fresh-done", func(s games.Session) (games.Session, error) { return s.CashOut() })
	require.NoError(t, err)

	n, err := m.Sweep(ctx, clock.Now().Add(-30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, "done")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, "active")
	assert.NoError(t, err, "active sessions are never swept")
	_, err = m.Get(ctx, "fresh-done")
	assert.NoError(t, err)
}

func TestMemoryExpireSettlesIdleActiveSessions(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m := NewMemory(clock)

	require.NoError(t, m.Create(ctx, newSession("idle")))
	require.NoError(t, m.Create(ctx, newSession("done")))
	_, err := m.Update(ctx, "done", func(s games.Session) (games.Session, error) { return s.CashOut() })
	require.NoError(t, err)

	clock.Advance(time.Hour).MustWait(ctx)
	require.NoError(t, m.Create(ctx, newSession("recent")))

	cashOut := func(s games.Session) (games.Session, error) { return s.CashOut() }
	expired, err := m.Expire(ctx, clock.Now().Add(-30*time.Minute), cashOut)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "idle", expired[0].ID)
	assert.Equal(t, games.StatusCashedOut, expired[0].Status)

	got, err := m.Get(ctx, "recent")
	require.NoError(t, err)
	assert.Equal(t, games.StatusActive, got.Status)

	// Settling counts as a touch, so the session outlives one more TTL.
	n, err := m.Sweep(ctx, clock.Now().Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the long-finished session goes")
	_, err = m.Get(ctx, "idle")
	assert.NoError(t, err)
}

func TestMemoryExpireStopsOnSettleError(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	m := NewMemory(clock)
	require.NoError(t, m.Create(ctx, newSession("a")))
	clock.Advance(time.Hour).MustWait(ctx)

	_, err := m.Expire(ctx, clock.Now(), func(s games.Session) (games.Session, error) {
		return s, errors.New("ledger offline")
	})
	assert.ErrorContains(t, err, "ledger offline")

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, games.StatusActive, got.Status)
}

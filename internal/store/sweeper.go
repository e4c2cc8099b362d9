package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/coder/quartz"
)

// Sweeper periodically settles abandoned sessions and drops finished ones
// older than TTL.
type Sweeper struct {
	Store    SessionStore
	Clock    quartz.Clock
	TTL      time.Duration
	Interval time.Duration
	// IdleTTL is how long an active session may sit untouched before it is
	// settled with Settle. Zero keeps idle sessions forever.
	IdleTTL time.Duration
	// Settle ends an abandoned session; nil cashes it out.
	Settle UpdateFunc
	Logger *slog.Logger
}

func cashOut(s games.Session) (games.Session, error) {
	return s.CashOut()
}

// SweepOnce settles sessions idle for more than IdleTTL, then removes
// finished sessions last touched more than TTL ago.
func (sw *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := sw.Clock.Now()
	if sw.IdleTTL > 0 {
		settle := sw.Settle
		if settle == nil {
			settle = cashOut
		}
		expired, err := sw.Store.Expire(ctx, now.Add(-sw.IdleTTL), settle)
		for _, s := range expired {
			sw.Logger.Info("abandoned session settled",
				"session_id", s.ID,
				"status", s.Status,
				"rounds_survived", s.CurrentRound,
				"payout", s.Payout.String(),
			)
		}
		if err != nil {
			return 0, err
		}
	}
	n, err := sw.Store.Sweep(ctx, now.Add(-sw.TTL))
	if n > 0 {
		sw.Logger.Debug("swept sessions", "removed", n, "remaining", sw.Store.Len())
	}
	return n, err
}

// Run sweeps every Interval until ctx is done.
func (sw *Sweeper) Run(ctx context.Context) error {
	sw.Logger.Info("session sweeper started", "interval", sw.Interval, "ttl", sw.TTL, "idle_ttl", sw.IdleTTL)
	w := sw.Clock.TickerFunc(ctx, sw.Interval, func() error {
		if _, err := sw.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			sw.Logger.Warn("sweep failed", "err", err)
		}
		return nil
	}, "sweeper")
	err := w.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

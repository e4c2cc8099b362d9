package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/OnChainMee/onchainmee.fun/internal/api"
	"github.com/OnChainMee/onchainmee.fun/internal/config"
	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/OnChainMee/onchainmee.fun/internal/logger"
	"github.com/OnChainMee/onchainmee.fun/internal/points"
	"github.com/OnChainMee/onchainmee.fun/internal/risk"
	"github.com/OnChainMee/onchainmee.fun/internal/store"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	EnvFile string `help:"Optional .env file loaded before the environment." default:".env" name:"env-file"`
}

func (c *ServeCmd) Run(_ *Globals) error {
	cfg, err := config.Load(c.EnvFile)
	if err != nil {
		slog.Error("Load config failed", "err", err)
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger.Init(&logger.Options{Level: level, TimeFormat: time.RFC3339})
	log := logger.L()
	log.Info("Config loaded",
		"addr", cfg.Addr,
		"protocol_version", cfg.ProtocolVersion,
		"index_mode", cfg.IndexMode,
		"house_edge", cfg.HouseEdge,
		"enforce_payout_cap", cfg.EnforcePayoutCap,
	)

	fairness, err := engine.NewFairness(engine.SystemEntropy(), engine.WithIndexMode(cfg.Mode()))
	if err != nil {
		return err
	}
	clock := quartz.NewReal()
	dealer := games.NewDealer(fairness, games.DealerConfig{
		Version:          cfg.ProtocolVersion,
		HouseEdge:        cfg.HouseEdge,
		Limits:           risk.NewLimits(cfg.MaxBetFraction, cfg.MaxPayoutFraction),
		EnforcePayoutCap: cfg.EnforcePayoutCap,
		Clock:            clock,
	})
	sessions := store.NewMemory(clock)
	server := api.NewServer(api.Options{
		Dealer:        dealer,
		Sessions:      sessions,
		Pots:          risk.StaticPot(cfg.Pot()),
		Points:        points.Calculator{Prices: points.StaticPrice(cfg.PointsPrice())},
		DefaultRounds: cfg.DefaultRounds,
		Clock:         clock,
		Logger:        log,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweeper := &store.Sweeper{
		Store:    sessions,
		Clock:    clock,
		TTL:      cfg.SessionTTL,
		Interval: cfg.SweepInterval,
		IdleTTL:  cfg.IdleTTL,
		Logger:   log.With("component", "sweeper"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Info("Server is running... Press Ctrl+C to stop", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	eg.Go(func() error {
		return sweeper.Run(ctx)
	})

	err = eg.Wait()
	log.Info("Server stopped", "sessions_held", sessions.Len())
	return err
}

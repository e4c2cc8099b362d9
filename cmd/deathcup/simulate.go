package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/OnChainMee/onchainmee.fun/internal/sim"
)

type SimulateCmd struct {
	Rows         []int         `help:"Cups per round, comma separated." required:""`
	CashOutAfter int           `help:"Rounds to survive before cashing out (0 plays every round)." name:"cash-out-after"`
	Games        uint64        `help:"Number of games to play." default:"100000"`
	Workers      int           `help:"Worker goroutines (0 uses GOMAXPROCS)."`
	Timeout      time.Duration `help:"Stop early after this long." default:"60s"`
	HouseEdge    float64       `help:"House edge factor." default:"0.95" name:"house-edge"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	layout, err := layoutFromFlags(c.Rows)
	if err != nil {
		return err
	}
	f, err := engine.NewFairness(engine.SystemEntropy())
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	sum, err := sim.New(f, games.NewCalculator(c.HouseEdge), c.Workers).Run(ctx, sim.Request{
		Rows:         layout,
		CashOutAfter: c.CashOutAfter,
		Games:        c.Games,
		Timeout:      c.Timeout,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	return g.emit(sum, func(w io.Writer) error {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d games in %v", sum.Games, elapsed.Round(time.Millisecond))))
		if sum.TimedOut {
			fmt.Fprintln(w, failStyle.Render("timed out before every game was played"))
		}
		fmt.Fprintf(w, "busted      %d\n", sum.Busted)
		fmt.Fprintf(w, "cashed out  %d\n", sum.CashedOut)
		fmt.Fprintf(w, "completed   %d\n", sum.Completed)
		fmt.Fprintf(w, "rounds      %.3f mean\n", sum.MeanRounds)
		fmt.Fprintf(w, "best        %.4fx\n", sum.MaxMultiplier)
		fmt.Fprintf(w, "RTP         %.4f%% (expected %.4f%%)\n", sum.ReturnToPlayer*100, sum.ExpectedRTP*100)
		return nil
	})
}

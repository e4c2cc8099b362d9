package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
)

// --- CLI definitions --- //

type CLI struct {
	Globals

	Serve       ServeCmd       `cmd:"" help:"Run the game server."`
	Verify      VerifyCmd      `cmd:"" help:"Check a revealed game against its commitment."`
	Reveal      RevealCmd      `cmd:"" help:"Show the death cups and commitment for a seed and layout."`
	Multipliers MultipliersCmd `cmd:"" help:"Print the payout table for a layout."`
	Seed        SeedCmd        `cmd:"" help:"Draw a fresh seed from the system CSPRNG."`
	Layout      LayoutCmd      `cmd:"" help:"Draw a random round layout."`
	Simulate    SimulateCmd    `cmd:"" help:"Play many games to measure the return to player of a cash-out strategy."`
}

type Globals struct {
	JSON bool      `help:"Print results as JSON." name:"json"`
	Out  io.Writer `kong:"-"`
}

// EngineFlags select the fairness rules a game was played under.
type EngineFlags struct {
	Version   string  `help:"Protocol version." default:"v1"`
	IndexMode string  `help:"Death cup derivation." enum:"modulo,rejection" default:"modulo" name:"index-mode"`
	HouseEdge float64 `help:"House edge factor." default:"0.95" name:"house-edge"`
}

func (f EngineFlags) dealer() (*games.Dealer, error) {
	mode, err := engine.ParseIndexMode(f.IndexMode)
	if err != nil {
		return nil, err
	}
	fairness, err := engine.NewFairness(engine.SystemEntropy(), engine.WithIndexMode(mode))
	if err != nil {
		return nil, err
	}
	return games.NewDealer(fairness, games.DealerConfig{Version: f.Version, HouseEdge: f.HouseEdge}), nil
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("10"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))
)

// emit writes v as JSON when --json is set, otherwise calls text.
func (g *Globals) emit(v any, text func(w io.Writer) error) error {
	if g.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(g.Out)
}

func main() {
	var cli CLI
	cli.Out = os.Stdout
	ctx := kong.Parse(&cli,
		kong.Name("deathcup"),
		kong.Description("Provably fair death cup game server and verifier."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

func layoutFromFlags(rows []int) (engine.Layout, error) {
	layout := engine.NewLayout(rows...)
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("--rows: %w", err)
	}
	return layout, nil
}

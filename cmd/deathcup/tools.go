package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/OnChainMee/onchainmee.fun/internal/receipt"
)

var errVerificationFailed = errors.New("verification failed")

type VerifyCmd struct {
	EngineFlags

	File       string `help:"Receipt file (YAML or JSON)." type:"existingfile" short:"f" xor:"source"`
	Commitment string `help:"Published commitment hash." xor:"source"`
	Seed       string `help:"Revealed seed."`
	Rows       []int  `help:"Cups per round, comma separated."`
}

func (c *VerifyCmd) Run(g *Globals) error {
	d, err := c.dealer()
	if err != nil {
		return err
	}

	var r receipt.Receipt
	if c.File != "" {
		if r, err = receipt.Load(c.File); err != nil {
			return err
		}
	} else {
		if c.Commitment == "" || c.Seed == "" {
			return errors.New("either --file or --commitment and --seed are required")
		}
		layout, err := layoutFromFlags(c.Rows)
		if err != nil {
			return err
		}
		r = receipt.Receipt{
			Commitment: engine.Commitment(c.Commitment),
			Version:    c.Version,
			Rows:       layout,
			Seed:       engine.Seed(c.Seed),
		}
	}

	rep, err := receipt.Check(d, r)
	if err != nil {
		return err
	}
	if err := g.emit(rep, func(w io.Writer) error { return printReport(w, r, rep) }); err != nil {
		return err
	}
	if !rep.OK() {
		return errVerificationFailed
	}
	return nil
}

func printReport(w io.Writer, r receipt.Receipt, rep receipt.Report) error {
	if rep.Valid {
		fmt.Fprintln(w, okStyle.Render(rep.Message))
	} else {
		fmt.Fprintln(w, failStyle.Render(rep.Message))
	}
	fmt.Fprintf(w, "commitment  %s\n", r.Commitment)
	fmt.Fprintf(w, "version     %s\n", r.Version)
	fmt.Fprintln(w)
	if err := printDeathCups(w, rep.DeathCups); err != nil {
		return err
	}
	if rep.Replay != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "replay      %s after %d rounds, %.4fx, payout %s\n",
			rep.Replay.Status, rep.Replay.CurrentRound, rep.Replay.FinalMultiplier, rep.Replay.Payout)
	}
	for _, m := range rep.Mismatches {
		fmt.Fprintln(w, failStyle.Render("mismatch    "+m))
	}
	return nil
}

func printDeathCups(w io.Writer, cups []engine.DeathCup) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headerStyle.Render("ROUND")+"\t"+headerStyle.Render("CUPS")+"\t"+headerStyle.Render("DEATH CUP"))
	for _, dc := range cups {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", dc.Round+1, dc.TotalCups, dc.Position)
	}
	return tw.Flush()
}

type RevealCmd struct {
	EngineFlags

	Seed    string `arg:"" help:"Revealed seed."`
	Rows    []int  `help:"Cups per round, comma separated." required:""`
	Receipt bool   `help:"Print a YAML receipt instead of the table."`
}

// revealOutput is what a player can compute alone from a revealed game.
type revealOutput struct {
	Commitment engine.Commitment `json:"commitment"`
	Version    string            `json:"version"`
	Payload    string            `json:"payload"`
	DeathCups  []engine.DeathCup `json:"death_cups"`
}

func (c *RevealCmd) Run(g *Globals) error {
	layout, err := layoutFromFlags(c.Rows)
	if err != nil {
		return err
	}
	seed := engine.Seed(c.Seed)
	if !seed.Valid() {
		return fmt.Errorf("seed must be %d lowercase hex characters", engine.SeedBytes*2)
	}
	mode, err := engine.ParseIndexMode(c.IndexMode)
	if err != nil {
		return err
	}
	f, err := engine.NewFairness(engine.SystemEntropy(), engine.WithIndexMode(mode))
	if err != nil {
		return err
	}

	out := revealOutput{
		Commitment: f.CommitmentHash(c.Version, layout, seed),
		Version:    c.Version,
		Payload:    string(engine.CanonicalPayload(c.Version, layout, seed)),
		DeathCups:  f.GenerateAllDeathCups(seed, layout),
	}
	if c.Receipt {
		return receipt.Write(g.Out, receipt.Receipt{
			Commitment: out.Commitment,
			Version:    out.Version,
			Rows:       layout,
			Seed:       seed,
		})
	}
	return g.emit(out, func(w io.Writer) error {
		fmt.Fprintf(w, "commitment  %s\n", out.Commitment)
		fmt.Fprintf(w, "payload     %s\n\n", out.Payload)
		return printDeathCups(w, out.DeathCups)
	})
}

type MultipliersCmd struct {
	Rows      []int   `help:"Cups per round, comma separated." required:""`
	HouseEdge float64 `help:"House edge factor." default:"0.95" name:"house-edge"`
}

func (c *MultipliersCmd) Run(g *Globals) error {
	layout, err := layoutFromFlags(c.Rows)
	if err != nil {
		return err
	}
	quotes := games.NewCalculator(c.HouseEdge).Table(layout)
	return g.emit(quotes, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		header := []string{"ROUND", "CUPS", "BASE", "CUMULATIVE", "PAYOUT", "SURVIVAL"}
		for i, h := range header {
			header[i] = headerStyle.Render(h)
		}
		fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
		for _, q := range quotes {
			fmt.Fprintf(tw, "%d\t%d\t%.4fx\t%.4fx\t%.4fx\t%.2f%%\t\n",
				q.Round+1, q.Cups, q.Base, q.Cumulative, q.Total, q.Survival*100)
		}
		return tw.Flush()
	})
}

type SeedCmd struct {
	Rows    []int  `help:"Also print the commitment for this layout."`
	Version string `help:"Protocol version." default:"v1"`
}

type seedOutput struct {
	Seed       engine.Seed       `json:"seed"`
	Commitment engine.Commitment `json:"commitment,omitempty"`
}

func (c *SeedCmd) Run(g *Globals) error {
	f, err := engine.NewFairness(engine.SystemEntropy())
	if err != nil {
		return err
	}
	seed, err := f.GenerateSeed()
	if err != nil {
		return err
	}
	out := seedOutput{Seed: seed}
	if len(c.Rows) > 0 {
		layout, err := layoutFromFlags(c.Rows)
		if err != nil {
			return err
		}
		out.Commitment = f.CommitmentHash(c.Version, layout, seed)
	}
	return g.emit(out, func(w io.Writer) error {
		fmt.Fprintln(w, out.Seed)
		if out.Commitment != "" {
			fmt.Fprintln(w, out.Commitment)
		}
		return nil
	})
}

type LayoutCmd struct {
	Rounds int `help:"Number of rounds." default:"10"`
}

func (c *LayoutCmd) Run(g *Globals) error {
	f, err := engine.NewFairness(engine.SystemEntropy())
	if err != nil {
		return err
	}
	layout, err := games.RandomLayout(f, c.Rounds)
	if err != nil {
		return err
	}
	return g.emit(layout, func(w io.Writer) error {
		cups := make([]string, len(layout))
		for i, n := range layout.Cups() {
			cups[i] = fmt.Sprint(n)
		}
		_, err := fmt.Fprintln(w, strings.Join(cups, ","))
		return err
	})
}

// Package receipt reads and writes the record a player keeps of a finished
// game, and checks it against the fairness engine.
package receipt

import (
	"fmt"
	"io"
	"os"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Receipt is a revealed game. Bet and Picks are optional; with them the
// game is replayed and the claimed outcome checked. JSON files load too.
type Receipt struct {
	SessionID  string            `yaml:"session_id,omitempty" json:"session_id,omitempty"`
	Commitment engine.Commitment `yaml:"commitment" json:"commitment"`
	Version    string            `yaml:"version" json:"version"`
	Rows       engine.Layout     `yaml:"rows" json:"rows"`
	Seed       engine.Seed       `yaml:"seed" json:"seed"`

	Bet       string `yaml:"bet,omitempty" json:"bet,omitempty"`
	Picks     []int  `yaml:"picks,omitempty" json:"picks,omitempty"`
	CashedOut bool   `yaml:"cashed_out,omitempty" json:"cashed_out,omitempty"`

	Status games.Status `yaml:"status,omitempty" json:"status,omitempty"`
	Payout string       `yaml:"payout,omitempty" json:"payout,omitempty"`
}

// FromSession records a finished session.
func FromSession(s games.Session) Receipt {
	return Receipt{
		SessionID:  s.ID,
		Commitment: s.Commitment,
		Version:    s.Version,
		Rows:       s.Layout.Clone(),
		Seed:       s.Seed,
		Bet:        s.BetAmount.String(),
		Picks:      append([]int(nil), s.SelectedCups...),
		CashedOut:  s.Status == games.StatusCashedOut,
		Status:     s.Status,
		Payout:     s.Payout.String(),
	}
}

// Load reads a receipt file.
func Load(path string) (Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Receipt{}, fmt.Errorf("read receipt: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON receipt.
func Parse(data []byte) (Receipt, error) {
	var r Receipt
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Receipt{}, fmt.Errorf("parse receipt: %w", err)
	}
	if r.Commitment == "" || r.Seed == "" {
		return Receipt{}, fmt.Errorf("parse receipt: commitment and seed are required")
	}
	if r.Version == "" {
		r.Version = engine.ProtocolV1
	}
	return r, nil
}

// Write encodes r as YAML.
func Write(w io.Writer, r Receipt) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// Report is the result of checking a receipt.
type Report struct {
	games.Audit
	// Mismatches lists claimed outcome fields the replay disagrees with.
	Mismatches []string `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

// OK reports whether the commitment held and the replay agreed.
func (r Report) OK() bool {
	return r.Valid && len(r.Mismatches) == 0
}

// Check verifies the commitment and, when the receipt carries the bet and
// picks, replays the game.
func Check(d *games.Dealer, r Receipt) (Report, error) {
	rep := Report{Audit: d.Verify(r.Commitment, r.Version, r.Rows, r.Seed)}
	if r.Bet == "" && len(r.Picks) == 0 {
		return rep, nil
	}

	bet, err := decimal.NewFromString(r.Bet)
	if err != nil {
		return rep, fmt.Errorf("receipt bet: %w", err)
	}
	s, err := d.Replay(r.Version, r.Rows, r.Seed, bet, r.Picks, r.CashedOut)
	if err != nil {
		return rep, err
	}
	snap := s.Snapshot()
	rep.Replay = &snap

	if r.Status != "" && r.Status != s.Status {
		rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("status: claimed %s, replay %s", r.Status, s.Status))
	}
	if r.Payout != "" {
		claimed, err := decimal.NewFromString(r.Payout)
		if err != nil {
			return rep, fmt.Errorf("receipt payout: %w", err)
		}
		// Capped sessions pay less than the replay, never more.
		if claimed.GreaterThan(s.Payout) {
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("payout: claimed %s, replay %s", claimed, s.Payout))
		}
	}
	return rep, nil
}

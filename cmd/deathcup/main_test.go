package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
)

const (
	fixtureSeed       = "d907aa9543e264544a1fbed0eed6fb914660055d5f876a9416872f7a1cdbd73f"
	fixtureCommitment = "0xc4dc19b373ecd256749abdb4f6afe5619f31208fa3888fa340590cb1ac80a34d"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var (
		cli CLI
		buf bytes.Buffer
	)
	cli.Out = &buf
	parser, err := kong.New(&cli, kong.Name("deathcup"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	err = ctx.Run(&cli.Globals)
	return buf.String(), err
}

func TestRevealText(t *testing.T) {
	out, err := runCLI(t, "reveal", fixtureSeed, "--rows", "3,4")
	require.NoError(t, err)
	assert.Contains(t, out, fixtureCommitment)
	assert.Contains(t, out, `{"version":"v1","rows":[{"cups":3},{"cups":4}],"seed":"`+fixtureSeed+`"}`)
}

func TestRevealJSON(t *testing.T) {
	out, err := runCLI(t, "--json", "reveal", fixtureSeed, "--rows", "3,4")
	require.NoError(t, err)

	var got revealOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, engine.Commitment(fixtureCommitment), got.Commitment)
	require.Len(t, got.DeathCups, 2)
	assert.Equal(t, 1, got.DeathCups[0].Position)
	assert.Equal(t, 2, got.DeathCups[1].Position)
}

func TestRevealRejectsBadSeed(t *testing.T) {
	_, err := runCLI(t, "reveal", "not-a-seed", "--rows", "3,4")
	assert.ErrorContains(t, err, "lowercase hex")
}

func TestVerifyFlags(t *testing.T) {
	out, err := runCLI(t, "verify", "--commitment", fixtureCommitment, "--seed", fixtureSeed, "--rows", "3,4")
	require.NoError(t, err)
	assert.Contains(t, out, "provably fair")

	out, err = runCLI(t, "verify", "--commitment", fixtureCommitment, "--seed", fixtureSeed, "--rows", "3,5")
	assert.ErrorIs(t, err, errVerificationFailed)
	assert.Contains(t, out, "Verification failed")

	_, err = runCLI(t, "verify", "--seed", fixtureSeed, "--rows", "3,4")
	assert.Error(t, err)
}

func TestVerifyReceiptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		`commitment: "` + fixtureCommitment + `"`,
		`version: v1`,
		`rows: [{cups: 3}, {cups: 4}]`,
		`seed: ` + fixtureSeed,
		`bet: "2"`,
		`picks: [0, 2]`,
		`status: busted`,
		`payout: "0"`,
	}, "\n")), 0o600))

	out, err := runCLI(t, "--json", "verify", "--file", path)
	require.NoError(t, err)

	var rep struct {
		Valid  bool            `json:"valid"`
		Replay *games.Snapshot `json:"replay"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Valid)
	require.NotNil(t, rep.Replay)
	assert.Equal(t, games.StatusBusted, rep.Replay.Status)
}

func TestRevealReceiptVerifies(t *testing.T) {
	out, err := runCLI(t, "reveal", fixtureSeed, "--rows", "3,4", "--receipt")
	require.NoError(t, err)
	assert.Contains(t, out, "commitment:")

	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))
	_, err = runCLI(t, "verify", "-f", path)
	assert.NoError(t, err)
}

func TestMultipliersJSON(t *testing.T) {
	out, err := runCLI(t, "--json", "multipliers", "--rows", "2,2")
	require.NoError(t, err)

	var quotes []games.RoundQuote
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 2)
	assert.Equal(t, 1.9, quotes[0].Total)
	assert.Equal(t, 3.8, quotes[1].Total)

	out, err = runCLI(t, "multipliers", "--rows", "2,2")
	require.NoError(t, err)
	assert.Contains(t, out, "3.8000x")
}

func TestSeedAndLayout(t *testing.T) {
	out, err := runCLI(t, "--json", "seed", "--rows", "3,4")
	require.NoError(t, err)
	var s seedOutput
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.True(t, s.Seed.Valid())
	assert.True(t, engine.Verify(s.Commitment, engine.ProtocolV1, engine.NewLayout(3, 4), s.Seed))

	out, err = runCLI(t, "layout", "--rounds", "4")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), ","), 4)
}

func TestSimulate(t *testing.T) {
	out, err := runCLI(t, "--json", "simulate", "--rows", "3,4", "--games", "500", "--cash-out-after", "1")
	require.NoError(t, err)

	var sum struct {
		Games       uint64  `json:"games"`
		Completed   uint64  `json:"completed"`
		ExpectedRTP float64 `json:"expected_rtp"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, uint64(500), sum.Games)
	assert.Zero(t, sum.Completed)
	assert.InDelta(t, 0.95, sum.ExpectedRTP, 1e-9)
}

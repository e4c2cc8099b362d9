// Package sim plays large numbers of games against the fairness engine to
// measure the house edge a cash-out strategy actually sees.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/shopspring/decimal"
)

// MaxGames bounds a single run.
const MaxGames = 10_000_000

// batchSize is the number of games handed to a worker at a time.
const batchSize = 1024

var ErrInvalidRequest = errors.New("sim: invalid request")

// Request describes a simulation run.
type Request struct {
	Rows engine.Layout `json:"rows"`
	// CashOutAfter is the number of rounds survived before cashing out.
	// Zero plays every round.
	CashOutAfter int           `json:"cash_out_after"`
	Games        uint64        `json:"games"`
	Timeout      time.Duration `json:"timeout,omitempty"`
}

// Summary contains aggregate statistics
type Summary struct {
	Games          uint64  `json:"games"`
	Busted         uint64  `json:"busted"`
	Completed      uint64  `json:"completed"`
	CashedOut      uint64  `json:"cashed_out"`
	ReturnToPlayer float64 `json:"return_to_player"`
	ExpectedRTP    float64 `json:"expected_rtp"`
	MaxMultiplier  float64 `json:"max_multiplier"`
	MeanRounds     float64 `json:"mean_rounds_survived"`
	TimedOut       bool    `json:"timed_out,omitempty"`
}

// Simulator runs games in parallel. The fairness engine's entropy source
// must be safe for concurrent use; the system CSPRNG is.
type Simulator struct {
	fairness    *engine.Fairness
	calc        games.Calculator
	workerCount int
}

// New creates a simulator; workers <= 0 uses GOMAXPROCS.
func New(f *engine.Fairness, calc games.Calculator, workers int) *Simulator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Simulator{fairness: f, calc: calc, workerCount: workers}
}

// tally is one worker's share of the totals.
type tally struct {
	busted, completed, cashedOut uint64
	multiplierSum, maxMultiplier float64
	rounds                       uint64
}

func (t *tally) add(o tally) {
	t.busted += o.busted
	t.completed += o.completed
	t.cashedOut += o.cashedOut
	t.multiplierSum += o.multiplierSum
	t.rounds += o.rounds
	t.maxMultiplier = max(t.maxMultiplier, o.maxMultiplier)
}

// Run plays req.Games games. A run cut short by req.Timeout returns the
// partial summary with TimedOut set.
func (s *Simulator) Run(ctx context.Context, req Request) (Summary, error) {
	if err := games.ValidatePlayable(req.Rows); err != nil {
		return Summary{}, err
	}
	if req.Games == 0 || req.Games > MaxGames {
		return Summary{}, fmt.Errorf("%w: games must be in [1, %d], got %d", ErrInvalidRequest, MaxGames, req.Games)
	}
	target := req.CashOutAfter
	if target == 0 {
		target = len(req.Rows)
	}
	if target < 0 || target > len(req.Rows) {
		return Summary{}, fmt.Errorf("%w: cash_out_after must be in [0, %d], got %d", ErrInvalidRequest, len(req.Rows), req.CashOutAfter)
	}

	runCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	jobs := make(chan uint64, s.workerCount*2)
	var (
		played uint64 // atomic counter
		mu     sync.Mutex
		total  tally
	)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer close(jobs)
		for left := req.Games; left > 0; {
			n := min(left, uint64(batchSize))
			select {
			case jobs <- n:
				left -= n
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for range s.workerCount {
		g.Go(func() error {
			var local tally
			defer func() {
				mu.Lock()
				total.add(local)
				mu.Unlock()
			}()
			for n := range jobs {
				for range n {
					if err := gctx.Err(); err != nil {
						return err
					}
					if err := s.play(req.Rows, target, &local); err != nil {
						return err
					}
					atomic.AddUint64(&played, 1)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	sum := s.summarize(req.Rows, target, atomic.LoadUint64(&played), total)
	switch {
	case err == nil:
		return sum, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		sum.TimedOut = true
		return sum, nil
	default:
		return sum, err
	}
}

// play runs one game, picking uniformly at random each round.
func (s *Simulator) play(rows engine.Layout, target int, t *tally) error {
	seed, err := s.fairness.GenerateSeed()
	if err != nil {
		return err
	}
	session := games.NewSession("sim", engine.ProtocolV1, seed, "", rows,
		s.fairness.GenerateAllDeathCups(seed, rows), decimal.NewFromInt(1), s.calc)
	for session.Status == games.StatusActive && session.CurrentRound < target {
		pick, err := s.fairness.Intn(rows[session.CurrentRound].Cups)
		if err != nil {
			return err
		}
		session = games.SelectCup(session, pick)
	}
	session = games.CashOut(session)

	switch session.Status {
	case games.StatusBusted:
		t.busted++
	case games.StatusCompleted:
		t.completed++
	case games.StatusCashedOut:
		t.cashedOut++
	}
	t.rounds += uint64(len(session.SelectedCups))
	t.multiplierSum += session.FinalMultiplier
	t.maxMultiplier = max(t.maxMultiplier, session.FinalMultiplier)
	return nil
}

func (s *Simulator) summarize(rows engine.Layout, target int, played uint64, t tally) Summary {
	quote := s.calc.Table(rows)[target-1]
	sum := Summary{
		Games:         played,
		Busted:        t.busted,
		Completed:     t.completed,
		CashedOut:     t.cashedOut,
		ExpectedRTP:   quote.Survival * quote.Total,
		MaxMultiplier: t.maxMultiplier,
	}
	if played > 0 {
		sum.ReturnToPlayer = t.multiplierSum / float64(played)
		sum.MeanRounds = float64(t.rounds) / float64(played)
	}
	return sum
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a request body into v and reports a validation error
// itself when the body is unusable.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		s.errorHandler.HandleValidationError(w, r, "body", "request body is empty")
		return false
	}
	s.errorHandler.HandleValidationError(w, r, "body", fmt.Sprintf("invalid JSON format: %v", err))
	return false
}

// handleListGames returns the game metadata
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, GamesResponse{
		Games:         []games.GameSpec{s.dealer.Spec()},
		EngineVersion: EngineVersion,
	})
}

// handleVerify checks a revealed seed and layout against a commitment.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	switch {
	case req.Commitment == "":
		s.errorHandler.HandleValidationError(w, r, "commitment", "commitment is required")
		return
	case req.Seed == "":
		s.errorHandler.HandleValidationError(w, r, "seed", "seed is required")
		return
	}
	if err := req.Rows.Validate(); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if req.Version == "" {
		req.Version = s.dealer.Spec().Version
	}

	audit := s.dealer.Verify(req.Commitment, req.Version, req.Rows, req.Seed)
	s.logger.Info("verify",
		"request_id", middleware.GetReqID(r.Context()),
		"seed_hash", hashSeed(string(req.Seed)),
		"rounds", len(req.Rows),
		"valid", audit.Valid,
	)
	s.writeJSON(w, http.StatusOK, VerifyResponse{Audit: audit, EngineVersion: EngineVersion})
}

// handleMultipliers quotes every round of a layout.
func (s *Server) handleMultipliers(w http.ResponseWriter, r *http.Request) {
	var req MultipliersRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Rows.Validate(); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	calc := s.dealer.Calculator()
	s.writeJSON(w, http.StatusOK, MultipliersResponse{
		HouseEdge:     calc.HouseEdge,
		Rounds:        calc.Table(req.Rows),
		EngineVersion: EngineVersion,
	})
}

// handleLimits reports the limits implied by the pot right now.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	pot, err := s.pots.Pot(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, fmt.Errorf("read pot: %w", err))
		return
	}
	limits := s.dealer.Limits()
	s.writeJSON(w, http.StatusOK, LimitsResponse{
		Pot:               pot,
		MaxBet:            limits.MaxBet(pot),
		MaxPayout:         limits.MaxPayout(pot),
		MaxBetFraction:    limits.MaxBetFraction,
		MaxPayoutFraction: limits.MaxPayoutFraction,
		EnforcePayoutCap:  s.dealer.EnforcesPayoutCap(),
	})
}

// handleRandomLayout draws a layout from the secure source.
func (s *Server) handleRandomLayout(w http.ResponseWriter, r *http.Request) {
	rounds := s.defaultRounds
	if raw := r.URL.Query().Get("rounds"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorHandler.HandleValidationError(w, r, "rounds", "rounds must be a positive integer")
			return
		}
		rounds = n
	}
	layout, err := s.dealer.RandomLayout(rounds)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LayoutResponse{Rows: layout})
}

// handleCreateSession checks the bet against the pot and deals a game.
// Only the commitment is returned until the game ends.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	layout := req.Rows
	if len(layout) == 0 {
		var err error
		if layout, err = s.dealer.RandomLayout(s.defaultRounds); err != nil {
			s.errorHandler.HandleError(w, r, err)
			return
		}
	}
	pot, err := s.pots.Pot(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, fmt.Errorf("read pot: %w", err))
		return
	}

	session, err := s.dealer.Deal(pot, req.Bet, layout)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	if err := s.sessions.Create(r.Context(), session); err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Info("session dealt",
		"request_id", middleware.GetReqID(r.Context()),
		"session_id", session.ID,
		"commitment", session.Commitment,
		"rounds", len(session.Layout),
		"bet", session.BetAmount.String(),
	)
	s.writeJSON(w, http.StatusCreated, s.sessionResponse(r, session))
}

// handleGetSession returns the session snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.sessionResponse(r, session))
}

// handleSelectCup plays the current round.
func (s *Server) handleSelectCup(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Cup == nil {
		s.errorHandler.HandleValidationError(w, r, "cup", "cup is required")
		return
	}

	session, err := s.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(cur games.Session) (games.Session, error) {
		return cur.Select(*req.Cup)
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.logSettled(r, session)
	s.writeJSON(w, http.StatusOK, s.sessionResponse(r, session))
}

// handleCashOut ends the session at the current multiplier. Without an
// enforced cap the payout is checked against the live pot first, and a
// refused cash-out leaves the session active.
func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	var pot decimal.Decimal
	if !s.dealer.EnforcesPayoutCap() {
		var err error
		if pot, err = s.pots.Pot(r.Context()); err != nil {
			s.errorHandler.HandleError(w, r, fmt.Errorf("read pot: %w", err))
			return
		}
	}

	session, err := s.sessions.Update(r.Context(), chi.URLParam(r, "id"), func(cur games.Session) (games.Session, error) {
		if cur.Status == games.StatusActive && !s.dealer.EnforcesPayoutCap() {
			if err := s.dealer.Limits().ValidatePayout(pot, cur.BetAmount, cur.CashOutMultiplier()); err != nil {
				return cur, err
			}
		}
		return cur.CashOut()
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.logSettled(r, session)
	s.writeJSON(w, http.StatusOK, s.sessionResponse(r, session))
}

func (s *Server) sessionResponse(r *http.Request, session games.Session) SessionResponse {
	resp := SessionResponse{Snapshot: session.Snapshot()}
	if !session.Status.Terminal() {
		return resp
	}
	earned, err := s.points.ForBet(r.Context(), session.BetAmount)
	if err != nil {
		s.logger.Warn("points unavailable", "session_id", session.ID, "err", err)
		return resp
	}
	resp.PointsEarned = &earned
	return resp
}

func (s *Server) logSettled(r *http.Request, session games.Session) {
	if !session.Status.Terminal() {
		return
	}
	s.logger.Info("session settled",
		"request_id", middleware.GetReqID(r.Context()),
		"session_id", session.ID,
		"status", session.Status,
		"rounds_survived", session.CurrentRound,
		"multiplier", session.FinalMultiplier,
		"payout", session.Payout.String(),
		"capped", session.Capped,
		"seed_hash", hashSeed(string(session.Seed)),
	)
}

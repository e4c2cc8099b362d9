package api

import (
	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/shopspring/decimal"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation    = "validation_error"
	ErrTypeInvalidLayout = "invalid_layout"
	ErrTypeInvalidCup    = "invalid_cup"
	ErrTypeInvalidBet    = "invalid_bet_amount"

	// Game-related errors
	ErrTypeSessionNotFound = "session_not_found"
	ErrTypeSessionClosed   = "session_closed"
	ErrTypePayoutCap       = "payout_exceeds_cap"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategoryRisk       ErrorCategory = "risk"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidLayout, ErrTypeInvalidCup:
		return CategoryValidation
	case ErrTypeSessionNotFound, ErrTypeSessionClosed:
		return CategoryGame
	case ErrTypeInvalidBet, ErrTypePayoutCap:
		return CategoryRisk
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// GamesResponse represents the games metadata response
type GamesResponse struct {
	Games         []games.GameSpec `json:"games"`
	EngineVersion string           `json:"engine_version"`
}

// VerifyRequest carries a revealed game to check against its commitment.
type VerifyRequest struct {
	Commitment engine.Commitment `json:"commitment"`
	Version    string            `json:"version"`
	Rows       engine.Layout     `json:"rows"`
	Seed       engine.Seed       `json:"seed"`
}

// VerifyResponse is the audit of a revealed game.
type VerifyResponse struct {
	games.Audit
	EngineVersion string `json:"engine_version"`
}

// MultipliersRequest asks for the payout table of a layout.
type MultipliersRequest struct {
	Rows engine.Layout `json:"rows"`
}

// MultipliersResponse is the per-round payout table.
type MultipliersResponse struct {
	HouseEdge     float64            `json:"house_edge"`
	Rounds        []games.RoundQuote `json:"rounds"`
	EngineVersion string             `json:"engine_version"`
}

// LimitsResponse reports the bet and payout limits for the current pot.
type LimitsResponse struct {
	Pot               decimal.Decimal `json:"pot"`
	MaxBet            decimal.Decimal `json:"max_bet"`
	MaxPayout         decimal.Decimal `json:"max_payout"`
	MaxBetFraction    decimal.Decimal `json:"max_bet_fraction"`
	MaxPayoutFraction decimal.Decimal `json:"max_payout_fraction"`
	EnforcePayoutCap  bool            `json:"enforce_payout_cap"`
}

// LayoutResponse carries a randomly drawn layout.
type LayoutResponse struct {
	Rows engine.Layout `json:"rows"`
}

// CreateSessionRequest opens a game. A missing layout is drawn at random.
type CreateSessionRequest struct {
	Bet  decimal.Decimal `json:"bet"`
	Rows engine.Layout   `json:"rows,omitempty"`
}

// SelectRequest picks a cup in the current round.
type SelectRequest struct {
	Cup *int `json:"cup"`
}

// SessionResponse is a session snapshot, plus the points earned once the
// game has ended.
type SessionResponse struct {
	games.Snapshot
	PointsEarned *int64 `json:"points_earned,omitempty"`
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/OnChainMee/onchainmee.fun/internal/points"
	"github.com/OnChainMee/onchainmee.fun/internal/risk"
	"github.com/OnChainMee/onchainmee.fun/internal/store"
	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTimeout = 60 * time.Second

// Options wires a Server to the game core.
type Options struct {
	Dealer   *games.Dealer
	Sessions store.SessionStore
	// Pots is read on every request that needs the pot size.
	Pots          risk.PotSource
	Points        points.Calculator
	DefaultRounds int
	Clock         quartz.Clock
	Logger        *slog.Logger
	// RequestTimeout bounds each request; zero means 60s.
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	dealer         *games.Dealer
	sessions       store.SessionStore
	pots           risk.PotSource
	points         points.Calculator
	defaultRounds  int
	clock          quartz.Clock
	logger         *slog.Logger
	errorHandler   *ErrorHandler
	requestTimeout time.Duration
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultRounds <= 0 {
		opts.DefaultRounds = games.DefaultRounds
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	logger := opts.Logger.With("component", "api")

	s := &Server{
		dealer:         opts.Dealer,
		sessions:       opts.Sessions,
		pots:           opts.Pots,
		points:         opts.Points,
		defaultRounds:  opts.DefaultRounds,
		clock:          opts.Clock,
		logger:         logger,
		errorHandler:   NewErrorHandler(logger),
		requestTimeout: opts.RequestTimeout,
		startTime:      opts.Clock.Now(),
	}
	logger.Info("api server initialised",
		"engine_version", EngineVersion,
		"protocol_version", s.dealer.Spec().Version,
		"enforce_payout_cap", s.dealer.EnforcesPayoutCap(),
	)
	return s
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.LoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleListGames)
		r.Post("/verify", s.handleVerify)
		r.Post("/multipliers", s.handleMultipliers)
		r.Get("/limits", s.handleLimits)
		r.Get("/layout/random", s.handleRandomLayout)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Post("/select", s.handleSelectCup)
				r.Post("/cashout", s.handleCashOut)
			})
		})
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

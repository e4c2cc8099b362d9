package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/OnChainMee/onchainmee.fun/internal/engine"
	"github.com/OnChainMee/onchainmee.fun/internal/games"
	"github.com/OnChainMee/onchainmee.fun/internal/risk"
	"github.com/OnChainMee/onchainmee.fun/internal/store"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause adds the underlying cause error
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError maps a domain error onto a status code and error type and
// writes it.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr EngineError
	if errors.As(err, &engineErr) {
		eh.write(w, r, http.StatusBadRequest, engineErr)
		return
	}

	status, eb := classify(err)
	engineErr = eb.
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()
	eh.write(w, r, status, engineErr)
}

// HandleValidationError handles validation-specific errors
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	engineErr := NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("field", field).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()
	eh.write(w, r, http.StatusBadRequest, engineErr)
}

func classify(err error) (int, *ErrorBuilder) {
	var (
		betErr    *risk.BetError
		payoutErr *risk.PayoutError
	)
	switch {
	case errors.As(err, &betErr):
		return http.StatusUnprocessableEntity, NewError(ErrTypeInvalidBet, betErr.Reason).
			WithContext("amount", betErr.Amount.String()).
			WithContext("max_bet", betErr.MaxBet.String())
	case errors.As(err, &payoutErr):
		return http.StatusUnprocessableEntity, NewError(ErrTypePayoutCap, payoutErr.Error()).
			WithContext("payout", payoutErr.Payout.String()).
			WithContext("max_payout", payoutErr.MaxPayout.String()).
			WithContext("max_multiplier", payoutErr.MaxMultiplier)
	case errors.Is(err, engine.ErrInvalidLayout):
		return http.StatusBadRequest, NewError(ErrTypeInvalidLayout, "Invalid round layout").WithCause(err)
	case errors.Is(err, games.ErrCupOutOfRange):
		return http.StatusBadRequest, NewError(ErrTypeInvalidCup, "Cup is not in the current round").WithCause(err)
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, NewError(ErrTypeSessionNotFound, "Session not found")
	case errors.Is(err, games.ErrSessionClosed):
		return http.StatusConflict, NewError(ErrTypeSessionClosed, "Session is no longer active").WithCause(err)
	case errors.Is(err, engine.ErrEntropyUnavailable):
		return http.StatusServiceUnavailable, NewError(ErrTypeServiceUnavailable, "Randomness source unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, NewError(ErrTypeTimeout, "Operation timed out")
	default:
		return http.StatusInternalServerError, NewError(ErrTypeInternal, "Internal server error").WithCause(err)
	}
}

func (eh *ErrorHandler) write(w http.ResponseWriter, r *http.Request, status int, engineErr EngineError) {
	eh.logError(r, engineErr, status)
	writeErrorResponse(w, status, engineErr)
}

// logError logs the error with appropriate level and context
func (eh *ErrorHandler) logError(r *http.Request, engineErr EngineError, status int) {
	category := GetErrorCategory(engineErr.Type)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	attrs := []any{
		"type", engineErr.Type,
		"category", category,
		"status", status,
		"request_id", engineErr.RequestID,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_ip", r.RemoteAddr,
	}
	for key, value := range engineErr.Context {
		// Never log raw seeds - only hashes
		if key == "seed" {
			value = hashSeed(fmt.Sprint(value))
		}
		attrs = append(attrs, key, value)
	}
	eh.logger.Log(r.Context(), level, engineErr.Message, attrs...)
}

// writeErrorResponse writes the error response as JSON
func writeErrorResponse(w http.ResponseWriter, status int, engineErr EngineError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.Header().Set("X-Error-Category", string(GetErrorCategory(engineErr.Type)))
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				requestID := middleware.GetReqID(r.Context())
				eh.logger.Error("panic recovered",
					"request_id", requestID,
					"path", r.URL.Path,
					"method", r.Method,
					"panic", rvr,
				)

				engineErr := NewError(ErrTypeInternal, "Internal server error").
					WithRequestID(requestID).
					WithContext("path", r.URL.Path).
					WithContext("method", r.Method).
					Build()
				writeErrorResponse(w, http.StatusInternalServerError, engineErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Package handlers provides HTTP handlers for the backtest API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/backtest"
)

const dateLayout = "2006-01-02"

// BacktestHandlers contains HTTP handlers for the backtest API
type BacktestHandlers struct {
	runner *backtest.Runner
	log    zerolog.Logger
}

// NewBacktestHandlers creates a new backtest handlers instance
func NewBacktestHandlers(runner *backtest.Runner, log zerolog.Logger) *BacktestHandlers {
	return &BacktestHandlers{
		runner: runner,
		log:    log.With().Str("handler", "backtest").Logger(),
	}
}

// RegisterRoutes registers all backtest routes
func (h *BacktestHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/backtest", h.HandleRun)
}

// HandleRun handles POST /api/backtest
func (h *BacktestHandlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tickers        []string `json:"tickers"`
		Start          string   `json:"start"`
		End            string   `json:"end"`
		InitialCapital float64  `json:"initial_capital"`
		Variants       []string `json:"variants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}

	results, err := h.runner.Run(backtest.Request{
		Tickers:        req.Tickers,
		Start:          start,
		End:            end,
		InitialCapital: req.InitialCapital,
		Variants:       req.Variants,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnknownAsset):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrDataUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.log.Error().Err(err).Msg("Backtest failed")
			h.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, results)
}

// writeJSON writes a JSON response
func (h *BacktestHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *BacktestHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

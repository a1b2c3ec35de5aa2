// Package handlers provides HTTP handlers for the simulation API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/simulation"
)

// SimulationHandlers contains HTTP handlers for the simulation API
type SimulationHandlers struct {
	service *simulation.Service
	log     zerolog.Logger
}

// NewSimulationHandlers creates a new simulation handlers instance
func NewSimulationHandlers(service *simulation.Service, log zerolog.Logger) *SimulationHandlers {
	return &SimulationHandlers{
		service: service,
		log:     log.With().Str("handler", "simulation").Logger(),
	}
}

// HandleCreate handles POST /api/simulations
func (h *SimulationHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner          string          `json:"user_id"`
		InitialCapital float64         `json:"initial_capital"`
		Mode           simulation.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sim, err := h.service.Create(req.Owner, req.InitialCapital, req.Mode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, sim)
}

// HandleGet handles GET /api/simulations/{id}. Returns the full
// snapshot: record, valued positions, trade history and totals.
func (h *SimulationHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleDelete handles DELETE /api/simulations/{id}
func (h *SimulationHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleReset handles POST /api/simulations/{id}/reset
func (h *SimulationHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Reset(id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	sim, err := h.service.Get(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, sim)
}

// HandleExecuteTrade handles POST /api/simulations/{id}/trades
func (h *SimulationHandlers) HandleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker     string   `json:"ticker"`
		Action     string   `json:"action"`
		Quantity   int64    `json:"quantity"`
		Price      float64  `json:"price"`
		Reason     string   `json:"reason"`
		Confidence *float64 `json:"ml_confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	trade, err := h.service.ExecuteTrade(id, simulation.TradeRequest{
		Ticker:     req.Ticker,
		Action:     domain.Action(req.Action),
		Quantity:   req.Quantity,
		Price:      req.Price,
		Reason:     req.Reason,
		Confidence: req.Confidence,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	snapshot, err := h.service.Portfolio(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"trade":     trade,
		"cash":      snapshot.Cash,
		"positions": snapshot.Positions,
	})
}

// HandleHistory handles GET /api/simulations/{id}/history
func (h *SimulationHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	trades, err := h.service.History(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if trades == nil {
		trades = []simulation.Trade{}
	}

	h.writeJSON(w, http.StatusOK, trades)
}

// HandlePortfolio handles GET /api/simulations/{id}/portfolio
func (h *SimulationHandlers) HandlePortfolio(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Portfolio(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleRecommendations handles GET /api/simulations/{id}/recommendations
func (h *SimulationHandlers) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if param := r.URL.Query().Get("limit"); param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	recommendations, err := h.service.Recommend(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if recommendations == nil {
		recommendations = []simulation.Recommendation{}
	}

	h.writeJSON(w, http.StatusOK, recommendations)
}

// HandleAutoTrade handles POST /api/simulations/{id}/auto-trade
func (h *SimulationHandlers) HandleAutoTrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxTrades int `json:"max_trades"`
	}
	// Empty body is fine; defaults apply
	_ = json.NewDecoder(r.Body).Decode(&req)

	id := chi.URLParam(r, "id")
	results, err := h.service.AutoTrade(r.Context(), id, req.MaxTrades)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []simulation.AutoTradeResult{}
	}

	sim, err := h.service.Get(id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"cash":    sim.Cash,
	})
}

// writeServiceError maps domain errors to HTTP statuses
func (h *SimulationHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownSimulation), errors.Is(err, domain.ErrUnknownAsset):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientPosition),
		errors.Is(err, domain.ErrLimitExceeded):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDataUnavailable), errors.Is(err, domain.ErrModelUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Msg("Simulation request failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response
func (h *SimulationHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *SimulationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// Package handlers provides the scoring and regime read API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/scoring"
)

// ScoringHandlers contains HTTP handlers for the scoring API
type ScoringHandlers struct {
	service *scoring.Service
	log     zerolog.Logger
}

// NewScoringHandlers creates a new scoring handlers instance
func NewScoringHandlers(service *scoring.Service, log zerolog.Logger) *ScoringHandlers {
	return &ScoringHandlers{
		service: service,
		log:     log.With().Str("handler", "scoring").Logger(),
	}
}

// RegisterRoutes registers all scoring routes
func (h *ScoringHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/scores/{ticker}", h.HandleGetScore)
	r.Get("/regime", h.HandleGetRegime)
}

// HandleGetScore handles GET /api/scores/{ticker}. An optional
// adjustment query parameter exercises the bounded context adjustment
// channel; out-of-bound values are clamped by the engine, never
// rejected.
func (h *ScoringHandlers) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	adjustment := 0.0
	if param := r.URL.Query().Get("adjustment"); param != "" {
		parsed, err := strconv.ParseFloat(param, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "adjustment must be numeric")
			return
		}
		adjustment = parsed
	}

	breakdown, err := h.service.ScoreTicker(r.Context(), chi.URLParam(r, "ticker"), adjustment)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownAsset):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrDataUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.log.Error().Err(err).Msg("Score request failed")
			h.writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, breakdown)
}

// HandleGetRegime handles GET /api/regime
func (h *ScoringHandlers) HandleGetRegime(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.CurrentRegime())
}

// writeJSON writes a JSON response
func (h *ScoringHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *ScoringHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

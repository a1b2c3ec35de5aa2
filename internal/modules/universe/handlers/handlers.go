// Package handlers provides HTTP handlers for the asset catalogue.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/universe"
)

// UniverseHandlers contains HTTP handlers for the asset catalogue API
type UniverseHandlers struct {
	assets *universe.AssetRepository
	log    zerolog.Logger
}

// NewUniverseHandlers creates a new universe handlers instance
func NewUniverseHandlers(assets *universe.AssetRepository, log zerolog.Logger) *UniverseHandlers {
	return &UniverseHandlers{
		assets: assets,
		log:    log.With().Str("handler", "universe").Logger(),
	}
}

// RegisterRoutes registers all universe routes
func (h *UniverseHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/universe", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleUpsert)
		r.Delete("/{ticker}", h.HandleDeactivate)
	})
}

// HandleList handles GET /api/universe
func (h *UniverseHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.assets.ListActive()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list assets")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if assets == nil {
		assets = []universe.Asset{}
	}

	h.writeJSON(w, http.StatusOK, assets)
}

// HandleUpsert handles POST /api/universe
func (h *UniverseHandlers) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ticker string `json:"ticker"`
		Name   string `json:"name"`
		Class  string `json:"asset_class"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset := universe.Asset{
		Ticker: req.Ticker,
		Name:   req.Name,
		Class:  domain.AssetClass(req.Class),
		Active: true,
	}
	if err := h.assets.Upsert(asset); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to upsert asset")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusCreated, asset)
}

// HandleDeactivate handles DELETE /api/universe/{ticker}
func (h *UniverseHandlers) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if err := h.assets.Deactivate(ticker); err != nil {
		if errors.Is(err, domain.ErrUnknownAsset) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to deactivate asset")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated", "ticker": ticker})
}

// writeJSON writes a JSON response
func (h *UniverseHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *UniverseHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

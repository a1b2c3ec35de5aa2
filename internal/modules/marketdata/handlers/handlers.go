// Package handlers provides HTTP handlers for market data import.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/vantage/internal/domain"
	"github.com/aristath/vantage/internal/modules/marketdata"
)

const dateLayout = "2006-01-02"

// MarketDataHandlers contains HTTP handlers for price and macro import
type MarketDataHandlers struct {
	prices *marketdata.PriceRepository
	log    zerolog.Logger
}

// NewMarketDataHandlers creates a new market data handlers instance
func NewMarketDataHandlers(prices *marketdata.PriceRepository, log zerolog.Logger) *MarketDataHandlers {
	return &MarketDataHandlers{
		prices: prices,
		log:    log.With().Str("handler", "marketdata").Logger(),
	}
}

// RegisterRoutes registers all market data routes
func (h *MarketDataHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/marketdata", func(r chi.Router) {
		r.Post("/{ticker}/candles", h.HandleImportCandles)
		r.Post("/macro/{series}", h.HandleImportMacro)
	})
}

type candlePayload struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// HandleImportCandles handles POST /api/marketdata/{ticker}/candles,
// bulk-importing daily candles
func (h *MarketDataHandlers) HandleImportCandles(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	var payload []candlePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload) == 0 {
		h.writeError(w, http.StatusBadRequest, "no candles provided")
		return
	}

	candles := make([]domain.Candle, 0, len(payload))
	for _, c := range payload {
		date, err := time.Parse(dateLayout, c.Date)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "candle dates must be YYYY-MM-DD")
			return
		}
		candles = append(candles, domain.Candle{
			Date:   date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}

	if err := h.prices.UpsertCandles(ticker, candles); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Candle import failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":   ticker,
		"imported": len(candles),
	})
}

// HandleImportMacro handles POST /api/marketdata/macro/{series},
// importing benchmark or volatility-index points
func (h *MarketDataHandlers) HandleImportMacro(w http.ResponseWriter, r *http.Request) {
	series := chi.URLParam(r, "series")
	if series != marketdata.SeriesBenchmark && series != marketdata.SeriesVolatility {
		h.writeError(w, http.StatusBadRequest, "series must be BENCHMARK or VOLATILITY")
		return
	}

	var payload []struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload) == 0 {
		h.writeError(w, http.StatusBadRequest, "no points provided")
		return
	}

	for _, p := range payload {
		date, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
			return
		}
		if err := h.prices.UpsertMacro(series, date, p.Value); err != nil {
			h.log.Error().Err(err).Str("series", series).Msg("Macro import failed")
			h.writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"series":   series,
		"imported": len(payload),
	})
}

// writeJSON writes a JSON response
func (h *MarketDataHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *MarketDataHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

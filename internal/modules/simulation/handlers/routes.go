package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all simulation routes
func (h *SimulationHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/simulations", func(r chi.Router) {
		r.Post("/", h.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Post("/reset", h.HandleReset)
			r.Post("/trades", h.HandleExecuteTrade)
			r.Get("/history", h.HandleHistory)
			r.Get("/portfolio", h.HandlePortfolio)
			r.Get("/recommendations", h.HandleRecommendations)
			r.Post("/auto-trade", h.HandleAutoTrade)
		})
	})
}

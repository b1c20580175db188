// Package handlers provides HTTP handlers for number statistics.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
	"github.com/lottokit/drawgen/internal/modules/stats"
)

// StatsResponse is the GET /api/lotteries/{id}/stats payload: the full
// snapshot plus the weighted frequency distribution summary.
type StatsResponse struct {
	stats.Snapshot
	Summary stats.Summary `json:"summary"`
}

// Handler provides HTTP handlers for statistics endpoints
type Handler struct {
	catalog  *lotteries.Repository
	history  *draws.Repository
	provider *stats.Provider
	log      zerolog.Logger
}

// NewHandler creates a new statistics handler
func NewHandler(catalog *lotteries.Repository, history *draws.Repository, provider *stats.Provider, log zerolog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		history:  history,
		provider: provider,
		log:      log.With().Str("handler", "stats").Logger(),
	}
}

// RegisterRoutes registers statistics routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/lotteries/{id}/stats", h.HandleGet)
}

// HandleGet handles GET /api/lotteries/{id}/stats
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lottery, err := h.catalog.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to get lottery")
		http.Error(w, "Failed to get lottery", http.StatusInternalServerError)
		return
	}
	if lottery == nil {
		http.Error(w, "Lottery not found", http.StatusNotFound)
		return
	}

	history, err := h.history.ListAll(lottery.ID)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to load draw history")
		http.Error(w, "Failed to load draw history", http.StatusInternalServerError)
		return
	}

	snap, err := h.provider.GetOrBuild(lottery.ID, lottery.PoolSize, history)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to build statistics")
		http.Error(w, "Failed to build statistics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(StatsResponse{
		Snapshot: *snap,
		Summary:  snap.Summary(),
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode stats response")
	}
}

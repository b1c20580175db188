// Package handlers provides HTTP handlers for the lottery catalog.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lottokit/drawgen/internal/modules/lotteries"
)

// LotteryUpdate is the request body for PUT /api/lotteries/{id}.
type LotteryUpdate struct {
	Name        string   `json:"name"`
	PoolSize    int      `json:"pool_size"`
	Pick        int      `json:"pick"`
	DrawDays    []string `json:"draw_days"`
	TicketPrice string   `json:"ticket_price"`
	Active      *bool    `json:"active"`
}

// Handler provides HTTP handlers for lottery catalog endpoints
type Handler struct {
	repo *lotteries.Repository
	log  zerolog.Logger
}

// NewHandler creates a new lotteries handler
func NewHandler(repo *lotteries.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "lotteries").Logger(),
	}
}

// RegisterRoutes registers lottery catalog routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/lotteries", h.HandleList)
	r.Get("/api/lotteries/{id}", h.HandleGet)
	r.Put("/api/lotteries/{id}", h.HandleUpsert)
	r.Delete("/api/lotteries/{id}", h.HandleDelete)
}

// HandleList handles GET /api/lotteries. Pass ?active=true to list
// only games available for generation.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		list []lotteries.Lottery
		err  error
	)
	if r.URL.Query().Get("active") == "true" {
		list, err = h.repo.GetActive()
	} else {
		list, err = h.repo.GetAll()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list lotteries")
		http.Error(w, "Failed to list lotteries", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []lotteries.Lottery{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode lotteries response")
	}
}

// HandleGet handles GET /api/lotteries/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lottery, err := h.repo.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to get lottery")
		http.Error(w, "Failed to get lottery", http.StatusInternalServerError)
		return
	}
	if lottery == nil {
		http.Error(w, "Lottery not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(lottery)
}

// HandleUpsert handles PUT /api/lotteries/{id}
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Lottery id is required", http.StatusBadRequest)
		return
	}

	var update LotteryUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	price := decimal.Zero
	if update.TicketPrice != "" {
		parsed, err := decimal.NewFromString(update.TicketPrice)
		if err != nil {
			http.Error(w, "Invalid ticket_price", http.StatusBadRequest)
			return
		}
		price = parsed
	}
	active := true
	if update.Active != nil {
		active = *update.Active
	}

	lottery := lotteries.Lottery{
		ID:          id,
		Name:        update.Name,
		PoolSize:    update.PoolSize,
		Pick:        update.Pick,
		DrawDays:    update.DrawDays,
		TicketPrice: price,
		Active:      active,
	}
	if err := h.repo.Upsert(lottery); err != nil {
		h.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to upsert lottery")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.log.Info().Str("lottery_id", id).Msg("Lottery updated")

	stored, err := h.repo.Get(id)
	if err != nil || stored == nil {
		http.Error(w, "Failed to read back lottery", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stored)
}

// HandleDelete handles DELETE /api/lotteries/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.Delete(id); err != nil {
		h.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to delete lottery")
		http.Error(w, "Failed to delete lottery", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

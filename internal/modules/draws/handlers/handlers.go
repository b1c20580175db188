// Package handlers provides HTTP handlers for draw history endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
)

// DrawSubmit is the request body for POST /api/lotteries/{id}/draws.
type DrawSubmit struct {
	ContestID      int64  `json:"contest_id"`
	Date           string `json:"date"`
	Numbers        []int  `json:"numbers"`
	PrizePool      string `json:"prize_pool"`
	JackpotWinners int    `json:"jackpot_winners"`
}

// Handler provides HTTP handlers for draw history endpoints
type Handler struct {
	service *draws.Service
	catalog *lotteries.Repository
	log     zerolog.Logger
}

// NewHandler creates a new draws handler
func NewHandler(service *draws.Service, catalog *lotteries.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		catalog: catalog,
		log:     log.With().Str("handler", "draws").Logger(),
	}
}

// RegisterRoutes registers draw history routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/lotteries/{id}/draws", h.HandleList)
	r.Post("/api/lotteries/{id}/draws", h.HandleSubmit)
	r.Post("/api/lotteries/{id}/draws/sync", h.HandleSync)
}

// lookupLottery resolves the path lottery or writes the error response.
func (h *Handler) lookupLottery(w http.ResponseWriter, r *http.Request) *lotteries.Lottery {
	id := chi.URLParam(r, "id")
	lottery, err := h.catalog.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", id).Msg("Failed to get lottery")
		http.Error(w, "Failed to get lottery", http.StatusInternalServerError)
		return nil
	}
	if lottery == nil {
		http.Error(w, "Lottery not found", http.StatusNotFound)
		return nil
	}
	return lottery
}

// HandleList handles GET /api/lotteries/{id}/draws. Draws come back
// newest first; ?limit caps the page (default 50).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	lottery := h.lookupLottery(w, r)
	if lottery == nil {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.service.Repo().ListRecent(lottery.ID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to list draws")
		http.Error(w, "Failed to list draws", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []domain.Draw{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode draws response")
	}
}

// HandleSubmit handles POST /api/lotteries/{id}/draws
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	lottery := h.lookupLottery(w, r)
	if lottery == nil {
		return
	}

	var submit DrawSubmit
	if err := json.NewDecoder(r.Body).Decode(&submit); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	draw := domain.Draw{
		LotteryID:      lottery.ID,
		ContestID:      submit.ContestID,
		Numbers:        submit.Numbers,
		JackpotWinners: submit.JackpotWinners,
	}
	if submit.Date != "" {
		parsed, err := time.Parse("2006-01-02", submit.Date)
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		draw.Date = parsed
	}
	if submit.PrizePool != "" {
		pool, err := decimal.NewFromString(submit.PrizePool)
		if err != nil {
			http.Error(w, "Invalid prize_pool", http.StatusBadRequest)
			return
		}
		draw.PrizePool = pool
	}

	if err := h.service.Ingest(draw, lottery.PoolSize, lottery.Pick); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidParameter):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrDuplicateDraw):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to ingest draw")
			http.Error(w, "Failed to ingest draw", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"lottery_id": lottery.ID,
		"contest_id": submit.ContestID,
	})
}

// HandleSync handles POST /api/lotteries/{id}/draws/sync
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	lottery := h.lookupLottery(w, r)
	if lottery == nil {
		return
	}

	inserted, err := h.service.Sync(r.Context(), lottery.ID, lottery.PoolSize, lottery.Pick)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Draw sync failed")
		http.Error(w, "Draw sync failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"lottery_id": lottery.ID,
		"synced":     inserted,
	})
}

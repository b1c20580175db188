// Package handlers provides HTTP handlers for the batch ledger.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/modules/batches"
)

// Handler provides HTTP handlers for batch ledger endpoints
type Handler struct {
	repo *batches.Repository
	log  zerolog.Logger
}

// NewHandler creates a new batches handler
func NewHandler(repo *batches.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "batches").Logger(),
	}
}

// RegisterRoutes registers batch ledger routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/batches", h.HandleList)
	r.Get("/api/batches/{id}", h.HandleGet)
}

// HandleList handles GET /api/batches. Filter with ?lottery_id= and
// cap the page with ?limit= (default 20).
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	lotteryID := r.URL.Query().Get("lottery_id")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.repo.ListRecent(lotteryID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list batches")
		http.Error(w, "Failed to list batches", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []batches.Batch{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode batches response")
	}
}

// HandleGet handles GET /api/batches/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	batch, err := h.repo.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", id).Msg("Failed to get batch")
		http.Error(w, "Failed to get batch", http.StatusInternalServerError)
		return
	}
	if batch == nil {
		http.Error(w, "Batch not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(batch)
}

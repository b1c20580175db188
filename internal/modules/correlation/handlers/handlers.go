// Package handlers provides HTTP handlers for pair correlations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/modules/correlation"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
)

const defaultEntryLimit = 50

// CorrelationsResponse is the GET /api/lotteries/{id}/correlations
// payload: the strongest retained pairs plus the score distribution.
type CorrelationsResponse struct {
	LotteryID     string              `json:"lottery_id"`
	PoolSize      int                 `json:"pool_size"`
	DrawCount     int                 `json:"draw_count"`
	LatestContest int64               `json:"latest_contest"`
	Entries       []correlation.Entry `json:"entries"`
	Summary       correlation.Summary `json:"summary"`
}

// Handler provides HTTP handlers for correlation endpoints
type Handler struct {
	catalog  *lotteries.Repository
	history  *draws.Repository
	provider *correlation.Provider
	log      zerolog.Logger
}

// NewHandler creates a new correlation handler
func NewHandler(catalog *lotteries.Repository, history *draws.Repository, provider *correlation.Provider, log zerolog.Logger) *Handler {
	return &Handler{
		catalog:  catalog,
		history:  history,
		provider: provider,
		log:      log.With().Str("handler", "correlation").Logger(),
	}
}

// RegisterRoutes registers correlation routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/lotteries/{id}/correlations", h.HandleList)
}

// HandleList handles GET /api/lotteries/{id}/correlations. Entries come
// back strongest first; ?limit caps the page (default 50) and
// ?min_score drops pairs whose |score| falls below the threshold.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
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

	limit := defaultEntryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	minScore := 0.0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid min_score", http.StatusBadRequest)
			return
		}
		minScore = parsed
	}

	history, err := h.history.ListAll(lottery.ID)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to load draw history")
		http.Error(w, "Failed to load draw history", http.StatusInternalServerError)
		return
	}

	matrix, err := h.provider.GetOrBuild(lottery.ID, lottery.PoolSize, history)
	if err != nil {
		h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to build correlations")
		http.Error(w, "Failed to build correlations", http.StatusInternalServerError)
		return
	}

	entries := matrix.Entries()
	capHint := limit
	if capHint > len(entries) {
		capHint = len(entries)
	}
	filtered := make([]correlation.Entry, 0, capHint)
	for _, e := range entries {
		if abs(e.Score) < minScore {
			continue
		}
		filtered = append(filtered, e)
		if len(filtered) == limit {
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(CorrelationsResponse{
		LotteryID:     lottery.ID,
		PoolSize:      matrix.PoolSize,
		DrawCount:     matrix.DrawCount(),
		LatestContest: matrix.LatestContest(),
		Entries:       filtered,
		Summary:       matrix.Summary(),
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode correlations response")
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

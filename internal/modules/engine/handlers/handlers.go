// Package handlers exposes the generation engine over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/domain"
	"github.com/lottokit/drawgen/internal/modules/batches"
	"github.com/lottokit/drawgen/internal/modules/draws"
	"github.com/lottokit/drawgen/internal/modules/engine"
	"github.com/lottokit/drawgen/internal/modules/lotteries"
)

// GenerateRequest is the POST /api/generate body. Callers either name
// a catalogued lottery (pool, pick and history come from the catalog)
// or describe an ad-hoc geometry with pool_size and pick, optionally
// supplying inline draw history, most recent first.
type GenerateRequest struct {
	LotteryID string          `json:"lottery_id"`
	PoolSize  int             `json:"pool_size"`
	Pick      int             `json:"pick"`
	NumGames  int             `json:"num_games"`
	Strategy  domain.Strategy `json:"strategy"`
	Params    engine.Params   `json:"params"`
	Draws     [][]int         `json:"draws"`
}

// Handler provides HTTP handlers for the generation endpoints
type Handler struct {
	engine  *engine.Service
	catalog *lotteries.Repository
	history *draws.Repository
	ledger  *batches.Repository
	log     zerolog.Logger
}

// NewHandler creates a new engine handler
func NewHandler(eng *engine.Service, catalog *lotteries.Repository, history *draws.Repository, ledger *batches.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		engine:  eng,
		catalog: catalog,
		history: history,
		ledger:  ledger,
		log:     log.With().Str("handler", "engine").Logger(),
	}
}

// RegisterRoutes registers generation routes on the router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/generate", h.HandleGenerate)
	r.Get("/api/strategies", h.HandleStrategies)
}

// HandleGenerate handles POST /api/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := engine.Request{
		LotteryID: body.LotteryID,
		PoolSize:  body.PoolSize,
		Pick:      body.Pick,
		NumGames:  body.NumGames,
		Strategy:  body.Strategy,
		Params:    body.Params,
	}

	if body.LotteryID != "" {
		lottery, err := h.catalog.Get(body.LotteryID)
		if err != nil {
			h.log.Error().Err(err).Str("lottery_id", body.LotteryID).Msg("Failed to get lottery")
			http.Error(w, "Failed to get lottery", http.StatusInternalServerError)
			return
		}
		if lottery == nil {
			http.Error(w, "Lottery not found", http.StatusNotFound)
			return
		}
		req.LotteryID = lottery.ID
		req.PoolSize = lottery.PoolSize
		req.Pick = lottery.Pick

		history, err := h.history.ListAll(lottery.ID)
		if err != nil {
			h.log.Error().Err(err).Str("lottery_id", lottery.ID).Msg("Failed to load draw history")
			http.Error(w, "Failed to load draw history", http.StatusInternalServerError)
			return
		}
		req.Draws = history
	} else {
		req.Draws = inlineDraws(body.Draws)
	}

	result, err := h.engine.Generate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidParameter):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Client went away; nothing useful to write.
		default:
			h.log.Error().Err(err).Str("lottery_id", req.LotteryID).Msg("Generation failed")
			http.Error(w, "Generation failed", http.StatusInternalServerError)
		}
		return
	}

	// The batch is served even if the ledger write fails; an issued
	// batch the operator cannot audit beats a failed request.
	if err := h.ledger.Record(batches.FromResult(req.LotteryID, body.Params, result)); err != nil {
		h.log.Error().Err(err).Str("batch_id", result.BatchID).Msg("Failed to record batch")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode generate response")
	}
}

// HandleStrategies handles GET /api/strategies
func (h *Handler) HandleStrategies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.engine.Strategies()); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode strategies response")
	}
}

// inlineDraws shapes raw number lists into draws the statistics
// builders accept. Lists arrive most recent first, so the synthetic
// contest ids count down.
func inlineDraws(raw [][]int) []domain.Draw {
	if len(raw) == 0 {
		return nil
	}
	list := make([]domain.Draw, len(raw))
	for i, numbers := range raw {
		list[i] = domain.Draw{
			ContestID: int64(len(raw) - i),
			Numbers:   numbers,
		}
	}
	return list
}

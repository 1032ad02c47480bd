package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/outcomefi/engine/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, id, question string) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	SetStatus(ctx context.Context, id string, status domain.MarketStatus) error
}

// MarketHandler serves market directory and lifecycle endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// createMarketRequest is the body for market creation.
type createMarketRequest struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

// listMarketsResponse wraps the list endpoint output with pagination echoes.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// CreateMarket registers a new market with an empty registry and pool.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	m, err := h.markets.Create(r.Context(), req.ID, req.Question)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListMarkets returns markets with pagination, optionally filtered by status.
// GET /api/markets?status=open&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var markets []domain.Market
	var err error
	if status := r.URL.Query().Get("status"); status != "" {
		markets, err = h.markets.ListByStatus(r.Context(), domain.MarketStatus(status), opts)
	} else {
		markets, err = h.markets.List(r.Context(), opts)
	}
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// CloseMarket transitions a market to the closed state. Placement and pool
// mutations stop immediately; cancels and withdrawals keep working.
// POST /api/markets/{id}/close
func (h *MarketHandler) CloseMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	if err := h.markets.SetStatus(r.Context(), id, domain.MarketStatusClosed); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "closed",
		"market_id": id,
	})
}

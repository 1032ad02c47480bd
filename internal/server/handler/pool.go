package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/outcomefi/engine/internal/domain"
)

// LiquidityService defines the methods that the pool handler requires from
// the service layer.
type LiquidityService interface {
	AddLiquidity(ctx context.Context, marketID, provider string, yesIn, noIn uint64) (uint64, error)
	RemoveLiquidity(ctx context.Context, marketID, provider string, lpAmount uint64) (yesOut, noOut uint64, err error)
	Swap(ctx context.Context, marketID, trader string, token domain.OutcomeToken, minOut uint64) (uint64, error)
	Quote(ctx context.Context, marketID string, outcomeIn domain.Outcome, amountIn uint64) (domain.SwapQuote, error)
	Stats(ctx context.Context, marketID string) (domain.PoolStats, error)
	Shares(ctx context.Context, marketID, account string) (domain.LPShare, error)
	TransferShares(ctx context.Context, marketID, from, to string, amount uint64) error
}

// PoolHandler serves AMM pool HTTP endpoints.
type PoolHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

// NewPoolHandler creates a PoolHandler with the given service and logger.
func NewPoolHandler(liquidity LiquidityService, logger *slog.Logger) *PoolHandler {
	return &PoolHandler{
		liquidity: liquidity,
		logger:    logger,
	}
}

// depositRequest deposits both legs into the pool.
type depositRequest struct {
	Provider  string `json:"provider"`
	YesAmount uint64 `json:"yes_amount"`
	NoAmount  uint64 `json:"no_amount"`
}

// withdrawRequest burns LP shares for proportional reserve slices.
type withdrawRequest struct {
	Provider string `json:"provider"`
	Shares   uint64 `json:"shares"`
}

// swapRequest trades one leg against the pool.
type swapRequest struct {
	Trader  string `json:"trader"`
	Outcome string `json:"outcome"`
	Amount  uint64 `json:"amount"`
	MinOut  uint64 `json:"min_out"`
}

// transferRequest moves LP shares between bearers.
type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Deposit adds liquidity and returns the minted LP shares.
// POST /api/markets/{id}/pool/deposit
func (h *PoolHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	minted, err := h.liquidity.AddLiquidity(r.Context(), marketID, req.Provider, req.YesAmount, req.NoAmount)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"market_id": marketID,
		"provider":  req.Provider,
		"shares":    minted,
	})
}

// Withdraw burns LP shares and returns the proportional reserve slices.
// POST /api/markets/{id}/pool/withdraw
func (h *PoolHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	yesOut, noOut, err := h.liquidity.RemoveLiquidity(r.Context(), marketID, req.Provider, req.Shares)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":  marketID,
		"provider":   req.Provider,
		"yes_amount": yesOut,
		"no_amount":  noOut,
	})
}

// Swap trades the presented outcome token against the pool. The output leg is
// credited to the trader's claim balance.
// POST /api/markets/{id}/pool/swap
func (h *PoolHandler) Swap(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Trader == "" {
		writeError(w, http.StatusBadRequest, "trader is required")
		return
	}
	outcome, ok := parseOutcome(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	token := domain.OutcomeToken{
		MarketID: marketID,
		Outcome:  outcome,
		Amount:   req.Amount,
	}
	out, err := h.liquidity.Swap(r.Context(), marketID, req.Trader, token, req.MinOut)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id":   marketID,
		"trader":      req.Trader,
		"outcome_out": outcome.Opposite(),
		"amount_out":  out,
	})
}

// Quote projects a swap without mutating the pool.
// GET /api/markets/{id}/pool/quote?outcome=yes&amount=100
func (h *PoolHandler) Quote(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	outcome, ok := parseOutcome(r.URL.Query().Get("outcome"))
	if !ok {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}
	amount, err := strconv.ParseUint(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	quote, err := h.liquidity.Quote(r.Context(), marketID, outcome, amount)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// Stats reports the pool's reserves, share supply, implied yes price, and
// collected fees.
// GET /api/markets/{id}/pool
func (h *PoolHandler) Stats(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	stats, err := h.liquidity.Stats(r.Context(), marketID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetShares retrieves a provider's LP share balance.
// GET /api/markets/{id}/pool/shares/{account}
func (h *PoolHandler) GetShares(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	account := pathParam(r, "account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	share, err := h.liquidity.Shares(r.Context(), marketID, account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, share)
}

// TransferShares moves LP shares between bearers without touching the pool.
// POST /api/markets/{id}/pool/transfer
func (h *PoolHandler) TransferShares(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	if err := h.liquidity.TransferShares(r.Context(), marketID, req.From, req.To, req.Amount); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"from":      req.From,
		"to":        req.To,
		"amount":    req.Amount,
	})
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/outcomefi/engine/internal/domain"
)

// ClaimsService defines the methods that the claims handler requires from the
// service layer.
type ClaimsService interface {
	Get(ctx context.Context, marketID, account string) (domain.ClaimBalance, error)
	ListByAccount(ctx context.Context, account string) ([]domain.ClaimBalance, error)
	Withdraw(ctx context.Context, marketID, account string) (domain.ClaimBalance, error)
}

// ClaimsHandler serves escrow claim HTTP endpoints.
type ClaimsHandler struct {
	claims ClaimsService
	logger *slog.Logger
}

// NewClaimsHandler creates a ClaimsHandler with the given service and logger.
func NewClaimsHandler(claims ClaimsService, logger *slog.Logger) *ClaimsHandler {
	return &ClaimsHandler{
		claims: claims,
		logger: logger,
	}
}

// GetClaims returns an account's pending claim balance for a market.
// GET /api/markets/{id}/claims/{account}
func (h *ClaimsHandler) GetClaims(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	account := pathParam(r, "account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	bal, err := h.claims.Get(r.Context(), marketID, account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// listClaimsResponse wraps the cross-market claims listing.
type listClaimsResponse struct {
	Claims []domain.ClaimBalance `json:"claims"`
}

// ListClaims returns an account's non-zero claim balances across markets.
// GET /api/claims?account=alice
func (h *ClaimsHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	account := r.URL.Query().Get("account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "account query parameter required")
		return
	}

	balances, err := h.claims.ListByAccount(r.Context(), account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	if balances == nil {
		balances = []domain.ClaimBalance{}
	}
	writeJSON(w, http.StatusOK, listClaimsResponse{Claims: balances})
}

// WithdrawClaims zeroes the account's claim balance and returns what was
// owed. Works on closed markets.
// POST /api/markets/{id}/claims/{account}/withdraw
func (h *ClaimsHandler) WithdrawClaims(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	account := pathParam(r, "account")
	if account == "" {
		writeError(w, http.StatusBadRequest, "missing account")
		return
	}

	owed, err := h.claims.Withdraw(r.Context(), marketID, account)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, owed)
}

package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/outcomefi/engine/internal/domain"
)

// TradingService defines the methods that the order handler requires from the
// service layer.
type TradingService interface {
	PlaceBuy(ctx context.Context, marketID, maker string, outcome domain.Outcome, priceBps, paid uint64) (domain.Order, error)
	PlaceSell(ctx context.Context, marketID, maker string, priceBps uint64, token domain.OutcomeToken) (domain.Order, error)
	Cancel(ctx context.Context, marketID string, orderID uint64, caller string) (domain.Order, error)
	Match(ctx context.Context, marketID string, buyID, sellID uint64) (domain.Trade, error)
	Order(ctx context.Context, marketID string, orderID uint64) (domain.Order, error)
	ListOrders(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error)
	ListTrades(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error)
	BestBuy(ctx context.Context, marketID string, outcome domain.Outcome) (domain.Order, bool, error)
	BestSell(ctx context.Context, marketID string, outcome domain.Outcome) (domain.Order, bool, error)
	Depth(ctx context.Context, marketID string, outcome domain.Outcome) (domain.BookSnapshot, error)
	RegistryState(ctx context.Context, marketID string) (domain.RegistryState, error)
}

// OrderHandler serves order registry HTTP endpoints.
type OrderHandler struct {
	trading TradingService
	logger  *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given service and logger.
func NewOrderHandler(trading TradingService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		trading: trading,
		logger:  logger,
	}
}

// placeBuyRequest funds a buy order with currency at a limit price.
type placeBuyRequest struct {
	Maker    string `json:"maker"`
	Outcome  string `json:"outcome"`
	PriceBps uint64 `json:"price_bps"`
	Paid     uint64 `json:"paid"`
}

// placeSellRequest backs a sell order with an outcome token balance.
type placeSellRequest struct {
	Maker    string `json:"maker"`
	Outcome  string `json:"outcome"`
	PriceBps uint64 `json:"price_bps"`
	Amount   uint64 `json:"amount"`
}

// matchRequest names two crossing resting orders to settle.
type matchRequest struct {
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
}

// PlaceBuy places a buy order; the token amount is derived from the paid
// currency at the limit price.
// POST /api/markets/{id}/orders/buy
func (h *OrderHandler) PlaceBuy(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req placeBuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Maker == "" {
		writeError(w, http.StatusBadRequest, "maker is required")
		return
	}
	outcome, ok := parseOutcome(req.Outcome)
	if !ok {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	o, err := h.trading.PlaceBuy(r.Context(), marketID, req.Maker, outcome, req.PriceBps, req.Paid)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// PlaceSell places a sell order backed by the presented outcome token.
// POST /api/markets/{id}/orders/sell
func (h *OrderHandler) PlaceSell(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req placeSellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Maker == "" {
		writeError(w, http.StatusBadRequest, "maker is required")
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
	o, err := h.trading.PlaceSell(r.Context(), marketID, req.Maker, req.PriceBps, token)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// CancelOrder tombstones the caller's open order. The caller is identified by
// the `caller` query parameter and must be the order's maker.
// DELETE /api/markets/{id}/orders/{orderID}?caller=alice
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	orderID, err := pathUint64(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	caller := r.URL.Query().Get("caller")
	if caller == "" {
		writeError(w, http.StatusBadRequest, "caller query parameter required")
		return
	}

	o, err := h.trading.Cancel(r.Context(), marketID, orderID, caller)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Match settles two crossing resting orders at the sell order's limit price.
// POST /api/markets/{id}/match
func (h *OrderHandler) Match(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	trade, err := h.trading.Match(r.Context(), marketID, req.BuyOrderID, req.SellOrderID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// GetOrder returns a single order by ID, tombstones included.
// GET /api/markets/{id}/orders/{orderID}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	orderID, err := pathUint64(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.trading.Order(r.Context(), marketID, orderID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// listOrdersResponse wraps the list orders response.
type listOrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

// ListOrders returns a market's orders, newest first.
// GET /api/markets/{id}/orders?limit=50&offset=0
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	orders, err := h.trading.ListOrders(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}

// listTradesResponse wraps the list trades response.
type listTradesResponse struct {
	Trades []domain.Trade `json:"trades"`
}

// ListTrades returns a market's executed trades, newest first.
// GET /api/markets/{id}/trades?limit=50&offset=0
func (h *OrderHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	trades, err := h.trading.ListTrades(r.Context(), marketID, parseListOpts(r))
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, listTradesResponse{Trades: trades})
}

// bookResponse pairs the depth snapshot with the best resting orders.
type bookResponse struct {
	Book     domain.BookSnapshot `json:"book"`
	BestBuy  *domain.Order       `json:"best_buy,omitempty"`
	BestSell *domain.Order       `json:"best_sell,omitempty"`
}

// GetBook returns one outcome's depth snapshot plus the best bid and ask
// orders. Spread is zero for a crossed or one-sided book.
// GET /api/markets/{id}/book/{outcome}
func (h *OrderHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	outcome, ok := parseOutcome(pathParam(r, "outcome"))
	if !ok {
		writeError(w, http.StatusBadRequest, "outcome must be yes or no")
		return
	}

	snap, err := h.trading.Depth(r.Context(), marketID, outcome)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}

	resp := bookResponse{Book: snap}
	if o, ok, err := h.trading.BestBuy(r.Context(), marketID, outcome); err == nil && ok {
		resp.BestBuy = &o
	}
	if o, ok, err := h.trading.BestSell(r.Context(), marketID, outcome); err == nil && ok {
		resp.BestSell = &o
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRegistry reports the market's registry counters.
// GET /api/markets/{id}/registry
func (h *OrderHandler) GetRegistry(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	st, err := h.trading.RegistryState(r.Context(), marketID)
	if err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

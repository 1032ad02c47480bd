package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/engine"
)

// TradingService fronts the order registry: placement, cancellation, and
// relayer-driven matching. The engine mutation is the source of truth; the
// service then flushes the affected rows to Postgres and drops stale book
// snapshots. Flush failures are logged, not returned, because the periodic
// snapshotter reconciles the store from engine state.
type TradingService struct {
	eng        *engine.Engine
	orders     domain.OrderStore
	registries domain.RegistryStore
	trades     domain.TradeStore
	markets    domain.MarketStore
	claims     domain.ClaimStore
	bookCache  domain.BookCache
	logger     *slog.Logger
}

// NewTradingService creates a TradingService with all required dependencies.
func NewTradingService(
	eng *engine.Engine,
	orders domain.OrderStore,
	registries domain.RegistryStore,
	trades domain.TradeStore,
	markets domain.MarketStore,
	claims domain.ClaimStore,
	bookCache domain.BookCache,
	logger *slog.Logger,
) *TradingService {
	return &TradingService{
		eng:        eng,
		orders:     orders,
		registries: registries,
		trades:     trades,
		markets:    markets,
		claims:     claims,
		bookCache:  bookCache,
		logger:     logger,
	}
}

// PlaceBuy places a buy order funded by paid currency at the limit price.
func (s *TradingService) PlaceBuy(ctx context.Context, marketID, maker string, outcome domain.Outcome, priceBps, paid uint64) (domain.Order, error) {
	o, err := s.eng.PlaceBuy(ctx, marketID, maker, outcome, priceBps, paid)
	if err != nil {
		return domain.Order{}, err
	}
	s.flushOrder(ctx, o)
	return o, nil
}

// PlaceSell places a sell order backed by the presented outcome token.
func (s *TradingService) PlaceSell(ctx context.Context, marketID, maker string, priceBps uint64, token domain.OutcomeToken) (domain.Order, error) {
	o, err := s.eng.PlaceSell(ctx, marketID, maker, priceBps, token)
	if err != nil {
		return domain.Order{}, err
	}
	s.flushOrder(ctx, o)
	return o, nil
}

// Cancel tombstones the caller's open order.
func (s *TradingService) Cancel(ctx context.Context, marketID string, orderID uint64, caller string) (domain.Order, error) {
	o, err := s.eng.Cancel(ctx, marketID, orderID, caller)
	if err != nil {
		return domain.Order{}, err
	}
	s.flushOrder(ctx, o)
	return o, nil
}

// Match settles two crossing resting orders named by the caller.
func (s *TradingService) Match(ctx context.Context, marketID string, buyID, sellID uint64) (domain.Trade, error) {
	trade, err := s.eng.Match(ctx, marketID, buyID, sellID)
	if err != nil {
		return domain.Trade{}, err
	}

	if err := s.trades.Insert(ctx, trade); err != nil {
		s.logWriteBehind(ctx, marketID, "trade insert", err)
	}
	if err := s.markets.AddVolume(ctx, marketID, trade.Amount); err != nil {
		s.logWriteBehind(ctx, marketID, "market volume", err)
	}
	for _, id := range []uint64{trade.BuyOrderID, trade.SellOrderID} {
		if o, err := s.eng.Order(marketID, id); err == nil {
			if err := s.orders.Upsert(ctx, o); err != nil {
				s.logWriteBehind(ctx, marketID, "order upsert", err)
			}
		}
	}
	for _, account := range []string{trade.Buyer, trade.Seller} {
		if bal, err := s.eng.Claims(marketID, account); err == nil {
			if err := s.claims.Upsert(ctx, bal); err != nil {
				s.logWriteBehind(ctx, marketID, "claims upsert", err)
			}
		}
	}
	s.flushRegistry(ctx, marketID)
	s.invalidateBook(ctx, marketID)

	s.logger.InfoContext(ctx, "trading_service: trade executed",
		slog.String("market_id", marketID),
		slog.Uint64("trade_id", trade.ID),
		slog.Uint64("price_bps", trade.PriceBps),
		slog.Uint64("amount", trade.Amount),
	)
	return trade, nil
}

// Order returns a single order, tombstones included.
func (s *TradingService) Order(ctx context.Context, marketID string, orderID uint64) (domain.Order, error) {
	return s.eng.Order(marketID, orderID)
}

// ListOrders returns a market's persisted orders, newest first.
func (s *TradingService) ListOrders(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error) {
	orders, err := s.orders.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("trading_service: list orders: %w", err)
	}
	return orders, nil
}

// ListTrades returns a market's persisted trades, newest first.
func (s *TradingService) ListTrades(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("trading_service: list trades: %w", err)
	}
	return trades, nil
}

// BestBuy returns the highest-priced open buy order for the outcome.
func (s *TradingService) BestBuy(ctx context.Context, marketID string, outcome domain.Outcome) (domain.Order, bool, error) {
	return s.eng.BestBuy(marketID, outcome)
}

// BestSell returns the lowest-priced open sell order for the outcome.
func (s *TradingService) BestSell(ctx context.Context, marketID string, outcome domain.Outcome) (domain.Order, bool, error) {
	return s.eng.BestSell(marketID, outcome)
}

// Depth returns the full depth snapshot for one outcome, cache-first.
func (s *TradingService) Depth(ctx context.Context, marketID string, outcome domain.Outcome) (domain.BookSnapshot, error) {
	if snap, err := s.bookCache.GetSnapshot(ctx, marketID, outcome); err == nil {
		return snap, nil
	}

	snap, err := s.eng.Depth(marketID, outcome)
	if err != nil {
		return domain.BookSnapshot{}, err
	}

	if err := s.bookCache.SetSnapshot(ctx, snap); err != nil {
		s.logWriteBehind(ctx, marketID, "book cache set", err)
	}
	return snap, nil
}

// RegistryState reports the market's registry counters.
func (s *TradingService) RegistryState(ctx context.Context, marketID string) (domain.RegistryState, error) {
	return s.eng.RegistryState(marketID)
}

// flushOrder writes an order mutation and the registry counters behind it.
func (s *TradingService) flushOrder(ctx context.Context, o domain.Order) {
	if err := s.orders.Upsert(ctx, o); err != nil {
		s.logWriteBehind(ctx, o.MarketID, "order upsert", err)
	}
	s.flushRegistry(ctx, o.MarketID)
	s.invalidateBook(ctx, o.MarketID)
}

func (s *TradingService) flushRegistry(ctx context.Context, marketID string) {
	st, err := s.eng.RegistryState(marketID)
	if err != nil {
		return
	}
	if err := s.registries.Upsert(ctx, st); err != nil {
		s.logWriteBehind(ctx, marketID, "registry upsert", err)
	}
}

func (s *TradingService) invalidateBook(ctx context.Context, marketID string) {
	if err := s.bookCache.Invalidate(ctx, marketID); err != nil {
		s.logWriteBehind(ctx, marketID, "book invalidate", err)
	}
}

func (s *TradingService) logWriteBehind(ctx context.Context, marketID, op string, err error) {
	s.logger.WarnContext(ctx, "trading_service: write-behind failed",
		slog.String("market_id", marketID),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/engine"
)

// MarketService owns the market directory: creation, lifecycle transitions,
// and the is-open gate the engine consults before every placement and pool
// mutation.
type MarketService struct {
	eng      *engine.Engine
	markets  domain.MarketStore
	pools    domain.PoolStore
	cache    domain.MarketCache
	audit    domain.AuditStore
	notifier Notifier
	logger   *slog.Logger
}

// NewMarketService creates a MarketService. The engine is attached after
// construction because the service is also the engine's market gate. The
// notifier may be nil.
func NewMarketService(
	markets domain.MarketStore,
	pools domain.PoolStore,
	cache domain.MarketCache,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:  markets,
		pools:    pools,
		cache:    cache,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// AttachEngine wires the engine in after both sides exist.
func (s *MarketService) AttachEngine(eng *engine.Engine) {
	s.eng = eng
}

// Create registers a new market: a directory row, a fresh order registry,
// and an unseeded pool. Market ids are caller-assigned and immutable.
func (s *MarketService) Create(ctx context.Context, id, question string) (domain.Market, error) {
	m := domain.Market{
		ID:        id,
		Question:  question,
		Status:    domain.MarketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create %q: %w", id, err)
	}
	if err := s.eng.CreateMarket(ctx, id); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return domain.Market{}, fmt.Errorf("market_service: register %q: %w", id, err)
	}

	// Persist the empty pool snapshot so restore sees a seeded row.
	if ps, err := s.eng.PoolState(id); err == nil {
		if err := s.pools.Upsert(ctx, ps); err != nil {
			s.logger.WarnContext(ctx, "market_service: pool snapshot failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "market_created", map[string]any{
		"market_id": id,
		"question":  question,
	}); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", id),
	)
	return m, nil
}

// Get retrieves a market by id, checking the cache first and falling back to
// the persistent store on a cache miss.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// List returns markets newest first.
func (s *MarketService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// ListByStatus returns markets in the given lifecycle state.
func (s *MarketService) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListByStatus(ctx, status, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list by status: %w", err)
	}
	return markets, nil
}

// SetStatus transitions a market's lifecycle state. Closing a market stops
// placement and pool mutations immediately; cancels and withdrawals stay
// available.
func (s *MarketService) SetStatus(ctx context.Context, id string, status domain.MarketStatus) error {
	if err := s.markets.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("market_service: set status %q: %w", id, err)
	}

	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.audit.Log(ctx, "market_status_changed", map[string]any{
		"market_id": id,
		"status":    string(status),
	}); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}

	if status == domain.MarketStatusClosed && s.notifier != nil {
		if err := s.notifier.Notify(ctx, "market_closed", "Market closed",
			fmt.Sprintf("market %s no longer accepts orders or pool mutations", id)); err != nil {
			s.logger.WarnContext(ctx, "market_service: notification failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "market_service: status changed",
		slog.String("market_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

// IsOpen reports whether the market accepts mutations. It satisfies the
// engine's MarketGate and sits on the hot path of every placement, so it
// reads through the cache.
func (s *MarketService) IsOpen(ctx context.Context, marketID string) (bool, error) {
	m, err := s.Get(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.IsOpen(), nil
}

// Compile-time interface check.
var _ engine.MarketGate = (*MarketService)(nil)

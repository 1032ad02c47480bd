package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/engine"
)

// Bootstrapper rebuilds the engine's in-memory state from Postgres on
// startup. Every known market gets its registry counters, order ledger,
// pool reserves, and claim balances restored before the server starts
// accepting traffic.
type Bootstrapper struct {
	eng        *engine.Engine
	markets    domain.MarketStore
	orders     domain.OrderStore
	registries domain.RegistryStore
	pools      domain.PoolStore
	claims     domain.ClaimStore
	logger     *slog.Logger
}

// NewBootstrapper creates a Bootstrapper with all required dependencies.
func NewBootstrapper(
	eng *engine.Engine,
	markets domain.MarketStore,
	orders domain.OrderStore,
	registries domain.RegistryStore,
	pools domain.PoolStore,
	claims domain.ClaimStore,
	logger *slog.Logger,
) *Bootstrapper {
	return &Bootstrapper{
		eng:        eng,
		markets:    markets,
		orders:     orders,
		registries: registries,
		pools:      pools,
		claims:     claims,
		logger:     logger,
	}
}

// batchSize pages through the market directory on boot.
const batchSize = 500

// Restore loads every market and rebuilds its engine state. A market with no
// persisted registry or pool yet is registered fresh instead.
func (b *Bootstrapper) Restore(ctx context.Context) error {
	var restored, fresh int

	for offset := 0; ; offset += batchSize {
		markets, err := b.markets.List(ctx, domain.ListOpts{Limit: batchSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("boot: list markets: %w", err)
		}
		if len(markets) == 0 {
			break
		}

		for _, m := range markets {
			wasFresh, err := b.restoreMarket(ctx, m.ID)
			if err != nil {
				return err
			}
			if wasFresh {
				fresh++
			} else {
				restored++
			}
		}

		if len(markets) < batchSize {
			break
		}
	}

	b.logger.InfoContext(ctx, "boot: engine state rebuilt",
		slog.Int("restored", restored),
		slog.Int("fresh", fresh),
	)
	return nil
}

func (b *Bootstrapper) restoreMarket(ctx context.Context, marketID string) (fresh bool, err error) {
	state, regErr := b.registries.Get(ctx, marketID)
	poolState, poolErr := b.pools.GetByMarket(ctx, marketID)

	if regErr != nil && !errors.Is(regErr, domain.ErrNotFound) {
		return false, fmt.Errorf("boot: registry %s: %w", marketID, regErr)
	}
	if poolErr != nil && !errors.Is(poolErr, domain.ErrNotFound) {
		return false, fmt.Errorf("boot: pool %s: %w", marketID, poolErr)
	}

	// Nothing persisted yet: register the market from scratch.
	if errors.Is(regErr, domain.ErrNotFound) && errors.Is(poolErr, domain.ErrNotFound) {
		if err := b.eng.CreateMarket(ctx, marketID); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return false, fmt.Errorf("boot: register %s: %w", marketID, err)
		}
		return true, nil
	}

	if errors.Is(regErr, domain.ErrNotFound) {
		state = domain.RegistryState{MarketID: marketID}
	}
	if errors.Is(poolErr, domain.ErrNotFound) {
		poolState = domain.PoolState{MarketID: marketID, Active: true}
	}

	orders, err := b.orders.ListAllByMarket(ctx, marketID)
	if err != nil {
		return false, fmt.Errorf("boot: orders %s: %w", marketID, err)
	}
	claims, err := b.claims.ListByMarket(ctx, marketID)
	if err != nil {
		return false, fmt.Errorf("boot: claims %s: %w", marketID, err)
	}

	if err := b.eng.Restore(marketID, state, orders, poolState, claims); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return false, nil
		}
		return false, fmt.Errorf("boot: restore %s: %w", marketID, err)
	}
	return false, nil
}

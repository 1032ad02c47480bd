package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/engine"
)

// Snapshotter periodically reconciles Postgres with engine state. The
// per-operation write-behind covers the common path; this loop repairs rows
// lost to transient store failures.
type Snapshotter struct {
	eng        *engine.Engine
	markets    domain.MarketStore
	registries domain.RegistryStore
	pools      domain.PoolStore
	interval   time.Duration
	logger     *slog.Logger
}

// NewSnapshotter creates a Snapshotter with all required dependencies.
func NewSnapshotter(
	eng *engine.Engine,
	markets domain.MarketStore,
	registries domain.RegistryStore,
	pools domain.PoolStore,
	interval time.Duration,
	logger *slog.Logger,
) *Snapshotter {
	return &Snapshotter{
		eng:        eng,
		markets:    markets,
		registries: registries,
		pools:      pools,
		interval:   interval,
		logger:     logger,
	}
}

// Run flushes snapshots on the configured interval until the context is
// cancelled, then performs one final flush before returning.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			s.flushAll(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			s.flushAll(ctx)
		}
	}
}

func (s *Snapshotter) flushAll(ctx context.Context) {
	for offset := 0; ; offset += batchSize {
		markets, err := s.markets.List(ctx, domain.ListOpts{Limit: batchSize, Offset: offset})
		if err != nil {
			s.logger.WarnContext(ctx, "snapshot: list markets failed",
				slog.String("error", err.Error()),
			)
			return
		}
		if len(markets) == 0 {
			return
		}

		for _, m := range markets {
			s.flushMarket(ctx, m.ID)
		}
		if len(markets) < batchSize {
			return
		}
	}
}

func (s *Snapshotter) flushMarket(ctx context.Context, marketID string) {
	if st, err := s.eng.RegistryState(marketID); err == nil {
		if err := s.registries.Upsert(ctx, st); err != nil {
			s.logger.WarnContext(ctx, "snapshot: registry flush failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "snapshot: registry read failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	if ps, err := s.eng.PoolState(marketID); err == nil {
		if err := s.pools.Upsert(ctx, ps); err != nil {
			s.logger.WarnContext(ctx, "snapshot: pool flush failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		}
	}
}

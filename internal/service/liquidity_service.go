package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/engine"
)

// LiquidityService fronts the AMM pool: deposits, withdrawals, swaps, and
// quotes. LP shares are bearer balances tracked in the share store; the
// engine only validates totals, the service moves the per-account balances.
type LiquidityService struct {
	eng    *engine.Engine
	pools  domain.PoolStore
	shares domain.LPShareStore
	claims domain.ClaimStore
	prices domain.PriceCache
	logger *slog.Logger
}

// NewLiquidityService creates a LiquidityService with all required dependencies.
func NewLiquidityService(
	eng *engine.Engine,
	pools domain.PoolStore,
	shares domain.LPShareStore,
	claims domain.ClaimStore,
	prices domain.PriceCache,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		eng:    eng,
		pools:  pools,
		shares: shares,
		claims: claims,
		prices: prices,
		logger: logger,
	}
}

// AddLiquidity deposits both legs and credits the minted shares to the
// provider.
func (s *LiquidityService) AddLiquidity(ctx context.Context, marketID, provider string, yesIn, noIn uint64) (uint64, error) {
	minted, err := s.eng.AddLiquidity(ctx, marketID, provider, yesIn, noIn)
	if err != nil {
		return 0, err
	}

	if err := s.shares.Credit(ctx, marketID, provider, minted); err != nil {
		s.logWriteBehind(ctx, marketID, "share credit", err)
	}
	s.flushPool(ctx, marketID)
	return minted, nil
}

// RemoveLiquidity burns the provider's shares and returns the proportional
// reserve slices. The share debit runs first so an overdraw fails before the
// pool is touched; an engine-side failure re-credits the shares.
func (s *LiquidityService) RemoveLiquidity(ctx context.Context, marketID, provider string, lpAmount uint64) (yesOut, noOut uint64, err error) {
	if err := s.shares.Debit(ctx, marketID, provider, lpAmount); err != nil {
		return 0, 0, err
	}

	yesOut, noOut, err = s.eng.RemoveLiquidity(ctx, marketID, provider, lpAmount)
	if err != nil {
		if creditErr := s.shares.Credit(ctx, marketID, provider, lpAmount); creditErr != nil {
			s.logger.ErrorContext(ctx, "liquidity_service: share re-credit failed",
				slog.String("market_id", marketID),
				slog.String("provider", provider),
				slog.Uint64("amount", lpAmount),
				slog.String("error", creditErr.Error()),
			)
		}
		return 0, 0, err
	}

	s.flushPool(ctx, marketID)
	return yesOut, noOut, nil
}

// Swap trades the presented outcome token against the pool; the output is
// credited to the trader's claim balance.
func (s *LiquidityService) Swap(ctx context.Context, marketID, trader string, token domain.OutcomeToken, minOut uint64) (uint64, error) {
	out, err := s.eng.Swap(ctx, marketID, trader, token, minOut)
	if err != nil {
		return 0, err
	}

	if bal, err := s.eng.Claims(marketID, trader); err == nil {
		if err := s.claims.Upsert(ctx, bal); err != nil {
			s.logWriteBehind(ctx, marketID, "claims upsert", err)
		}
	}
	s.flushPool(ctx, marketID)
	return out, nil
}

// Quote projects a swap without mutating the pool.
func (s *LiquidityService) Quote(ctx context.Context, marketID string, outcomeIn domain.Outcome, amountIn uint64) (domain.SwapQuote, error) {
	return s.eng.Quote(marketID, outcomeIn, amountIn)
}

// Stats reports the pool's public projection.
func (s *LiquidityService) Stats(ctx context.Context, marketID string) (domain.PoolStats, error) {
	return s.eng.PoolStats(marketID)
}

// Shares retrieves a provider's LP share balance.
func (s *LiquidityService) Shares(ctx context.Context, marketID, account string) (domain.LPShare, error) {
	share, err := s.shares.Get(ctx, marketID, account)
	if err != nil {
		return domain.LPShare{}, fmt.Errorf("liquidity_service: get shares: %w", err)
	}
	return share, nil
}

// TransferShares moves LP shares between bearers without touching the pool.
func (s *LiquidityService) TransferShares(ctx context.Context, marketID, from, to string, amount uint64) error {
	if amount == 0 {
		return domain.ErrZeroAmount
	}
	if err := s.shares.Transfer(ctx, marketID, from, to, amount); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "liquidity_service: shares transferred",
		slog.String("market_id", marketID),
		slog.String("from", from),
		slog.String("to", to),
		slog.Uint64("amount", amount),
	)
	return nil
}

// flushPool writes the pool snapshot and refreshes the implied price cache.
func (s *LiquidityService) flushPool(ctx context.Context, marketID string) {
	ps, err := s.eng.PoolState(marketID)
	if err != nil {
		return
	}
	if err := s.pools.Upsert(ctx, ps); err != nil {
		s.logWriteBehind(ctx, marketID, "pool upsert", err)
	}

	if stats, err := s.eng.PoolStats(marketID); err == nil {
		if err := s.prices.SetYesPrice(ctx, marketID, stats.YesPriceBps, time.Now().UTC()); err != nil {
			s.logWriteBehind(ctx, marketID, "price cache", err)
		}
	}
}

func (s *LiquidityService) logWriteBehind(ctx context.Context, marketID, op string, err error) {
	s.logger.WarnContext(ctx, "liquidity_service: write-behind failed",
		slog.String("market_id", marketID),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}

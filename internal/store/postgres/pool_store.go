package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// PoolStore implements domain.PoolStore using PostgreSQL.
type PoolStore struct {
	pool *pgxpool.Pool
}

// NewPoolStore creates a new PoolStore backed by the given connection pool.
func NewPoolStore(pool *pgxpool.Pool) *PoolStore {
	return &PoolStore{pool: pool}
}

// Upsert writes an AMM pool snapshot.
func (s *PoolStore) Upsert(ctx context.Context, st domain.PoolState) error {
	const query = `
		INSERT INTO pools (market_id, yes_reserve, no_reserve, total_shares, total_fees, fee_bps, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			yes_reserve = EXCLUDED.yes_reserve,
			no_reserve = EXCLUDED.no_reserve,
			total_shares = EXCLUDED.total_shares,
			total_fees = EXCLUDED.total_fees,
			fee_bps = EXCLUDED.fee_bps,
			active = EXCLUDED.active,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		st.MarketID, int64(st.YesReserve), int64(st.NoReserve),
		int64(st.TotalShares), int64(st.TotalFees), int64(st.FeeBps), st.Active,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert pool %s: %w", st.MarketID, err)
	}
	return nil
}

// GetByMarket retrieves a market's pool snapshot.
func (s *PoolStore) GetByMarket(ctx context.Context, marketID string) (domain.PoolState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT market_id, yes_reserve, no_reserve, total_shares, total_fees, fee_bps, active, updated_at
		FROM pools WHERE market_id = $1`, marketID)

	var st domain.PoolState
	var yes, no, shares, fees, feeBps int64
	err := row.Scan(&st.MarketID, &yes, &no, &shares, &fees, &feeBps, &st.Active, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PoolState{}, domain.ErrNotFound
		}
		return domain.PoolState{}, fmt.Errorf("postgres: get pool %s: %w", marketID, err)
	}

	st.YesReserve = uint64(yes)
	st.NoReserve = uint64(no)
	st.TotalShares = uint64(shares)
	st.TotalFees = uint64(fees)
	st.FeeBps = uint64(feeBps)
	return st, nil
}

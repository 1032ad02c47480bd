package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// RegistryStore implements domain.RegistryStore using PostgreSQL.
type RegistryStore struct {
	pool *pgxpool.Pool
}

// NewRegistryStore creates a new RegistryStore backed by the given connection pool.
func NewRegistryStore(pool *pgxpool.Pool) *RegistryStore {
	return &RegistryStore{pool: pool}
}

// Upsert writes the registry counters for a market.
func (s *RegistryStore) Upsert(ctx context.Context, st domain.RegistryState) error {
	const query = `
		INSERT INTO registries (market_id, next_order_id, open_orders, total_volume, trade_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (market_id) DO UPDATE SET
			next_order_id = EXCLUDED.next_order_id,
			open_orders = EXCLUDED.open_orders,
			total_volume = EXCLUDED.total_volume,
			trade_count = EXCLUDED.trade_count,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		st.MarketID, int64(st.NextOrderID), int64(st.OpenOrders),
		int64(st.TotalVolume), int64(st.TradeCount),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert registry %s: %w", st.MarketID, err)
	}
	return nil
}

// Get retrieves the registry counters for a market.
func (s *RegistryStore) Get(ctx context.Context, marketID string) (domain.RegistryState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT market_id, next_order_id, open_orders, total_volume, trade_count, updated_at
		FROM registries WHERE market_id = $1`, marketID)

	var st domain.RegistryState
	var nextID, open, volume, trades int64
	err := row.Scan(&st.MarketID, &nextID, &open, &volume, &trades, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RegistryState{}, domain.ErrNotFound
		}
		return domain.RegistryState{}, fmt.Errorf("postgres: get registry %s: %w", marketID, err)
	}

	st.NextOrderID = uint64(nextID)
	st.OpenOrders = uint64(open)
	st.TotalVolume = uint64(volume)
	st.TradeCount = uint64(trades)
	return st, nil
}

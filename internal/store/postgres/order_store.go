package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. Orders are
// upserted because fills and cancels mutate existing rows; they are never
// deleted.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Upsert writes an order row, overwriting the mutable fill/cancel fields on
// conflict.
func (s *OrderStore) Upsert(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			market_id, id, maker, side, outcome,
			price_bps, amount, filled, cancelled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (market_id, id) DO UPDATE SET
			filled = EXCLUDED.filled,
			cancelled = EXCLUDED.cancelled,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		o.MarketID, int64(o.ID), o.Maker, string(o.Side), string(o.Outcome),
		int64(o.PriceBps), int64(o.Amount), int64(o.Filled), o.Cancelled, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert order %s/%d: %w", o.MarketID, o.ID, err)
	}
	return nil
}

const orderSelectCols = `market_id, id, maker, side, outcome,
	price_bps, amount, filled, cancelled, created_at`

func scanOrder(scanner interface{ Scan(dest ...any) error }) (domain.Order, error) {
	var o domain.Order
	var side, outcome string
	var id, priceBps, amount, filled int64

	err := scanner.Scan(
		&o.MarketID, &id, &o.Maker, &side, &outcome,
		&priceBps, &amount, &filled, &o.Cancelled, &o.CreatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.ID = uint64(id)
	o.Side = domain.Side(side)
	o.Outcome = domain.Outcome(outcome)
	o.PriceBps = uint64(priceBps)
	o.Amount = uint64(amount)
	o.Filled = uint64(filled)
	return o, nil
}

func scanOrderRows(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetByID retrieves a single order by its market-scoped id.
func (s *OrderStore) GetByID(ctx context.Context, marketID string, id uint64) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE market_id = $1 AND id = $2`,
		marketID, int64(id))

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s/%d: %w", marketID, id, err)
	}
	return o, nil
}

// ListByMarket returns orders for a market, newest first, with pagination.
func (s *OrderStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE market_id = $1 ORDER BY id DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders by market: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders by market: %w", err)
	}
	return orders, nil
}

// ListAllByMarket returns every order for a market in id order. Used to
// rebuild the in-memory registry on boot and to archive closed markets.
func (s *OrderStore) ListAllByMarket(ctx context.Context, marketID string) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE market_id = $1 ORDER BY id ASC`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all orders: %w", err)
	}
	return orders, nil
}

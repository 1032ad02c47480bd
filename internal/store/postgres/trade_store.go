package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Insert writes an executed trade. Trades are immutable; a conflict on the
// market-scoped id means the row was already flushed and is skipped.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			market_id, id, outcome, buy_order_id, sell_order_id,
			buyer, seller, price_bps, amount, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (market_id, id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.MarketID, int64(t.ID), string(t.Outcome),
		int64(t.BuyOrderID), int64(t.SellOrderID),
		t.Buyer, t.Seller, int64(t.PriceBps), int64(t.Amount), t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s/%d: %w", t.MarketID, t.ID, err)
	}
	return nil
}

const tradeSelectCols = `market_id, id, outcome, buy_order_id, sell_order_id,
	buyer, seller, price_bps, amount, executed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var outcome string
		var id, buyID, sellID, priceBps, amount int64

		err := rows.Scan(
			&t.MarketID, &id, &outcome, &buyID, &sellID,
			&t.Buyer, &t.Seller, &priceBps, &amount, &t.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}

		t.ID = uint64(id)
		t.Outcome = domain.Outcome(outcome)
		t.BuyOrderID = uint64(buyID)
		t.SellOrderID = uint64(sellID)
		t.PriceBps = uint64(priceBps)
		t.Amount = uint64(amount)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListByMarket returns trades for a market, newest first, with pagination.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE market_id = $1 ORDER BY id DESC`
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
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// ListAllByMarket returns every trade for a market in execution order. Used
// by the archiver when a closed market is moved to cold storage.
func (s *TradeStore) ListAllByMarket(ctx context.Context, marketID string) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE market_id = $1 ORDER BY id ASC`,
		marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan all trades: %w", err)
	}
	return trades, nil
}

// DeleteByMarket removes a market's trades after successful archival and
// returns the number of rows deleted.
func (s *TradeStore) DeleteByMarket(ctx context.Context, marketID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE market_id = $1`, marketID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades %s: %w", marketID, err)
	}
	return tag.RowsAffected(), nil
}

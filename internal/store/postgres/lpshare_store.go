package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// LPShareStore implements domain.LPShareStore using PostgreSQL. Shares are
// bearer balances: Credit mints, Debit burns, Transfer moves between
// accounts atomically.
type LPShareStore struct {
	pool *pgxpool.Pool
}

// NewLPShareStore creates a new LPShareStore backed by the given connection pool.
func NewLPShareStore(pool *pgxpool.Pool) *LPShareStore {
	return &LPShareStore{pool: pool}
}

// Credit adds shares to an account's balance, creating the row if needed.
func (s *LPShareStore) Credit(ctx context.Context, marketID, account string, amount uint64) error {
	const query = `
		INSERT INTO lp_shares (market_id, account, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (market_id, account) DO UPDATE SET
			amount = lp_shares.amount + EXCLUDED.amount,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query, marketID, account, int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: credit lp shares %s/%s: %w", marketID, account, err)
	}
	return nil
}

// Debit removes shares from an account's balance. The guard in the WHERE
// clause makes overdraws fail atomically with ErrInvalidLPShare.
func (s *LPShareStore) Debit(ctx context.Context, marketID, account string, amount uint64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE lp_shares SET amount = amount - $3, updated_at = NOW()
		WHERE market_id = $1 AND account = $2 AND amount >= $3`,
		marketID, account, int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: debit lp shares %s/%s: %w", marketID, account, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidLPShare
	}
	return nil
}

// Transfer moves shares between two accounts in one transaction.
func (s *LPShareStore) Transfer(ctx context.Context, marketID, from, to string, amount uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transfer: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE lp_shares SET amount = amount - $3, updated_at = NOW()
		WHERE market_id = $1 AND account = $2 AND amount >= $3`,
		marketID, from, int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: transfer debit %s/%s: %w", marketID, from, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidLPShare
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lp_shares (market_id, account, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (market_id, account) DO UPDATE SET
			amount = lp_shares.amount + EXCLUDED.amount,
			updated_at = NOW()`,
		marketID, to, int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: transfer credit %s/%s: %w", marketID, to, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit transfer: %w", err)
	}
	return nil
}

// Get retrieves an account's share balance; unknown accounts read as zero.
func (s *LPShareStore) Get(ctx context.Context, marketID, account string) (domain.LPShare, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT market_id, account, amount, updated_at
		FROM lp_shares WHERE market_id = $1 AND account = $2`,
		marketID, account)

	var share domain.LPShare
	var amount int64
	err := row.Scan(&share.MarketID, &share.Account, &amount, &share.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LPShare{MarketID: marketID, Account: account}, nil
		}
		return domain.LPShare{}, fmt.Errorf("postgres: get lp shares %s/%s: %w", marketID, account, err)
	}
	share.Amount = uint64(amount)
	return share, nil
}

// ListByMarket returns all non-zero share balances for a market.
func (s *LPShareStore) ListByMarket(ctx context.Context, marketID string) ([]domain.LPShare, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT market_id, account, amount, updated_at
		FROM lp_shares WHERE market_id = $1 AND amount > 0
		ORDER BY account ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list lp shares: %w", err)
	}
	defer rows.Close()

	var shares []domain.LPShare
	for rows.Next() {
		var share domain.LPShare
		var amount int64
		if err := rows.Scan(&share.MarketID, &share.Account, &amount, &share.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan lp share: %w", err)
		}
		share.Amount = uint64(amount)
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

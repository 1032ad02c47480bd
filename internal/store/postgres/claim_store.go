package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// ClaimStore implements domain.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *pgxpool.Pool
}

// NewClaimStore creates a new ClaimStore backed by the given connection pool.
func NewClaimStore(pool *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Upsert writes an account's claim balance. Withdrawn balances are written
// back as zeros rather than deleted so the row keeps its updated_at trail.
func (s *ClaimStore) Upsert(ctx context.Context, b domain.ClaimBalance) error {
	const query = `
		INSERT INTO claims (market_id, account, yes_owed, no_owed, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (market_id, account) DO UPDATE SET
			yes_owed = EXCLUDED.yes_owed,
			no_owed = EXCLUDED.no_owed,
			currency = EXCLUDED.currency,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		b.MarketID, b.Account, int64(b.Yes), int64(b.No), int64(b.Currency))
	if err != nil {
		return fmt.Errorf("postgres: upsert claims %s/%s: %w", b.MarketID, b.Account, err)
	}
	return nil
}

// Get retrieves an account's claim balance; unknown accounts read as zero.
func (s *ClaimStore) Get(ctx context.Context, marketID, account string) (domain.ClaimBalance, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT market_id, account, yes_owed, no_owed, currency, updated_at
		FROM claims WHERE market_id = $1 AND account = $2`,
		marketID, account)

	b, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ClaimBalance{MarketID: marketID, Account: account}, nil
		}
		return domain.ClaimBalance{}, fmt.Errorf("postgres: get claims %s/%s: %w", marketID, account, err)
	}
	return b, nil
}

// ListByAccount returns an account's non-zero claim balances across markets.
func (s *ClaimStore) ListByAccount(ctx context.Context, account string) ([]domain.ClaimBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT market_id, account, yes_owed, no_owed, currency, updated_at
		FROM claims
		WHERE account = $1 AND (yes_owed > 0 OR no_owed > 0 OR currency > 0)
		ORDER BY market_id ASC`, account)
	if err != nil {
		return nil, fmt.Errorf("postgres: list claims: %w", err)
	}
	defer rows.Close()

	var balances []domain.ClaimBalance
	for rows.Next() {
		b, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan claim: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// ListByMarket returns every claim balance for a market, including zeroed
// rows, so the engine can rebuild its ledger on boot.
func (s *ClaimStore) ListByMarket(ctx context.Context, marketID string) ([]domain.ClaimBalance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT market_id, account, yes_owed, no_owed, currency, updated_at
		FROM claims WHERE market_id = $1 ORDER BY account ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list market claims: %w", err)
	}
	defer rows.Close()

	var balances []domain.ClaimBalance
	for rows.Next() {
		b, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market claim: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func scanClaim(scanner interface{ Scan(dest ...any) error }) (domain.ClaimBalance, error) {
	var b domain.ClaimBalance
	var yes, no, currency int64

	err := scanner.Scan(&b.MarketID, &b.Account, &yes, &no, &currency, &b.UpdatedAt)
	if err != nil {
		return domain.ClaimBalance{}, err
	}

	b.Yes = uint64(yes)
	b.No = uint64(no)
	b.Currency = uint64(currency)
	return b, nil
}

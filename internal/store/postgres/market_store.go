package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outcomefi/engine/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Create inserts a new market row.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (id, question, status, volume, closed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Question, string(m.Status), int64(m.Volume), m.ClosedAt, m.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

const marketSelectCols = `id, question, status, volume, closed_at, created_at, updated_at`

func scanMarket(scanner interface{ Scan(dest ...any) error }) (domain.Market, error) {
	var m domain.Market
	var status string
	var volume int64

	err := scanner.Scan(
		&m.ID, &m.Question, &status, &volume,
		&m.ClosedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.Volume = uint64(volume)
	return m, nil
}

// GetByID retrieves a single market by id.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE id = $1`, id)

	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// UpdateStatus transitions a market's lifecycle state. Moving to closed also
// stamps closed_at.
func (s *MarketStore) UpdateStatus(ctx context.Context, id string, status domain.MarketStatus) error {
	var query string
	if status == domain.MarketStatusClosed {
		query = `UPDATE markets SET status = $1, closed_at = NOW(), updated_at = NOW() WHERE id = $2`
	} else {
		query = `UPDATE markets SET status = $1, updated_at = NOW() WHERE id = $2`
	}

	tag, err := s.pool.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update market status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddVolume adds matched trade volume to the market's running counter.
func (s *MarketStore) AddVolume(ctx context.Context, id string, delta uint64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET volume = volume + $1, updated_at = NOW() WHERE id = $2`,
		int64(delta), id)
	if err != nil {
		return fmt.Errorf("postgres: add market volume %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns markets newest first with pagination.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx,
		`SELECT `+marketSelectCols+` FROM markets ORDER BY created_at DESC`,
		nil, opts)
}

// ListByStatus returns markets in the given lifecycle state, newest first.
func (s *MarketStore) ListByStatus(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error) {
	return s.list(ctx,
		`SELECT `+marketSelectCols+` FROM markets WHERE status = $1 ORDER BY created_at DESC`,
		[]any{string(status)}, opts)
}

func (s *MarketStore) list(ctx context.Context, query string, args []any, opts domain.ListOpts) ([]domain.Market, error) {
	argIdx := len(args) + 1
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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

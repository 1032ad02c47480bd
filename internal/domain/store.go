package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists market metadata and the engine's forwarded volume
// counter.
type MarketStore interface {
	Create(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	UpdateStatus(ctx context.Context, id string, status MarketStatus) error
	AddVolume(ctx context.Context, id string, delta uint64) error
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	ListByStatus(ctx context.Context, status MarketStatus, opts ListOpts) ([]Market, error)
}

// OrderStore persists the registry's order ledger. Upsert writes both new
// orders and fill/cancel mutations; rows are never deleted (tombstones).
type OrderStore interface {
	Upsert(ctx context.Context, order Order) error
	GetByID(ctx context.Context, marketID string, id uint64) (Order, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Order, error)
	ListAllByMarket(ctx context.Context, marketID string) ([]Order, error)
}

// RegistryStore persists per-market registry counters so the engine can be
// rebuilt after a restart.
type RegistryStore interface {
	Upsert(ctx context.Context, state RegistryState) error
	Get(ctx context.Context, marketID string) (RegistryState, error)
}

// TradeStore persists executed trades.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Trade, error)
	ListAllByMarket(ctx context.Context, marketID string) ([]Trade, error)
	DeleteByMarket(ctx context.Context, marketID string) (int64, error)
}

// PoolStore persists AMM pool snapshots.
type PoolStore interface {
	Upsert(ctx context.Context, state PoolState) error
	GetByMarket(ctx context.Context, marketID string) (PoolState, error)
}

// LPShareStore tracks per-account LP share balances. Credit and Debit are
// the mint/burn halves; Transfer moves shares between bearers.
type LPShareStore interface {
	Credit(ctx context.Context, marketID, account string, amount uint64) error
	Debit(ctx context.Context, marketID, account string, amount uint64) error
	Transfer(ctx context.Context, marketID, from, to string, amount uint64) error
	Get(ctx context.Context, marketID, account string) (LPShare, error)
	ListByMarket(ctx context.Context, marketID string) ([]LPShare, error)
}

// ClaimStore persists the escrow claim ledger alongside the engine's
// in-memory copy so balances survive restarts.
type ClaimStore interface {
	Upsert(ctx context.Context, balance ClaimBalance) error
	Get(ctx context.Context, marketID, account string) (ClaimBalance, error)
	ListByAccount(ctx context.Context, account string) ([]ClaimBalance, error)
	ListByMarket(ctx context.Context, marketID string) ([]ClaimBalance, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

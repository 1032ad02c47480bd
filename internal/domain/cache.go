package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest AMM-implied prices.
type PriceCache interface {
	SetYesPrice(ctx context.Context, marketID string, priceBps uint64, ts time.Time) error
	GetYesPrice(ctx context.Context, marketID string) (uint64, time.Time, error)
}

// BookCache stores the latest depth snapshot per market and outcome.
type BookCache interface {
	SetSnapshot(ctx context.Context, snap BookSnapshot) error
	GetSnapshot(ctx context.Context, marketID string, outcome Outcome) (BookSnapshot, error)
	Invalidate(ctx context.Context, marketID string) error
}

// MarketCache provides fast market metadata lookups for the is-open gate.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking for background jobs.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out and durable, ordered streams for
// engine events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

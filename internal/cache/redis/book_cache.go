package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/outcomefi/engine/internal/domain"
)

// bookSnapshotTTL bounds staleness when the service misses an invalidation.
const bookSnapshotTTL = 30 * time.Second

// BookCache implements domain.BookCache by storing the full JSON depth
// snapshot per (market, outcome) at key "book:{marketID}:{outcome}". The
// engine rebuilds snapshots cheaply, so the cache holds whole documents
// rather than incremental levels.
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(marketID string, outcome domain.Outcome) string {
	return "book:" + marketID + ":" + string(outcome)
}

// SetSnapshot stores a depth snapshot.
func (bc *BookCache) SetSnapshot(ctx context.Context, snap domain.BookSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal book snapshot: %w", err)
	}
	key := bookKey(snap.MarketID, snap.Outcome)
	if err := bc.rdb.Set(ctx, key, payload, bookSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book snapshot %s: %w", key, err)
	}
	return nil
}

// GetSnapshot retrieves a depth snapshot. It returns domain.ErrNotFound when
// no snapshot is cached.
func (bc *BookCache) GetSnapshot(ctx context.Context, marketID string, outcome domain.Outcome) (domain.BookSnapshot, error) {
	key := bookKey(marketID, outcome)
	payload, err := bc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BookSnapshot{}, domain.ErrNotFound
		}
		return domain.BookSnapshot{}, fmt.Errorf("redis: get book snapshot %s: %w", key, err)
	}

	var snap domain.BookSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: unmarshal book snapshot %s: %w", key, err)
	}
	return snap, nil
}

// Invalidate drops both outcome snapshots for a market after a mutation.
func (bc *BookCache) Invalidate(ctx context.Context, marketID string) error {
	keys := []string{
		bookKey(marketID, domain.OutcomeYes),
		bookKey(marketID, domain.OutcomeNo),
	}
	if err := bc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate book %s: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)

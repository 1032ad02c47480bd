package domain

import "time"

// MarketStatus represents the lifecycle state of a market. Resolution and
// dispute handling live outside this service; the engine only cares whether
// a market still accepts mutations.
type MarketStatus string

const (
	MarketStatusOpen    MarketStatus = "open"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// Market is the slice of the market-lifecycle collaborator the engine
// consumes: identity, open/closed gate, and the forwarded volume counter.
type Market struct {
	ID        string
	Question  string
	Status    MarketStatus
	Volume    uint64 // total matched outcome-token volume, forwarded from trades
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the market accepts order placement and pool
// mutations.
func (m Market) IsOpen() bool {
	return m.Status == MarketStatusOpen
}

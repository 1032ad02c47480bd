package domain

import "time"

// MidPriceDefault is the mid-price fallback when neither side of the book
// has an open order: 50% in basis points.
const MidPriceDefault uint64 = 5000

// BookLevel aggregates the open orders resting at a single price.
type BookLevel struct {
	PriceBps uint64
	Amount   uint64 // sum of remaining size at this price
	Orders   int
}

// BookSnapshot is a full depth view of one outcome's order book. Bids are
// ordered best (highest) first, asks best (lowest) first. A crossed book is
// representable: placement never rejects crossing orders, only matching
// removes them.
type BookSnapshot struct {
	MarketID  string
	Outcome   Outcome
	Bids      []BookLevel
	Asks      []BookLevel
	BestBid   uint64
	BestAsk   uint64
	HasBid    bool
	HasAsk    bool
	SpreadBps uint64 // ask-bid when ask>bid, else 0; meaningless unless HasSpread
	HasSpread bool
	MidBps    uint64
	Timestamp time.Time
}

package domain

import "time"

// Trade records one settled match between a crossing buy and sell order.
// Trade IDs are assigned per market from the registry's trade counter.
type Trade struct {
	ID          uint64
	MarketID    string
	Outcome     Outcome
	BuyOrderID  uint64
	SellOrderID uint64
	Buyer       string
	Seller      string
	PriceBps    uint64 // execution price: the sell order's limit price
	Amount      uint64 // outcome tokens exchanged
	ExecutedAt  time.Time
}

// Notional returns the currency value of the trade at the execution price.
func (t Trade) Notional() uint64 {
	return t.Amount * t.PriceBps / 10000
}

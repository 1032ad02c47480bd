package domain

import "time"

// Side indicates whether an order buys or sells outcome tokens.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Outcome identifies one leg of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Opposite returns the other leg of the market.
func (o Outcome) Opposite() Outcome {
	if o == OutcomeYes {
		return OutcomeNo
	}
	return OutcomeYes
}

// Valid reports whether the outcome is one of the two known legs.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// OrderStatus is derived from an order's fill state; it is never stored on
// the order itself.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a resting limit order in a market's registry. IDs are assigned
// sequentially by the registry and never reused; orders are tombstoned on
// cancel, never deleted.
type Order struct {
	ID        uint64
	MarketID  string
	Maker     string
	Side      Side
	Outcome   Outcome
	PriceBps  uint64 // limit price in basis points, 1..9999
	Amount    uint64 // outcome-token size, fixed at creation
	Filled    uint64 // monotone non-decreasing, never exceeds Amount
	Cancelled bool
	CreatedAt time.Time
}

// Remaining returns the unfilled portion of the order.
func (o Order) Remaining() uint64 {
	return o.Amount - o.Filled
}

// Status derives the lifecycle state from the fill and cancel flags. Cancel
// is only accepted while the order is open, so filled and cancelled cannot
// both apply.
func (o Order) Status() OrderStatus {
	switch {
	case o.Filled == o.Amount:
		return OrderStatusFilled
	case o.Cancelled:
		return OrderStatusCancelled
	default:
		return OrderStatusOpen
	}
}

// OutcomeToken is the engine's view of a presented outcome-token balance:
// which market it belongs to, which leg, and how much. Custody of the token
// itself lives upstream.
type OutcomeToken struct {
	MarketID string
	Outcome  Outcome
	Amount   uint64
}

// RegistryState captures a market registry's counters for persistence and
// introspection.
type RegistryState struct {
	MarketID    string
	NextOrderID uint64
	OpenOrders  uint64
	TotalVolume uint64 // monotone non-decreasing
	TradeCount  uint64 // next trade id
	UpdatedAt   time.Time
}

package domain

import "time"

// EventType labels the fire-and-forget events the engine emits. Each event
// is a complete, replayable snapshot of its operation's inputs and outputs;
// nothing in the engine ever reads them back.
type EventType string

const (
	EventRegistryCreated  EventType = "registry_created"
	EventOrderPlaced      EventType = "order_placed"
	EventOrderCancelled   EventType = "order_cancelled"
	EventTradeExecuted    EventType = "trade_executed"
	EventPoolCreated      EventType = "pool_created"
	EventLiquidityAdded   EventType = "liquidity_added"
	EventLiquidityRemoved EventType = "liquidity_removed"
	EventSwapExecuted     EventType = "swap_executed"
	EventClaimsWithdrawn  EventType = "claims_withdrawn"
)

// LiquidityChange describes one add- or remove-liquidity operation.
type LiquidityChange struct {
	Provider  string
	YesAmount uint64 // deposited on add, returned on remove
	NoAmount  uint64
	Shares    uint64 // minted on add, burned on remove
}

// SwapExecution describes one executed swap against the pool.
type SwapExecution struct {
	Trader    string
	OutcomeIn Outcome
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	MinOut    uint64
}

// Event is the envelope published on the signal bus. Exactly one payload
// field is set, matching the event type. The ID is assigned by the
// publishing layer, not the engine.
type Event struct {
	ID       string    `json:"id,omitempty"`
	Type     EventType `json:"type"`
	MarketID string    `json:"market_id"`
	At       time.Time `json:"at"`

	Order     *Order           `json:"order,omitempty"`
	Remaining uint64           `json:"remaining,omitempty"` // unfilled size at cancel time
	Trade     *Trade           `json:"trade,omitempty"`
	Pool      *PoolState       `json:"pool,omitempty"`
	Liquidity *LiquidityChange `json:"liquidity,omitempty"`
	Swap      *SwapExecution   `json:"swap,omitempty"`
	Claims    *ClaimBalance    `json:"claims,omitempty"`
}

// EventSink receives engine events. Implementations must not block the
// caller and must never fail the triggering operation.
type EventSink interface {
	Emit(evt Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

// Emit calls f(evt).
func (f EventSinkFunc) Emit(evt Event) { f(evt) }

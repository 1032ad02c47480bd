package domain

import "time"

// PoolState is a snapshot of a market's constant-product liquidity pool.
type PoolState struct {
	MarketID    string
	YesReserve  uint64
	NoReserve   uint64
	TotalShares uint64
	TotalFees   uint64 // informational running total of collected swap fees
	FeeBps      uint64
	Active      bool
	UpdatedAt   time.Time
}

// PoolStats is the read-only projection served to clients. YesPriceBps is
// the implied probability of the yes leg in basis points.
type PoolStats struct {
	YesReserve  uint64
	NoReserve   uint64
	TotalShares uint64
	YesPriceBps uint64
	TotalFees   uint64
}

// SwapQuote is a stateless projection of a swap's outcome. A zero quote is
// returned when either reserve or the input amount is zero.
type SwapQuote struct {
	AmountOut uint64
	Fee       uint64
}

// LPShare is a fungible, transferable claim on a pool's reserves. Shares are
// minted on deposit and burned on withdrawal; the store tracks per-account
// balances so transfers are plain balance moves.
type LPShare struct {
	MarketID  string
	Account   string
	Amount    uint64
	UpdatedAt time.Time
}

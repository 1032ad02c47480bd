package domain

import "errors"

// Engine precondition violations. Each is a hard, local abort with no
// partial effect; none are transient.
var (
	ErrMarketClosed          = errors.New("market closed")
	ErrPriceOutOfRange       = errors.New("price out of range")
	ErrAmountTooSmall        = errors.New("amount below protocol minimum")
	ErrAmountTooLarge        = errors.New("amount exceeds arithmetic range")
	ErrMarketIDMismatch      = errors.New("market id mismatch")
	ErrOrderNotFound         = errors.New("order not found")
	ErrNotOrderMaker         = errors.New("caller is not the order maker")
	ErrOrderNotOpen          = errors.New("order not open")
	ErrSideMismatch          = errors.New("order side mismatch")
	ErrOutcomeMismatch       = errors.New("order outcome mismatch")
	ErrNoPriceCross          = errors.New("orders do not cross")
	ErrPoolInactive          = errors.New("pool inactive")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrZeroAmount            = errors.New("zero amount")
	ErrInvalidLPShare        = errors.New("invalid lp share amount")
)

// Infrastructure errors shared by stores, caches, and middleware.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrLockHeld      = errors.New("lock already held")
)

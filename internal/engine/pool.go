package engine

import (
	"sync"
	"time"

	"github.com/outcomefi/engine/internal/domain"
)

// pool is a single market's constant-product AMM. Reserves follow
// yes*no = k, perturbed only by fee-bearing swaps and liquidity changes.
type pool struct {
	mu sync.Mutex

	marketID    string
	yesReserve  uint64
	noReserve   uint64
	totalShares uint64
	totalFees   uint64
	feeBps      uint64
	active      bool
}

func newPool(marketID string, feeBps uint64) *pool {
	return &pool{
		marketID: marketID,
		feeBps:   feeBps,
		active:   true,
	}
}

// addLiquidity deposits both legs and mints LP shares. The first deposit
// mints floor(sqrt(yesIn*noIn)); later deposits mint the smaller of the two
// proportional claims, protecting existing holders against imbalanced
// deposits.
func (p *pool) addLiquidity(yesIn, noIn, minLiquidity uint64) (uint64, error) {
	if !p.active {
		return 0, domain.ErrPoolInactive
	}
	if yesIn == 0 || noIn == 0 {
		return 0, domain.ErrZeroAmount
	}
	if yesIn > MaxAmount || noIn > MaxAmount ||
		p.yesReserve+yesIn > maxReserve || p.noReserve+noIn > maxReserve {
		return 0, domain.ErrAmountTooLarge
	}

	var minted uint64
	if p.totalShares == 0 {
		minted = seedShares(yesIn, noIn)
	} else {
		fromYes, err := mulDiv(yesIn, p.totalShares, p.yesReserve)
		if err != nil {
			return 0, err
		}
		fromNo, err := mulDiv(noIn, p.totalShares, p.noReserve)
		if err != nil {
			return 0, err
		}
		minted = fromYes
		if fromNo < minted {
			minted = fromNo
		}
	}
	if minted < minLiquidity {
		return 0, domain.ErrInsufficientLiquidity
	}

	p.yesReserve += yesIn
	p.noReserve += noIn
	p.totalShares += minted
	return minted, nil
}

// removeLiquidity burns lpAmount shares and pays out the proportional slice
// of each reserve. Integer truncation only ever rounds against the
// withdrawer.
func (p *pool) removeLiquidity(lpAmount uint64) (yesOut, noOut uint64, err error) {
	if !p.active {
		return 0, 0, domain.ErrPoolInactive
	}
	if lpAmount == 0 || lpAmount > p.totalShares {
		return 0, 0, domain.ErrInvalidLPShare
	}

	yesOut, err = mulDiv(lpAmount, p.yesReserve, p.totalShares)
	if err != nil {
		return 0, 0, err
	}
	noOut, err = mulDiv(lpAmount, p.noReserve, p.totalShares)
	if err != nil {
		return 0, 0, err
	}

	p.yesReserve -= yesOut
	p.noReserve -= noOut
	p.totalShares -= lpAmount
	return yesOut, noOut, nil
}

// swap trades amountIn of one leg for the other at the fee-adjusted
// constant-product price. The output can approach but never fully drain
// the opposite reserve.
func (p *pool) swap(outcomeIn domain.Outcome, amountIn, minOut uint64) (amountOut, fee uint64, err error) {
	if !p.active {
		return 0, 0, domain.ErrPoolInactive
	}
	if amountIn == 0 {
		return 0, 0, domain.ErrZeroAmount
	}
	if amountIn > MaxAmount {
		return 0, 0, domain.ErrAmountTooLarge
	}

	reserveIn, reserveOut := p.reserves(outcomeIn)
	if reserveIn+amountIn > maxReserve {
		return 0, 0, domain.ErrAmountTooLarge
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, 0, domain.ErrInsufficientLiquidity
	}

	amountOut = swapOutput(reserveIn, reserveOut, amountIn, p.feeBps)
	if amountOut < minOut {
		return 0, 0, domain.ErrSlippageExceeded
	}
	if amountOut >= reserveOut {
		return 0, 0, domain.ErrInsufficientLiquidity
	}

	fee, err = mulDiv(amountIn, p.feeBps, bpsDenom)
	if err != nil {
		return 0, 0, err
	}

	if outcomeIn == domain.OutcomeYes {
		p.yesReserve += amountIn
		p.noReserve -= amountOut
	} else {
		p.noReserve += amountIn
		p.yesReserve -= amountOut
	}
	p.totalFees += fee
	return amountOut, fee, nil
}

// quote projects a swap without mutating anything. Identical formula to
// swap; a zero quote is returned when the pool or input is empty.
func (p *pool) quote(outcomeIn domain.Outcome, amountIn uint64) domain.SwapQuote {
	reserveIn, reserveOut := p.reserves(outcomeIn)
	if reserveIn == 0 || reserveOut == 0 || amountIn == 0 {
		return domain.SwapQuote{}
	}
	out := swapOutput(reserveIn, reserveOut, amountIn, p.feeBps)
	fee, err := mulDiv(amountIn, p.feeBps, bpsDenom)
	if err != nil {
		return domain.SwapQuote{}
	}
	return domain.SwapQuote{AmountOut: out, Fee: fee}
}

func (p *pool) reserves(outcomeIn domain.Outcome) (reserveIn, reserveOut uint64) {
	if outcomeIn == domain.OutcomeYes {
		return p.yesReserve, p.noReserve
	}
	return p.noReserve, p.yesReserve
}

// stats reports the public pool projection. The implied yes price is
// noReserve/(yesReserve+noReserve) in basis points; an unseeded pool
// reports 50%.
func (p *pool) stats() domain.PoolStats {
	s := domain.PoolStats{
		YesReserve:  p.yesReserve,
		NoReserve:   p.noReserve,
		TotalShares: p.totalShares,
		TotalFees:   p.totalFees,
		YesPriceBps: domain.MidPriceDefault,
	}
	if total := p.yesReserve + p.noReserve; total > 0 {
		// Reserves are capped at maxReserve so the sum cannot wrap.
		price, err := mulDiv(p.noReserve, bpsDenom, total)
		if err == nil {
			s.YesPriceBps = price
		}
	}
	return s
}

func (p *pool) state(now time.Time) domain.PoolState {
	return domain.PoolState{
		MarketID:    p.marketID,
		YesReserve:  p.yesReserve,
		NoReserve:   p.noReserve,
		TotalShares: p.totalShares,
		TotalFees:   p.totalFees,
		FeeBps:      p.feeBps,
		Active:      p.active,
		UpdatedAt:   now,
	}
}

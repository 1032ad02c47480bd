package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomefi/engine/internal/domain"
)

const testMinLiquidity = 10

func seededPool(t *testing.T, yes, no uint64) *pool {
	t.Helper()
	p := newPool("m1", 30)
	_, err := p.addLiquidity(yes, no, testMinLiquidity)
	require.NoError(t, err)
	return p
}

func TestPoolSeedLiquidity(t *testing.T) {
	p := newPool("m1", 30)

	minted, err := p.addLiquidity(1000, 1000, testMinLiquidity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), minted)
	assert.Equal(t, uint64(1000), p.yesReserve)
	assert.Equal(t, uint64(1000), p.noReserve)
	assert.Equal(t, uint64(1000), p.totalShares)
}

func TestPoolProportionalLiquidity(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	// Imbalanced deposit mints the smaller proportional claim.
	minted, err := p.addLiquidity(500, 2000, testMinLiquidity)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), minted)
	assert.Equal(t, uint64(1500), p.yesReserve)
	assert.Equal(t, uint64(3000), p.noReserve)
	assert.Equal(t, uint64(1500), p.totalShares)
}

func TestPoolAddLiquidityRejections(t *testing.T) {
	p := newPool("m1", 30)

	_, err := p.addLiquidity(0, 100, testMinLiquidity)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)
	_, err = p.addLiquidity(100, 0, testMinLiquidity)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, err = p.addLiquidity(MaxAmount+1, 100, testMinLiquidity)
	assert.ErrorIs(t, err, domain.ErrAmountTooLarge)

	// Seed below the minimum mint.
	_, err = p.addLiquidity(3, 3, testMinLiquidity)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	p.active = false
	_, err = p.addLiquidity(1000, 1000, testMinLiquidity)
	assert.ErrorIs(t, err, domain.ErrPoolInactive)
}

func TestPoolRemoveLiquidity(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	yesOut, noOut, err := p.removeLiquidity(400)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), yesOut)
	assert.Equal(t, uint64(400), noOut)
	assert.Equal(t, uint64(600), p.yesReserve)
	assert.Equal(t, uint64(600), p.noReserve)
	assert.Equal(t, uint64(600), p.totalShares)
}

func TestPoolRemoveLiquidityFullDrain(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	yesOut, noOut, err := p.removeLiquidity(1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), yesOut)
	assert.Equal(t, uint64(1000), noOut)
	assert.Equal(t, uint64(0), p.totalShares)

	// A drained pool can be reseeded.
	minted, err := p.addLiquidity(2000, 2000, testMinLiquidity)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), minted)
}

func TestPoolImbalancedDepositRoundTrip(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	// The imbalanced leg mints only the smaller proportional claim, so
	// withdrawing the exact mint can never return more than was deposited.
	minted, err := p.addLiquidity(500, 2000, testMinLiquidity)
	require.NoError(t, err)
	require.Equal(t, uint64(500), minted)

	yesOut, noOut, err := p.removeLiquidity(minted)
	require.NoError(t, err)
	assert.LessOrEqual(t, yesOut, uint64(500))
	assert.LessOrEqual(t, noOut, uint64(2000))

	// The proportional share covers a third of the enlarged pool: the yes
	// leg comes back whole, half the excess no leg stays behind.
	assert.Equal(t, uint64(500), yesOut)
	assert.Equal(t, uint64(1000), noOut)
	assert.Equal(t, uint64(1000), p.yesReserve)
	assert.Equal(t, uint64(2000), p.noReserve)
	assert.Equal(t, uint64(1000), p.totalShares)
}

func TestPoolRemoveLiquidityRejections(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	_, _, err := p.removeLiquidity(0)
	assert.ErrorIs(t, err, domain.ErrInvalidLPShare)
	_, _, err = p.removeLiquidity(1001)
	assert.ErrorIs(t, err, domain.ErrInvalidLPShare)

	p.active = false
	_, _, err = p.removeLiquidity(100)
	assert.ErrorIs(t, err, domain.ErrPoolInactive)
}

func TestPoolSwap(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	out, fee, err := p.swap(domain.OutcomeYes, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), out)
	assert.Equal(t, uint64(0), fee) // 100 * 30 / 10000 floors to zero
	assert.Equal(t, uint64(1100), p.yesReserve)
	assert.Equal(t, uint64(910), p.noReserve)

	// The other direction moves the opposite reserves.
	out, fee, err = p.swap(domain.OutcomeNo, 10000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), fee)
	assert.Equal(t, uint64(1100)-out, p.yesReserve)
	assert.Equal(t, uint64(10910), p.noReserve)
	assert.Equal(t, uint64(30), p.totalFees)
}

func TestPoolSwapSlippageGuard(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	_, _, err := p.swap(domain.OutcomeYes, 100, 91)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)

	// minOut exactly at the output passes.
	out, _, err := p.swap(domain.OutcomeYes, 100, 90)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), out)
}

func TestPoolSwapRejections(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	_, _, err := p.swap(domain.OutcomeYes, 0, 0)
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	_, _, err = p.swap(domain.OutcomeYes, MaxAmount+1, 0)
	assert.ErrorIs(t, err, domain.ErrAmountTooLarge)

	empty := newPool("m2", 30)
	_, _, err = empty.swap(domain.OutcomeYes, 100, 0)
	assert.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	p.active = false
	_, _, err = p.swap(domain.OutcomeYes, 100, 0)
	assert.ErrorIs(t, err, domain.ErrPoolInactive)
}

func TestPoolQuoteMatchesSwap(t *testing.T) {
	p := seededPool(t, 1000, 1000)

	q := p.quote(domain.OutcomeYes, 100)
	out, fee, err := p.swap(domain.OutcomeYes, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, q.AmountOut, out)
	assert.Equal(t, q.Fee, fee)
}

func TestPoolQuoteEmpty(t *testing.T) {
	p := newPool("m1", 30)
	assert.Equal(t, domain.SwapQuote{}, p.quote(domain.OutcomeYes, 100))

	seeded := seededPool(t, 1000, 1000)
	assert.Equal(t, domain.SwapQuote{}, seeded.quote(domain.OutcomeYes, 0))
}

func TestPoolStats(t *testing.T) {
	empty := newPool("m1", 30)
	assert.Equal(t, uint64(domain.MidPriceDefault), empty.stats().YesPriceBps)

	p := seededPool(t, 1000, 3000)
	s := p.stats()
	// yes price = noReserve / (yes + no) = 3000/4000 = 75%
	assert.Equal(t, uint64(7500), s.YesPriceBps)
	assert.Equal(t, uint64(1000), s.YesReserve)
	assert.Equal(t, uint64(3000), s.NoReserve)
}

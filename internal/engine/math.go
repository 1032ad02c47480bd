// Package engine implements the per-market trading core: a limit order
// registry with explicit matching, a constant-product liquidity pool, and
// the escrow claim ledger both settle into. All state is in-memory and
// guarded per market; persistence is layered on top by the service package.
package engine

import (
	"math/big"

	"github.com/outcomefi/engine/internal/domain"
)

// MaxAmount bounds every externally supplied amount. It keeps single
// multiplications by basis-point factors inside uint64 range; everything
// wider runs through big.Int below.
const MaxAmount uint64 = 1 << 50

// bpsDenom is the basis-point scale: 10000 = 100%.
const bpsDenom = 10000

// maxReserve caps a pool reserve so that yesReserve+noReserve and
// reserve*10000 stay clear of uint64 wraparound.
const maxReserve uint64 = 1 << 60

// mulDiv returns floor(a*b/den) computed in arbitrary precision. It returns
// ErrAmountTooLarge when the quotient does not fit in uint64; den must be
// non-zero.
func mulDiv(a, b, den uint64) (uint64, error) {
	p := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	p.Quo(p, new(big.Int).SetUint64(den))
	if !p.IsUint64() {
		return 0, domain.ErrAmountTooLarge
	}
	return p.Uint64(), nil
}

// integerSqrt returns floor(sqrt(x)) for x >= 0 using the Newton-Babylonian
// iteration: z=(x+1)/2, y=x; while z<y { y=z; z=(x/z+z)/2 }.
func integerSqrt(x *big.Int) *big.Int {
	if x.Sign() == 0 {
		return new(big.Int)
	}
	one := big.NewInt(1)
	two := big.NewInt(2)

	z := new(big.Int).Add(x, one)
	z.Quo(z, two)
	y := new(big.Int).Set(x)

	for z.Cmp(y) < 0 {
		y.Set(z)
		t := new(big.Int).Quo(x, z)
		t.Add(t, z)
		z = t.Quo(t, two)
	}
	return y
}

// seedShares computes the initial LP mint floor(sqrt(yesIn*noIn)). The
// product exceeds 64 bits for large deposits, so the whole computation runs
// on big.Int; the root of a 128-bit product always fits in uint64.
func seedShares(yesIn, noIn uint64) uint64 {
	p := new(big.Int).Mul(new(big.Int).SetUint64(yesIn), new(big.Int).SetUint64(noIn))
	return integerSqrt(p).Uint64()
}

// swapOutput applies the fee-adjusted constant-product formula:
//
//	inputWithFee = amountIn * (10000 - feeBps)
//	amountOut    = floor(reserveOut*inputWithFee / (reserveIn*10000 + inputWithFee))
//
// The fee is applied multiplicatively before the division so it accrues to
// the pool. Both intermediates can exceed 64 bits, hence big.Int. The
// returned output is strictly less than reserveOut by construction of the
// formula, so it always fits in uint64.
func swapOutput(reserveIn, reserveOut, amountIn, feeBps uint64) uint64 {
	inWithFee := new(big.Int).Mul(
		new(big.Int).SetUint64(amountIn),
		new(big.Int).SetUint64(bpsDenom-feeBps),
	)
	num := new(big.Int).Mul(new(big.Int).SetUint64(reserveOut), inWithFee)
	den := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveIn),
		big.NewInt(bpsDenom),
	)
	den.Add(den, inWithFee)
	num.Quo(num, den)
	return num.Uint64()
}

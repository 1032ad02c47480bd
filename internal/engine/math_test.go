package engine

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomefi/engine/internal/domain"
)

func TestMulDiv(t *testing.T) {
	cases := []struct {
		name      string
		a, b, den uint64
		want      uint64
	}{
		{"exact", 600, 10000, 6000, 1000},
		{"floors", 100, 30, 10000, 0},
		{"identity", 12345, 1, 1, 12345},
		{"wide intermediate", math.MaxUint64 / 2, 2, 2, math.MaxUint64 / 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mulDiv(tc.a, tc.b, tc.den)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMulDivOverflow(t *testing.T) {
	_, err := mulDiv(math.MaxUint64, math.MaxUint64, 1)
	assert.ErrorIs(t, err, domain.ErrAmountTooLarge)
}

func TestIntegerSqrtLaw(t *testing.T) {
	// floor semantics: s*s <= x < (s+1)*(s+1)
	inputs := []uint64{0, 1, 2, 3, 4, 8, 9, 10, 99, 100, 1_000_000, 1 << 40, math.MaxUint64}
	for _, x := range inputs {
		bx := new(big.Int).SetUint64(x)
		s := integerSqrt(bx)

		lo := new(big.Int).Mul(s, s)
		require.LessOrEqual(t, lo.Cmp(bx), 0, "sqrt(%d) too big", x)

		s1 := new(big.Int).Add(s, big.NewInt(1))
		hi := new(big.Int).Mul(s1, s1)
		require.Greater(t, hi.Cmp(bx), 0, "sqrt(%d) too small", x)
	}
}

func TestIntegerSqrtExact(t *testing.T) {
	assert.Equal(t, int64(1000), integerSqrt(big.NewInt(1_000_000)).Int64())
	assert.Equal(t, int64(3), integerSqrt(big.NewInt(15)).Int64())
}

func TestSeedShares(t *testing.T) {
	assert.Equal(t, uint64(1000), seedShares(1000, 1000))
	assert.Equal(t, uint64(1000), seedShares(500, 2000))

	// 128-bit product still yields a uint64 root.
	got := seedShares(1<<50, 1<<50)
	assert.Equal(t, uint64(1)<<50, got)
}

func TestSwapOutput(t *testing.T) {
	// 1000/1000 reserves, 30 bps fee, 100 in:
	// inWithFee = 997000, out = 997000000 / 10997000 = 90
	assert.Equal(t, uint64(90), swapOutput(1000, 1000, 100, 30))

	// Zero fee reduces to plain constant product.
	assert.Equal(t, uint64(90), swapOutput(1000, 1000, 100, 0)) // 100000/1100 = 90

	// Output never reaches the opposite reserve.
	out := swapOutput(1000, 1000, 1<<40, 30)
	assert.Less(t, out, uint64(1000))
}

func TestSwapOutputPreservesProduct(t *testing.T) {
	// After applying a swap the reserve product never decreases.
	reserveIn, reserveOut := uint64(5000), uint64(3000)
	for _, in := range []uint64{1, 10, 100, 2500, 100000} {
		out := swapOutput(reserveIn, reserveOut, in, 30)
		before := new(big.Int).Mul(new(big.Int).SetUint64(reserveIn), new(big.Int).SetUint64(reserveOut))
		after := new(big.Int).Mul(
			new(big.Int).SetUint64(reserveIn+in),
			new(big.Int).SetUint64(reserveOut-out),
		)
		require.GreaterOrEqual(t, after.Cmp(before), 0, "k decreased for in=%d", in)
	}
}

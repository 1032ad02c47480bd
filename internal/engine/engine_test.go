package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomefi/engine/internal/domain"
)

type stubGate struct {
	open bool
	err  error
}

func (g stubGate) IsOpen(ctx context.Context, marketID string) (bool, error) {
	return g.open, g.err
}

type eventRecorder struct {
	events []domain.Event
}

func (r *eventRecorder) Emit(evt domain.Event) { r.events = append(r.events, evt) }

func (r *eventRecorder) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	e := New(stubGate{open: true}, rec, DefaultParams())
	require.NoError(t, e.CreateMarket(context.Background(), "m1"))
	return e, rec
}

func yesToken(amount uint64) domain.OutcomeToken {
	return domain.OutcomeToken{MarketID: "m1", Outcome: domain.OutcomeYes, Amount: amount}
}

func TestEngineCreateMarket(t *testing.T) {
	e, rec := newTestEngine(t)

	assert.ErrorIs(t, e.CreateMarket(context.Background(), "m1"), domain.ErrAlreadyExists)
	assert.Equal(t,
		[]domain.EventType{domain.EventRegistryCreated, domain.EventPoolCreated},
		rec.types())

	_, err := e.RegistryState("unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnginePlaceBuyDerivesAmount(t *testing.T) {
	e, rec := newTestEngine(t)
	ctx := context.Background()

	// Paying 600 at 60% buys floor(600*10000/6000) = 1000 tokens.
	o, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 6000, 600)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), o.ID)
	assert.Equal(t, uint64(1000), o.Amount)
	assert.Equal(t, domain.SideBuy, o.Side)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.EventOrderPlaced, last.Type)
	require.NotNil(t, last.Order)
	assert.Equal(t, o.ID, last.Order.ID)
}

func TestEnginePlaceBuyNotionalNeverExceedsPaid(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	for _, tc := range []struct{ price, paid uint64 }{
		{1, 10}, {3333, 1000}, {7777, 12345}, {9999, 999999},
	} {
		o, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, tc.price, tc.paid)
		require.NoError(t, err)
		notional, err := mulDiv(o.Amount, tc.price, 10000)
		require.NoError(t, err)
		assert.LessOrEqual(t, notional, tc.paid, "price=%d paid=%d", tc.price, tc.paid)
	}
}

func TestEnginePlaceValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 0, 600)
	assert.ErrorIs(t, err, domain.ErrPriceOutOfRange)
	_, err = e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 10000, 600)
	assert.ErrorIs(t, err, domain.ErrPriceOutOfRange)

	_, err = e.PlaceBuy(ctx, "m1", "alice", domain.Outcome("maybe"), 5000, 600)
	assert.ErrorIs(t, err, domain.ErrOutcomeMismatch)

	// 5 paid at 99.99% derives 5 tokens, below the minimum size.
	_, err = e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 9999, 5)
	assert.ErrorIs(t, err, domain.ErrAmountTooSmall)
	_, err = e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 5000, 0)
	assert.ErrorIs(t, err, domain.ErrAmountTooSmall)

	_, err = e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 5000, MaxAmount+1)
	assert.ErrorIs(t, err, domain.ErrAmountTooLarge)

	tok := domain.OutcomeToken{MarketID: "other", Outcome: domain.OutcomeYes, Amount: 100}
	_, err = e.PlaceSell(ctx, "m1", "bob", 5000, tok)
	assert.ErrorIs(t, err, domain.ErrMarketIDMismatch)
}

func TestEngineClosedMarketGate(t *testing.T) {
	rec := &eventRecorder{}
	e := New(stubGate{open: false}, rec, DefaultParams())
	ctx := context.Background()
	require.NoError(t, e.CreateMarket(ctx, "m1"))

	_, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 5000, 600)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
	_, err = e.PlaceSell(ctx, "m1", "bob", 5000, yesToken(100))
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
	_, err = e.AddLiquidity(ctx, "m1", "lp", 1000, 1000)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
	_, _, err = e.RemoveLiquidity(ctx, "m1", "lp", 100)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
	_, err = e.Swap(ctx, "m1", "alice", yesToken(100), 0)
	assert.ErrorIs(t, err, domain.ErrMarketClosed)
}

func TestEngineCancelAndWithdrawBypassGate(t *testing.T) {
	ctx := context.Background()
	gate := &stubGate{open: true}
	rec := &eventRecorder{}
	e := New(gate, rec, DefaultParams())
	require.NoError(t, e.CreateMarket(ctx, "m1"))

	o, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 5000, 600)
	require.NoError(t, err)
	sell, err := e.PlaceSell(ctx, "m1", "bob", 5000, yesToken(1500))
	require.NoError(t, err)
	_, err = e.Match(ctx, "m1", o.ID, sell.ID)
	require.NoError(t, err)

	// Closing the market leaves cancel and withdraw available.
	gate.open = false

	_, err = e.Cancel(ctx, "m1", sell.ID, "bob")
	require.NoError(t, err)
	claims, err := e.Withdraw(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1200), claims.Yes)
}

func TestEngineMatchCreditsClaims(t *testing.T) {
	e, rec := newTestEngine(t)
	ctx := context.Background()

	buy, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 5000, 500)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), buy.Amount)
	sell, err := e.PlaceSell(ctx, "m1", "bob", 5000, yesToken(1000))
	require.NoError(t, err)

	trade, err := e.Match(ctx, "m1", buy.ID, sell.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), trade.ID)
	assert.Equal(t, uint64(1000), trade.Amount)
	assert.Equal(t, uint64(5000), trade.PriceBps)

	// Buyer is owed the tokens, seller the notional at the execution price.
	buyerClaims, err := e.Claims("m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), buyerClaims.Yes)
	assert.Equal(t, uint64(0), buyerClaims.Currency)

	sellerClaims, err := e.Claims("m1", "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), sellerClaims.Currency)
	assert.Equal(t, uint64(0), sellerClaims.Yes)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.EventTradeExecuted, last.Type)
	require.NotNil(t, last.Trade)
	assert.Equal(t, trade.ID, last.Trade.ID)
}

func TestEngineWithdraw(t *testing.T) {
	e, rec := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Withdraw(ctx, "m1", "alice")
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	buy, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 5000, 500)
	require.NoError(t, err)
	sell, err := e.PlaceSell(ctx, "m1", "bob", 5000, yesToken(1000))
	require.NoError(t, err)
	_, err = e.Match(ctx, "m1", buy.ID, sell.ID)
	require.NoError(t, err)

	owed, err := e.Withdraw(ctx, "m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), owed.Yes)

	// Withdrawal zeroes the balance; a second attempt finds nothing.
	_, err = e.Withdraw(ctx, "m1", "alice")
	assert.ErrorIs(t, err, domain.ErrZeroAmount)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.EventClaimsWithdrawn, last.Type)
	require.NotNil(t, last.Claims)
	assert.Equal(t, uint64(1000), last.Claims.Yes)
}

func TestEngineQueries(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	buy, err := e.PlaceBuy(ctx, "m1", "alice", domain.OutcomeYes, 4000, 400)
	require.NoError(t, err)
	_, err = e.PlaceSell(ctx, "m1", "bob", 4500, yesToken(500))
	require.NoError(t, err)

	got, err := e.Order("m1", buy.ID)
	require.NoError(t, err)
	assert.Equal(t, buy.ID, got.ID)
	_, err = e.Order("m1", 99)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	best, ok, err := e.BestBuy("m1", domain.OutcomeYes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, buy.ID, best.ID)

	_, ok, err = e.BestSell("m1", domain.OutcomeNo)
	require.NoError(t, err)
	assert.False(t, ok)

	snap, err := e.Depth("m1", domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, uint64(4000), snap.BestBid)
	assert.Equal(t, uint64(4500), snap.BestAsk)
	assert.Equal(t, uint64(500), snap.SpreadBps)
	assert.Equal(t, uint64(4250), snap.MidBps)

	st, err := e.RegistryState("m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.NextOrderID)
	assert.Equal(t, uint64(2), st.OpenOrders)
}

func TestEngineLiquidityLifecycle(t *testing.T) {
	e, rec := newTestEngine(t)
	ctx := context.Background()

	minted, err := e.AddLiquidity(ctx, "m1", "lp", 1000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), minted)

	yesOut, noOut, err := e.RemoveLiquidity(ctx, "m1", "lp", 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), yesOut)
	assert.Equal(t, uint64(400), noOut)

	stats, err := e.PoolStats("m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(600), stats.YesReserve)
	assert.Equal(t, uint64(600), stats.TotalShares)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.EventLiquidityRemoved, last.Type)
	require.NotNil(t, last.Liquidity)
	assert.Equal(t, uint64(400), last.Liquidity.Shares)
}

func TestEngineSwapCreditsOppositeLeg(t *testing.T) {
	e, rec := newTestEngine(t)
	ctx := context.Background()

	_, err := e.AddLiquidity(ctx, "m1", "lp", 1000, 1000)
	require.NoError(t, err)

	out, err := e.Swap(ctx, "m1", "alice", yesToken(100), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), out)

	claims, err := e.Claims("m1", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(90), claims.No)
	assert.Equal(t, uint64(0), claims.Yes)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.EventSwapExecuted, last.Type)
	require.NotNil(t, last.Swap)
	assert.Equal(t, uint64(100), last.Swap.AmountIn)
	assert.Equal(t, uint64(90), last.Swap.AmountOut)
}

func TestEngineSwapTokenValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddLiquidity(ctx, "m1", "lp", 1000, 1000)
	require.NoError(t, err)

	tok := domain.OutcomeToken{MarketID: "other", Outcome: domain.OutcomeYes, Amount: 100}
	_, err = e.Swap(ctx, "m1", "alice", tok, 0)
	assert.ErrorIs(t, err, domain.ErrMarketIDMismatch)

	tok = domain.OutcomeToken{MarketID: "m1", Outcome: domain.Outcome("maybe"), Amount: 100}
	_, err = e.Swap(ctx, "m1", "alice", tok, 0)
	assert.ErrorIs(t, err, domain.ErrOutcomeMismatch)

	_, err = e.Swap(ctx, "m1", "alice", yesToken(100), 91)
	assert.ErrorIs(t, err, domain.ErrSlippageExceeded)
}

func TestEngineQuote(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddLiquidity(ctx, "m1", "lp", 1000, 1000)
	require.NoError(t, err)

	q, err := e.Quote("m1", domain.OutcomeYes, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), q.AmountOut)

	// Quoting mutates nothing.
	stats, err := e.PoolStats("m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), stats.YesReserve)
	assert.Equal(t, uint64(1000), stats.NoReserve)
}

func TestEngineRestore(t *testing.T) {
	rec := &eventRecorder{}
	e := New(stubGate{open: true}, rec, DefaultParams())
	ctx := context.Background()

	orders := []domain.Order{
		{ID: 0, MarketID: "m1", Maker: "alice", Side: domain.SideBuy, Outcome: domain.OutcomeYes, PriceBps: 4000, Amount: 100},
		{ID: 1, MarketID: "m1", Maker: "bob", Side: domain.SideSell, Outcome: domain.OutcomeYes, PriceBps: 4500, Amount: 200, Cancelled: true},
		{ID: 2, MarketID: "m1", Maker: "carol", Side: domain.SideSell, Outcome: domain.OutcomeYes, PriceBps: 4600, Amount: 300, Filled: 300},
	}
	state := domain.RegistryState{MarketID: "m1", NextOrderID: 3, OpenOrders: 1, TotalVolume: 300, TradeCount: 1}
	poolState := domain.PoolState{MarketID: "m1", YesReserve: 1000, NoReserve: 1000, TotalShares: 1000, FeeBps: 30, Active: true}
	claims := []domain.ClaimBalance{{MarketID: "m1", Account: "carol", Currency: 138}}

	require.NoError(t, e.Restore("m1", state, orders, poolState, claims))
	assert.ErrorIs(t, e.Restore("m1", state, nil, poolState, nil), domain.ErrAlreadyExists)
	assert.Empty(t, rec.events)

	// Only the open order is back on the book.
	best, ok, err := e.BestBuy("m1", domain.OutcomeYes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), best.ID)
	_, ok, err = e.BestSell("m1", domain.OutcomeYes)
	require.NoError(t, err)
	assert.False(t, ok)

	// Tombstones remain queryable and id assignment resumes where it left off.
	tomb, err := e.Order("m1", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, tomb.Status())

	next, err := e.PlaceBuy(ctx, "m1", "dave", domain.OutcomeYes, 5000, 600)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next.ID)

	stats, err := e.PoolStats("m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), stats.YesReserve)

	carol, err := e.Claims("m1", "carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(138), carol.Currency)
}

package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outcomefi/engine/internal/domain"
)

func testOrder(side domain.Side, outcome domain.Outcome, price, amount uint64, maker string) domain.Order {
	return domain.Order{
		MarketID: "m1",
		Maker:    maker,
		Side:     side,
		Outcome:  outcome,
		PriceBps: price,
		Amount:   amount,
	}
}

func TestBookPlaceAssignsSequentialIDs(t *testing.T) {
	b := newBook("m1")

	o1 := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 5000, 100, "alice"))
	o2 := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 6000, 100, "bob"))

	assert.Equal(t, uint64(0), o1.ID)
	assert.Equal(t, uint64(1), o2.ID)
	assert.Equal(t, uint64(2), b.nextOrderID)
	assert.Equal(t, uint64(2), b.openCount)
	assert.Equal(t, domain.OrderStatusOpen, o1.Status())
}

func TestBookCancel(t *testing.T) {
	b := newBook("m1")
	o := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 5000, 100, "alice"))

	_, err := b.cancel(99, "alice")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = b.cancel(o.ID, "mallory")
	assert.ErrorIs(t, err, domain.ErrNotOrderMaker)

	cancelled, err := b.cancel(o.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status())
	assert.Equal(t, uint64(100), cancelled.Remaining())
	assert.Equal(t, uint64(0), b.openCount)

	// Tombstone stays addressable but cannot be cancelled again.
	_, err = b.cancel(o.ID, "alice")
	assert.ErrorIs(t, err, domain.ErrOrderNotOpen)
	_, ok := b.orders[o.ID]
	assert.True(t, ok)
}

func TestBookMatchFullFill(t *testing.T) {
	b := newBook("m1")
	now := time.Now()

	buy := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 5000, 1000, "alice"))
	sell := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5000, 1000, "bob"))

	trade, err := b.match(buy.ID, sell.ID, now)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), trade.ID)
	assert.Equal(t, uint64(1000), trade.Amount)
	assert.Equal(t, uint64(5000), trade.PriceBps)
	assert.Equal(t, "alice", trade.Buyer)
	assert.Equal(t, "bob", trade.Seller)
	assert.Equal(t, uint64(1000), b.totalVolume)
	assert.Equal(t, uint64(1), b.tradeCount)
	assert.Equal(t, uint64(0), b.openCount)

	assert.Equal(t, domain.OrderStatusFilled, b.orders[buy.ID].Status())
	assert.Equal(t, domain.OrderStatusFilled, b.orders[sell.ID].Status())
}

func TestBookMatchPartialFillAndPriceImprovement(t *testing.T) {
	b := newBook("m1")

	buy := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 6000, 1000, "alice"))
	sell := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5500, 400, "bob"))

	trade, err := b.match(buy.ID, sell.ID, time.Now())
	require.NoError(t, err)

	// Execution at the sell limit: the buyer keeps the improvement.
	assert.Equal(t, uint64(5500), trade.PriceBps)
	assert.Equal(t, uint64(400), trade.Amount)

	assert.Equal(t, uint64(600), b.orders[buy.ID].Remaining())
	assert.Equal(t, domain.OrderStatusOpen, b.orders[buy.ID].Status())
	assert.Equal(t, domain.OrderStatusFilled, b.orders[sell.ID].Status())
	assert.Equal(t, uint64(1), b.openCount)

	// Partial fill keeps the buy resting with its reduced size on the book.
	best, ok := b.bestBuy(domain.OutcomeYes)
	require.True(t, ok)
	assert.Equal(t, buy.ID, best.ID)
	snap := b.depth(domain.OutcomeYes, time.Now())
	require.Len(t, snap.Bids, 1)
	assert.Equal(t, uint64(600), snap.Bids[0].Amount)
}

func TestBookMatchValidation(t *testing.T) {
	b := newBook("m1")

	buy := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 5000, 100, "alice"))
	sell := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5000, 100, "bob"))
	sellNo := b.place(testOrder(domain.SideSell, domain.OutcomeNo, 5000, 100, "bob"))
	sellHigh := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 7000, 100, "bob"))

	_, err := b.match(buy.ID, 99, time.Now())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Arguments reversed: the first id must name the buy.
	_, err = b.match(sell.ID, buy.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrSideMismatch)

	// An order cannot trade with itself.
	_, err = b.match(buy.ID, buy.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrSideMismatch)

	_, err = b.match(buy.ID, sellNo.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrOutcomeMismatch)

	_, err = b.match(buy.ID, sellHigh.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrNoPriceCross)

	cancelled, err := b.cancel(sell.ID, "bob")
	require.NoError(t, err)
	_, err = b.match(buy.ID, cancelled.ID, time.Now())
	assert.ErrorIs(t, err, domain.ErrOrderNotOpen)
}

func TestBookBestPriceTieBreak(t *testing.T) {
	b := newBook("m1")

	first := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5000, 100, "bob"))
	b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5000, 200, "carol"))
	b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5200, 50, "dave"))

	best, ok := b.bestSell(domain.OutcomeYes)
	require.True(t, ok)
	assert.Equal(t, first.ID, best.ID)

	// Cancelling the head promotes the next order at the same price.
	_, err := b.cancel(first.ID, "bob")
	require.NoError(t, err)
	best, ok = b.bestSell(domain.OutcomeYes)
	require.True(t, ok)
	assert.Equal(t, "carol", best.Maker)
}

func TestBookBestBuyHighestPrice(t *testing.T) {
	b := newBook("m1")

	b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 4000, 100, "alice"))
	high := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 4500, 100, "bob"))

	best, ok := b.bestBuy(domain.OutcomeYes)
	require.True(t, ok)
	assert.Equal(t, high.ID, best.ID)

	_, ok = b.bestBuy(domain.OutcomeNo)
	assert.False(t, ok)
}

func TestBookDepthAggregates(t *testing.T) {
	b := newBook("m1")

	b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 4000, 100, "alice"))
	b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 4000, 50, "bob"))
	b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 4300, 70, "carol"))
	b.place(testOrder(domain.SideSell, domain.OutcomeYes, 4500, 200, "dave"))

	snap := b.depth(domain.OutcomeYes, time.Now())

	require.Len(t, snap.Bids, 2)
	assert.Equal(t, uint64(4300), snap.Bids[0].PriceBps)
	assert.Equal(t, uint64(70), snap.Bids[0].Amount)
	assert.Equal(t, uint64(4000), snap.Bids[1].PriceBps)
	assert.Equal(t, uint64(150), snap.Bids[1].Amount)
	assert.Equal(t, 2, snap.Bids[1].Orders)

	require.Len(t, snap.Asks, 1)
	assert.Equal(t, uint64(4500), snap.Asks[0].PriceBps)

	assert.True(t, snap.HasBid)
	assert.True(t, snap.HasAsk)
	assert.Equal(t, uint64(4300), snap.BestBid)
	assert.Equal(t, uint64(4500), snap.BestAsk)
	assert.True(t, snap.HasSpread)
	assert.Equal(t, uint64(200), snap.SpreadBps)
	assert.Equal(t, uint64(4400), snap.MidBps)
}

func TestBookDepthOneSidedAndEmpty(t *testing.T) {
	b := newBook("m1")

	empty := b.depth(domain.OutcomeYes, time.Now())
	assert.False(t, empty.HasSpread)
	assert.Equal(t, uint64(domain.MidPriceDefault), empty.MidBps)

	b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 4200, 100, "alice"))
	bidOnly := b.depth(domain.OutcomeYes, time.Now())
	assert.True(t, bidOnly.HasBid)
	assert.False(t, bidOnly.HasSpread)
	assert.Equal(t, uint64(4200), bidOnly.MidBps)
}

func TestBookDepthCrossedBookZeroSpread(t *testing.T) {
	b := newBook("m1")

	b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 5000, 100, "alice"))
	b.place(testOrder(domain.SideSell, domain.OutcomeYes, 4800, 100, "bob"))

	snap := b.depth(domain.OutcomeYes, time.Now())
	assert.True(t, snap.HasSpread)
	assert.Equal(t, uint64(0), snap.SpreadBps)
	assert.Equal(t, uint64(4900), snap.MidBps)
}

func TestBookStateCounters(t *testing.T) {
	b := newBook("m1")

	buy := b.place(testOrder(domain.SideBuy, domain.OutcomeYes, 5000, 300, "alice"))
	sell := b.place(testOrder(domain.SideSell, domain.OutcomeYes, 5000, 200, "bob"))
	_, err := b.match(buy.ID, sell.ID, time.Now())
	require.NoError(t, err)

	st := b.state(time.Now())
	assert.Equal(t, "m1", st.MarketID)
	assert.Equal(t, uint64(2), st.NextOrderID)
	assert.Equal(t, uint64(1), st.OpenOrders)
	assert.Equal(t, uint64(200), st.TotalVolume)
	assert.Equal(t, uint64(1), st.TradeCount)
}

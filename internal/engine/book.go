package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/outcomefi/engine/internal/domain"
)

// book is a single market's order registry. Orders are kept forever in the
// id map (tombstoned, never deleted); open orders are additionally indexed
// by per-price FIFO levels so best-price and depth queries do not rescan
// the whole ledger. Registry ids double as time priority: within a price
// level the lowest id is the earliest placed.
type book struct {
	mu sync.Mutex

	marketID    string
	nextOrderID uint64
	orders      map[uint64]*domain.Order
	openCount   uint64
	totalVolume uint64
	tradeCount  uint64

	ladders map[ladderKey]*ladder
}

type ladderKey struct {
	outcome domain.Outcome
	side    domain.Side
}

// ladder indexes one (outcome, side) pair's open orders by price.
type ladder struct {
	levels map[uint64]*bookLevel
	prices []uint64 // ascending
}

// bookLevel is the FIFO queue of open order ids resting at one price.
type bookLevel struct {
	price  uint64
	queue  []uint64
	amount uint64 // total remaining size
}

func newBook(marketID string) *book {
	return &book{
		marketID: marketID,
		orders:   make(map[uint64]*domain.Order),
		ladders:  make(map[ladderKey]*ladder),
	}
}

func (b *book) ladder(outcome domain.Outcome, side domain.Side) *ladder {
	k := ladderKey{outcome: outcome, side: side}
	l, ok := b.ladders[k]
	if !ok {
		l = &ladder{levels: make(map[uint64]*bookLevel)}
		b.ladders[k] = l
	}
	return l
}

func (l *ladder) add(o *domain.Order) {
	lvl, ok := l.levels[o.PriceBps]
	if !ok {
		lvl = &bookLevel{price: o.PriceBps}
		l.levels[o.PriceBps] = lvl
		i := sort.Search(len(l.prices), func(i int) bool { return l.prices[i] >= o.PriceBps })
		l.prices = append(l.prices, 0)
		copy(l.prices[i+1:], l.prices[i:])
		l.prices[i] = o.PriceBps
	}
	lvl.queue = append(lvl.queue, o.ID)
	lvl.amount += o.Remaining()
}

// reduce shrinks the resting size at a price after a partial fill.
func (l *ladder) reduce(price, amount uint64) {
	if lvl, ok := l.levels[price]; ok {
		lvl.amount -= amount
	}
}

// remove drops an order from its level once it is no longer open and frees
// the level when it empties.
func (l *ladder) remove(price, id, remaining uint64) {
	lvl, ok := l.levels[price]
	if !ok {
		return
	}
	for i, qid := range lvl.queue {
		if qid == id {
			lvl.queue = append(lvl.queue[:i], lvl.queue[i+1:]...)
			break
		}
	}
	lvl.amount -= remaining
	if len(lvl.queue) == 0 {
		delete(l.levels, price)
		i := sort.Search(len(l.prices), func(i int) bool { return l.prices[i] >= price })
		if i < len(l.prices) && l.prices[i] == price {
			l.prices = append(l.prices[:i], l.prices[i+1:]...)
		}
	}
}

// bestHigh returns the level at the highest price, bestLow at the lowest.
func (l *ladder) bestHigh() (*bookLevel, bool) {
	if len(l.prices) == 0 {
		return nil, false
	}
	return l.levels[l.prices[len(l.prices)-1]], true
}

func (l *ladder) bestLow() (*bookLevel, bool) {
	if len(l.prices) == 0 {
		return nil, false
	}
	return l.levels[l.prices[0]], true
}

// place stores a validated order under the next sequential id. Caller holds
// the book lock and has already performed every precondition check.
func (b *book) place(o domain.Order) domain.Order {
	o.ID = b.nextOrderID
	b.nextOrderID++
	stored := o
	b.orders[stored.ID] = &stored
	b.openCount++
	b.ladder(o.Outcome, o.Side).add(&stored)
	return stored
}

func (b *book) cancel(orderID uint64, caller string) (domain.Order, error) {
	o, ok := b.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if o.Maker != caller {
		return domain.Order{}, domain.ErrNotOrderMaker
	}
	if o.Status() != domain.OrderStatusOpen {
		return domain.Order{}, domain.ErrOrderNotOpen
	}

	o.Cancelled = true
	b.openCount--
	b.ladder(o.Outcome, o.Side).remove(o.PriceBps, o.ID, o.Remaining())
	return *o, nil
}

// match settles two crossing resting orders chosen by the caller. The
// execution price is the sell order's limit price (price improvement goes
// to the buyer) and the trade size is the smaller remaining amount.
func (b *book) match(buyID, sellID uint64, now time.Time) (domain.Trade, error) {
	buy, ok := b.orders[buyID]
	if !ok {
		return domain.Trade{}, domain.ErrOrderNotFound
	}
	sell, ok := b.orders[sellID]
	if !ok {
		return domain.Trade{}, domain.ErrOrderNotFound
	}
	if buy.Side != domain.SideBuy || sell.Side != domain.SideSell {
		return domain.Trade{}, domain.ErrSideMismatch
	}
	if buy.Status() != domain.OrderStatusOpen || sell.Status() != domain.OrderStatusOpen {
		return domain.Trade{}, domain.ErrOrderNotOpen
	}
	if buy.Outcome != sell.Outcome {
		return domain.Trade{}, domain.ErrOutcomeMismatch
	}
	if buy.PriceBps < sell.PriceBps {
		return domain.Trade{}, domain.ErrNoPriceCross
	}

	amount := buy.Remaining()
	if r := sell.Remaining(); r < amount {
		amount = r
	}

	b.fill(buy, amount)
	b.fill(sell, amount)

	b.totalVolume += amount
	tradeID := b.tradeCount
	b.tradeCount++

	return domain.Trade{
		ID:          tradeID,
		MarketID:    b.marketID,
		Outcome:     buy.Outcome,
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		Buyer:       buy.Maker,
		Seller:      sell.Maker,
		PriceBps:    sell.PriceBps,
		Amount:      amount,
		ExecutedAt:  now,
	}, nil
}

func (b *book) fill(o *domain.Order, amount uint64) {
	o.Filled += amount
	l := b.ladder(o.Outcome, o.Side)
	l.reduce(o.PriceBps, amount)
	if o.Remaining() == 0 {
		b.openCount--
		l.remove(o.PriceBps, o.ID, 0)
	}
}

// bestBuy returns the open buy order with the highest price for the
// outcome; ties break to the lowest id, which is the FIFO head of the
// level queue.
func (b *book) bestBuy(outcome domain.Outcome) (domain.Order, bool) {
	lvl, ok := b.ladder(outcome, domain.SideBuy).bestHigh()
	if !ok {
		return domain.Order{}, false
	}
	return *b.orders[lvl.queue[0]], true
}

// bestSell returns the open sell order with the lowest price, same
// tie-break.
func (b *book) bestSell(outcome domain.Outcome) (domain.Order, bool) {
	lvl, ok := b.ladder(outcome, domain.SideSell).bestLow()
	if !ok {
		return domain.Order{}, false
	}
	return *b.orders[lvl.queue[0]], true
}

// depth builds the full snapshot for one outcome: bids best-first
// (descending price), asks best-first (ascending), plus the derived
// bid/ask, spread, and mid-price aggregates.
func (b *book) depth(outcome domain.Outcome, now time.Time) domain.BookSnapshot {
	snap := domain.BookSnapshot{
		MarketID:  b.marketID,
		Outcome:   outcome,
		Timestamp: now,
	}

	bids := b.ladder(outcome, domain.SideBuy)
	for i := len(bids.prices) - 1; i >= 0; i-- {
		lvl := bids.levels[bids.prices[i]]
		snap.Bids = append(snap.Bids, domain.BookLevel{
			PriceBps: lvl.price,
			Amount:   lvl.amount,
			Orders:   len(lvl.queue),
		})
	}
	asks := b.ladder(outcome, domain.SideSell)
	for _, p := range asks.prices {
		lvl := asks.levels[p]
		snap.Asks = append(snap.Asks, domain.BookLevel{
			PriceBps: lvl.price,
			Amount:   lvl.amount,
			Orders:   len(lvl.queue),
		})
	}

	if len(snap.Bids) > 0 {
		snap.BestBid = snap.Bids[0].PriceBps
		snap.HasBid = true
	}
	if len(snap.Asks) > 0 {
		snap.BestAsk = snap.Asks[0].PriceBps
		snap.HasAsk = true
	}

	// Spread is only meaningful with both sides present. A crossed book
	// (bid >= ask) reports zero spread; placement does not prevent
	// crossing, only match removes it.
	if snap.HasBid && snap.HasAsk {
		snap.HasSpread = true
		if snap.BestAsk > snap.BestBid {
			snap.SpreadBps = snap.BestAsk - snap.BestBid
		}
	}

	switch {
	case snap.HasBid && snap.HasAsk:
		snap.MidBps = (snap.BestBid + snap.BestAsk) / 2
	case snap.HasBid:
		snap.MidBps = snap.BestBid
	case snap.HasAsk:
		snap.MidBps = snap.BestAsk
	default:
		snap.MidBps = domain.MidPriceDefault
	}

	return snap
}

func (b *book) state(now time.Time) domain.RegistryState {
	return domain.RegistryState{
		MarketID:    b.marketID,
		NextOrderID: b.nextOrderID,
		OpenOrders:  b.openCount,
		TotalVolume: b.totalVolume,
		TradeCount:  b.tradeCount,
		UpdatedAt:   now,
	}
}

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/outcomefi/engine/internal/domain"
)

// Params holds the protocol constants the engine enforces.
type Params struct {
	FeeBps         uint64 // AMM swap fee in basis points
	MinOrderAmount uint64 // smallest acceptable order size
	MinLiquidity   uint64 // smallest acceptable LP mint
}

// DefaultParams returns the protocol defaults: 30 bps swap fee, minimum
// order size 10, minimum LP mint 10.
func DefaultParams() Params {
	return Params{FeeBps: 30, MinOrderAmount: 10, MinLiquidity: 10}
}

// MarketGate is the slice of the market-lifecycle collaborator the engine
// consumes: whether a market currently accepts mutations.
type MarketGate interface {
	IsOpen(ctx context.Context, marketID string) (bool, error)
}

// Engine owns every market's order registry, liquidity pool, and claim
// ledger. Each market's state is guarded by its own mutex so concurrent
// operations on different markets never contend; operations on the same
// market serialize, making every mutation all-or-nothing.
type Engine struct {
	mu     sync.RWMutex
	books  map[string]*book
	pools  map[string]*pool
	claims map[string]*claimLedger

	gate   MarketGate
	sink   domain.EventSink
	params Params
	now    func() time.Time
}

// New creates an Engine. The sink may be nil, in which case events are
// dropped.
func New(gate MarketGate, sink domain.EventSink, params Params) *Engine {
	return &Engine{
		books:  make(map[string]*book),
		pools:  make(map[string]*pool),
		claims: make(map[string]*claimLedger),
		gate:   gate,
		sink:   sink,
		params: params,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (e *Engine) emit(evt domain.Event) {
	if e.sink != nil {
		e.sink.Emit(evt)
	}
}

// CreateMarket registers a fresh order registry, liquidity pool, and claim
// ledger for the market. Registries are created once and persist for the
// market's lifetime.
func (e *Engine) CreateMarket(ctx context.Context, marketID string) error {
	e.mu.Lock()
	if _, ok := e.books[marketID]; ok {
		e.mu.Unlock()
		return domain.ErrAlreadyExists
	}
	b := newBook(marketID)
	p := newPool(marketID, e.params.FeeBps)
	e.books[marketID] = b
	e.pools[marketID] = p
	e.claims[marketID] = newClaimLedger(marketID)
	e.mu.Unlock()

	now := e.now()
	e.emit(domain.Event{Type: domain.EventRegistryCreated, MarketID: marketID, At: now})
	ps := p.state(now)
	e.emit(domain.Event{Type: domain.EventPoolCreated, MarketID: marketID, At: now, Pool: &ps})
	return nil
}

func (e *Engine) book(marketID string) (*book, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[marketID]
	if !ok {
		return nil, fmt.Errorf("engine: market %s: %w", marketID, domain.ErrNotFound)
	}
	return b, nil
}

func (e *Engine) pool(marketID string) (*pool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.pools[marketID]
	if !ok {
		return nil, fmt.Errorf("engine: market %s: %w", marketID, domain.ErrNotFound)
	}
	return p, nil
}

func (e *Engine) ledger(marketID string) (*claimLedger, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	l, ok := e.claims[marketID]
	if !ok {
		return nil, fmt.Errorf("engine: market %s: %w", marketID, domain.ErrNotFound)
	}
	return l, nil
}

func (e *Engine) requireOpen(ctx context.Context, marketID string) error {
	open, err := e.gate.IsOpen(ctx, marketID)
	if err != nil {
		return fmt.Errorf("engine: market gate: %w", err)
	}
	if !open {
		return domain.ErrMarketClosed
	}
	return nil
}

// ---------------------------------------------------------------------------
// Order registry operations
// ---------------------------------------------------------------------------

// PlaceBuy places a buy order. The size is derived from the currency paid
// at the limit price: amount = floor(paid * 10000 / priceBps).
func (e *Engine) PlaceBuy(ctx context.Context, marketID, maker string, outcome domain.Outcome, priceBps, paid uint64) (domain.Order, error) {
	if err := e.requireOpen(ctx, marketID); err != nil {
		return domain.Order{}, err
	}
	if !outcome.Valid() {
		return domain.Order{}, domain.ErrOutcomeMismatch
	}
	if priceBps < 1 || priceBps > 9999 {
		return domain.Order{}, domain.ErrPriceOutOfRange
	}
	if paid > MaxAmount {
		return domain.Order{}, domain.ErrAmountTooLarge
	}

	amount, err := mulDiv(paid, bpsDenom, priceBps)
	if err != nil {
		return domain.Order{}, err
	}
	return e.place(marketID, domain.Order{
		MarketID: marketID,
		Maker:    maker,
		Side:     domain.SideBuy,
		Outcome:  outcome,
		PriceBps: priceBps,
		Amount:   amount,
	})
}

// PlaceSell places a sell order sized by the presented outcome token.
func (e *Engine) PlaceSell(ctx context.Context, marketID, maker string, priceBps uint64, token domain.OutcomeToken) (domain.Order, error) {
	if err := e.requireOpen(ctx, marketID); err != nil {
		return domain.Order{}, err
	}
	if token.MarketID != marketID {
		return domain.Order{}, domain.ErrMarketIDMismatch
	}
	if !token.Outcome.Valid() {
		return domain.Order{}, domain.ErrOutcomeMismatch
	}
	if priceBps < 1 || priceBps > 9999 {
		return domain.Order{}, domain.ErrPriceOutOfRange
	}
	if token.Amount > MaxAmount {
		return domain.Order{}, domain.ErrAmountTooLarge
	}

	return e.place(marketID, domain.Order{
		MarketID: marketID,
		Maker:    maker,
		Side:     domain.SideSell,
		Outcome:  token.Outcome,
		PriceBps: priceBps,
		Amount:   token.Amount,
	})
}

func (e *Engine) place(marketID string, o domain.Order) (domain.Order, error) {
	if o.Amount < e.params.MinOrderAmount {
		return domain.Order{}, domain.ErrAmountTooSmall
	}
	b, err := e.book(marketID)
	if err != nil {
		return domain.Order{}, err
	}

	now := e.now()
	o.CreatedAt = now

	b.mu.Lock()
	stored := b.place(o)
	b.mu.Unlock()

	e.emit(domain.Event{Type: domain.EventOrderPlaced, MarketID: marketID, At: now, Order: &stored})
	return stored, nil
}

// Cancel tombstones an open order. Only the maker may cancel; a second
// cancel fails because the order is no longer open.
func (e *Engine) Cancel(ctx context.Context, marketID string, orderID uint64, caller string) (domain.Order, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.Order{}, err
	}

	b.mu.Lock()
	cancelled, err := b.cancel(orderID, caller)
	b.mu.Unlock()
	if err != nil {
		return domain.Order{}, err
	}

	now := e.now()
	e.emit(domain.Event{
		Type:      domain.EventOrderCancelled,
		MarketID:  marketID,
		At:        now,
		Order:     &cancelled,
		Remaining: cancelled.Remaining(),
	})
	return cancelled, nil
}

// Match settles two crossing resting orders named by an unprivileged
// relayer; the engine never searches for matches itself. On success the
// buyer is owed the traded outcome tokens and the seller the currency
// notional at the execution price, both credited to the market's claim
// ledger.
func (e *Engine) Match(ctx context.Context, marketID string, buyID, sellID uint64) (domain.Trade, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.Trade{}, err
	}
	l, err := e.ledger(marketID)
	if err != nil {
		return domain.Trade{}, err
	}

	now := e.now()
	b.mu.Lock()
	trade, err := b.match(buyID, sellID, now)
	b.mu.Unlock()
	if err != nil {
		return domain.Trade{}, err
	}

	l.creditTokens(trade.Buyer, trade.Outcome, trade.Amount, now)
	l.creditCurrency(trade.Seller, trade.Notional(), now)

	e.emit(domain.Event{Type: domain.EventTradeExecuted, MarketID: marketID, At: now, Trade: &trade})
	return trade, nil
}

// Order returns a single order by id, tombstones included.
func (e *Engine) Order(marketID string, orderID uint64) (domain.Order, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.Order{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return *o, nil
}

// BestBuy returns the open buy order with the highest price for the
// outcome, earliest id on ties.
func (e *Engine) BestBuy(marketID string, outcome domain.Outcome) (domain.Order, bool, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.Order{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.bestBuy(outcome)
	return o, ok, nil
}

// BestSell returns the open sell order with the lowest price for the
// outcome, earliest id on ties.
func (e *Engine) BestSell(marketID string, outcome domain.Outcome) (domain.Order, bool, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.Order{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.bestSell(outcome)
	return o, ok, nil
}

// Depth returns the full book snapshot for one outcome, including the
// bid/ask, spread, and mid-price aggregates.
func (e *Engine) Depth(marketID string, outcome domain.Outcome) (domain.BookSnapshot, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.BookSnapshot{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth(outcome, e.now()), nil
}

// RegistryState reports the market's registry counters.
func (e *Engine) RegistryState(marketID string) (domain.RegistryState, error) {
	b, err := e.book(marketID)
	if err != nil {
		return domain.RegistryState{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state(e.now()), nil
}

// ---------------------------------------------------------------------------
// Liquidity pool operations
// ---------------------------------------------------------------------------

// AddLiquidity deposits both legs into the market's pool and reports the
// minted LP shares. Deposited tokens are retired into the pool.
func (e *Engine) AddLiquidity(ctx context.Context, marketID, provider string, yesIn, noIn uint64) (uint64, error) {
	if err := e.requireOpen(ctx, marketID); err != nil {
		return 0, err
	}
	p, err := e.pool(marketID)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	minted, err := p.addLiquidity(yesIn, noIn, e.params.MinLiquidity)
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}

	e.emit(domain.Event{
		Type:     domain.EventLiquidityAdded,
		MarketID: marketID,
		At:       e.now(),
		Liquidity: &domain.LiquidityChange{
			Provider:  provider,
			YesAmount: yesIn,
			NoAmount:  noIn,
			Shares:    minted,
		},
	})
	return minted, nil
}

// RemoveLiquidity burns lpAmount shares and reports the proportional
// reserve slices returned to the provider.
func (e *Engine) RemoveLiquidity(ctx context.Context, marketID, provider string, lpAmount uint64) (yesOut, noOut uint64, err error) {
	if err := e.requireOpen(ctx, marketID); err != nil {
		return 0, 0, err
	}
	p, err := e.pool(marketID)
	if err != nil {
		return 0, 0, err
	}

	p.mu.Lock()
	yesOut, noOut, err = p.removeLiquidity(lpAmount)
	p.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}

	e.emit(domain.Event{
		Type:     domain.EventLiquidityRemoved,
		MarketID: marketID,
		At:       e.now(),
		Liquidity: &domain.LiquidityChange{
			Provider:  provider,
			YesAmount: yesOut,
			NoAmount:  noOut,
			Shares:    lpAmount,
		},
	})
	return yesOut, noOut, nil
}

// Swap trades the presented outcome token against the pool. The input is
// retired into the reserve and the output credited to the trader's claim
// balance.
func (e *Engine) Swap(ctx context.Context, marketID, trader string, token domain.OutcomeToken, minOut uint64) (uint64, error) {
	if err := e.requireOpen(ctx, marketID); err != nil {
		return 0, err
	}
	if token.MarketID != marketID {
		return 0, domain.ErrMarketIDMismatch
	}
	if !token.Outcome.Valid() {
		return 0, domain.ErrOutcomeMismatch
	}
	p, err := e.pool(marketID)
	if err != nil {
		return 0, err
	}
	l, err := e.ledger(marketID)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	amountOut, fee, err := p.swap(token.Outcome, token.Amount, minOut)
	p.mu.Unlock()
	if err != nil {
		return 0, err
	}

	now := e.now()
	l.creditTokens(trader, token.Outcome.Opposite(), amountOut, now)

	e.emit(domain.Event{
		Type:     domain.EventSwapExecuted,
		MarketID: marketID,
		At:       now,
		Swap: &domain.SwapExecution{
			Trader:    trader,
			OutcomeIn: token.Outcome,
			AmountIn:  token.Amount,
			AmountOut: amountOut,
			Fee:       fee,
			MinOut:    minOut,
		},
	})
	return amountOut, nil
}

// Quote projects a swap without mutating the pool.
func (e *Engine) Quote(marketID string, outcomeIn domain.Outcome, amountIn uint64) (domain.SwapQuote, error) {
	if !outcomeIn.Valid() {
		return domain.SwapQuote{}, domain.ErrOutcomeMismatch
	}
	p, err := e.pool(marketID)
	if err != nil {
		return domain.SwapQuote{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quote(outcomeIn, amountIn), nil
}

// PoolStats reports the public pool projection.
func (e *Engine) PoolStats(marketID string) (domain.PoolStats, error) {
	p, err := e.pool(marketID)
	if err != nil {
		return domain.PoolStats{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats(), nil
}

// PoolState reports the full pool snapshot used for persistence.
func (e *Engine) PoolState(marketID string) (domain.PoolState, error) {
	p, err := e.pool(marketID)
	if err != nil {
		return domain.PoolState{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state(e.now()), nil
}

// ---------------------------------------------------------------------------
// Claims
// ---------------------------------------------------------------------------

// Claims returns the account's pending claim balance for the market.
func (e *Engine) Claims(marketID, account string) (domain.ClaimBalance, error) {
	l, err := e.ledger(marketID)
	if err != nil {
		return domain.ClaimBalance{}, err
	}
	return l.get(account), nil
}

// Withdraw zeroes the account's claim balance and returns what was owed.
// Withdrawal is not gated on market status: claims stay collectable after
// a market closes.
func (e *Engine) Withdraw(ctx context.Context, marketID, account string) (domain.ClaimBalance, error) {
	l, err := e.ledger(marketID)
	if err != nil {
		return domain.ClaimBalance{}, err
	}

	now := e.now()
	owed, ok := l.withdraw(account, now)
	if !ok {
		return domain.ClaimBalance{}, domain.ErrZeroAmount
	}

	e.emit(domain.Event{Type: domain.EventClaimsWithdrawn, MarketID: marketID, At: now, Claims: &owed})
	return owed, nil
}

// ---------------------------------------------------------------------------
// Restore
// ---------------------------------------------------------------------------

// Restore rebuilds a market's in-memory state from persisted snapshots on
// boot. It does not emit events.
func (e *Engine) Restore(marketID string, state domain.RegistryState, orders []domain.Order, poolState domain.PoolState, claims []domain.ClaimBalance) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.books[marketID]; ok {
		return domain.ErrAlreadyExists
	}

	b := newBook(marketID)
	b.nextOrderID = state.NextOrderID
	b.openCount = state.OpenOrders
	b.totalVolume = state.TotalVolume
	b.tradeCount = state.TradeCount
	for _, o := range orders {
		stored := o
		b.orders[stored.ID] = &stored
		if stored.Status() == domain.OrderStatusOpen {
			b.ladder(stored.Outcome, stored.Side).add(&stored)
		}
	}

	p := newPool(marketID, e.params.FeeBps)
	if poolState.FeeBps != 0 {
		p.feeBps = poolState.FeeBps
	}
	p.yesReserve = poolState.YesReserve
	p.noReserve = poolState.NoReserve
	p.totalShares = poolState.TotalShares
	p.totalFees = poolState.TotalFees
	p.active = poolState.Active

	l := newClaimLedger(marketID)
	l.restore(claims)

	e.books[marketID] = b
	e.pools[marketID] = p
	e.claims[marketID] = l
	return nil
}

package engine

import (
	"sync"
	"time"

	"github.com/outcomefi/engine/internal/domain"
)

// claimLedger is the per-market escrow: outcome tokens and currency owed to
// accounts by matches and swaps, pending withdrawal. Settlement here is
// asynchronous by design — the engine records what is owed and the upstream
// custodian moves the actual assets when a withdrawal is requested.
type claimLedger struct {
	mu sync.Mutex

	marketID string
	balances map[string]*domain.ClaimBalance
}

func newClaimLedger(marketID string) *claimLedger {
	return &claimLedger{
		marketID: marketID,
		balances: make(map[string]*domain.ClaimBalance),
	}
}

func (l *claimLedger) account(account string) *domain.ClaimBalance {
	c, ok := l.balances[account]
	if !ok {
		c = &domain.ClaimBalance{MarketID: l.marketID, Account: account}
		l.balances[account] = c
	}
	return c
}

// creditTokens adds outcome tokens owed to the account.
func (l *claimLedger) creditTokens(account string, outcome domain.Outcome, amount uint64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.account(account)
	if outcome == domain.OutcomeYes {
		c.Yes += amount
	} else {
		c.No += amount
	}
	c.UpdatedAt = now
}

// creditCurrency adds base currency owed to the account.
func (l *claimLedger) creditCurrency(account string, amount uint64, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.account(account)
	c.Currency += amount
	c.UpdatedAt = now
}

// get returns a copy of the account's balance; a zero balance for unknown
// accounts.
func (l *claimLedger) get(account string) domain.ClaimBalance {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.balances[account]; ok {
		return *c
	}
	return domain.ClaimBalance{MarketID: l.marketID, Account: account}
}

// withdraw zeroes the account's balance and returns what was owed.
func (l *claimLedger) withdraw(account string, now time.Time) (domain.ClaimBalance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.balances[account]
	if !ok || c.IsZero() {
		return domain.ClaimBalance{MarketID: l.marketID, Account: account}, false
	}
	out := *c
	*c = domain.ClaimBalance{MarketID: l.marketID, Account: account, UpdatedAt: now}
	return out, true
}

// restore seeds the ledger from persisted balances on boot.
func (l *claimLedger) restore(balances []domain.ClaimBalance) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, b := range balances {
		c := b
		l.balances[b.Account] = &c
	}
}

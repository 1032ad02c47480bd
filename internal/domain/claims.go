package domain

import "time"

// ClaimBalance is the escrow ledger entry for one account in one market:
// outcome tokens and currency owed to the account by settled matches and
// swaps, pending withdrawal. The engine credits claims; Withdraw zeroes
// them and hands the totals to the upstream custodian.
type ClaimBalance struct {
	MarketID  string
	Account   string
	Yes       uint64
	No        uint64
	Currency  uint64
	UpdatedAt time.Time
}

// IsZero reports whether the balance holds nothing to withdraw.
func (c ClaimBalance) IsZero() bool {
	return c.Yes == 0 && c.No == 0 && c.Currency == 0
}

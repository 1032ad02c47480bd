package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/outcomefi/engine/internal/domain"
	"github.com/outcomefi/engine/internal/engine"
)

// ClaimsService fronts the escrow ledger. Matches and swaps credit claims
// inside the engine; this service reads them and executes withdrawals.
type ClaimsService struct {
	eng    *engine.Engine
	claims domain.ClaimStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewClaimsService creates a ClaimsService with all required dependencies.
func NewClaimsService(
	eng *engine.Engine,
	claims domain.ClaimStore,
	audit domain.AuditStore,
	logger *slog.Logger,
) *ClaimsService {
	return &ClaimsService{
		eng:    eng,
		claims: claims,
		audit:  audit,
		logger: logger,
	}
}

// Get returns an account's pending claim balance for a market.
func (s *ClaimsService) Get(ctx context.Context, marketID, account string) (domain.ClaimBalance, error) {
	return s.eng.Claims(marketID, account)
}

// ListByAccount returns an account's non-zero claim balances across markets.
func (s *ClaimsService) ListByAccount(ctx context.Context, account string) ([]domain.ClaimBalance, error) {
	balances, err := s.claims.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("claims_service: list by account: %w", err)
	}
	return balances, nil
}

// Withdraw zeroes the account's claim balance and returns what was owed.
// The upstream custodian settles the returned amounts out of escrow.
func (s *ClaimsService) Withdraw(ctx context.Context, marketID, account string) (domain.ClaimBalance, error) {
	owed, err := s.eng.Withdraw(ctx, marketID, account)
	if err != nil {
		return domain.ClaimBalance{}, err
	}

	// Persist the zeroed balance.
	if bal, err := s.eng.Claims(marketID, account); err == nil {
		if err := s.claims.Upsert(ctx, bal); err != nil {
			s.logger.WarnContext(ctx, "claims_service: write-behind failed",
				slog.String("market_id", marketID),
				slog.String("account", account),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.audit.Log(ctx, "claims_withdrawn", map[string]any{
		"market_id": marketID,
		"account":   account,
		"yes":       owed.Yes,
		"no":        owed.No,
		"currency":  owed.Currency,
	}); err != nil {
		s.logger.WarnContext(ctx, "claims_service: audit failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "claims_service: withdrawn",
		slog.String("market_id", marketID),
		slog.String("account", account),
		slog.Uint64("yes", owed.Yes),
		slog.Uint64("no", owed.No),
		slog.Uint64("currency", owed.Currency),
	)
	return owed, nil
}

// Package wallet computes how much of an order a user's wallet balance can
// cover and keeps that balance fresh after top-ups.
package wallet

import (
	"context"
	"fmt"

	"github.com/noah-isme/storefront-gateway/internal/events"
	"github.com/noah-isme/storefront-gateway/internal/obs"
	"github.com/noah-isme/storefront-gateway/internal/pricing"
)

// BalanceFetcher loads the current wallet balance for a user.
type BalanceFetcher interface {
	Balance(ctx context.Context, userID string) (int64, error)
}

// Service applies wallet balances to checkout totals.
type Service struct {
	Source BalanceFetcher
	Events *events.Bus
}

// Payable computes the final amount due after optionally deducting the wallet
// balance. When useWallet is false the balance is not fetched at all.
func (s Service) Payable(ctx context.Context, userID string, grandTotal pricing.Money, useWallet bool) (pricing.Payable, error) {
	if !useWallet {
		return pricing.FinalPayable(grandTotal, 0, false), nil
	}
	if s.Source == nil {
		return pricing.Payable{}, fmt.Errorf("wallet: balance source not configured")
	}
	balance, err := s.Source.Balance(ctx, userID)
	if err != nil {
		return pricing.Payable{}, fmt.Errorf("wallet: fetch balance: %w", err)
	}
	payable := pricing.FinalPayable(grandTotal, balance, true)
	if payable.WalletApplied > 0 {
		obs.WalletApplied.Inc()
		if s.Events != nil {
			_, _ = s.Events.Emit(ctx, events.TopicWalletApplied, map[string]any{
				"userId":        userID,
				"walletApplied": payable.WalletApplied,
				"amountDue":     payable.Amount,
			})
		}
	}
	return payable, nil
}

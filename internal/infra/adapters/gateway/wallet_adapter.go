// File: internal/infra/adapters/gateway/wallet_adapter.go
package gateway

import (
	"context"
	"fmt"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
)

var _ adapter.GatewayAdapter = (*WalletAdapter)(nil)

// WalletAdapter charges the buyer's internal store-credit wallet. There is no
// external provider: Prepare is a balance pre-check that fails fast without
// producing a provider reference, and Confirm is the atomic ledger debit.
type WalletAdapter struct {
	id     string
	label  string
	wallet adapter.WalletService
}

func NewWalletAdapter(id, label string, wallet adapter.WalletService) *WalletAdapter {
	if label == "" {
		label = "Store credit"
	}
	return &WalletAdapter{id: id, label: label, wallet: wallet}
}

func (a *WalletAdapter) ID() string       { return a.id }
func (a *WalletAdapter) Describe() string { return a.label }

func (a *WalletAdapter) Prepare(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
	bal, err := a.wallet.GetBalance(ctx, s.UserID)
	if err != nil {
		return adapter.ProviderIntent{}, fmt.Errorf("wallet read: %w", err)
	}
	// Advisory pre-check so a short wallet fails before any state moves. The
	// authoritative check is the conditional debit in Confirm.
	if bal.BalanceUSD.LessThan(s.FinalAmountUSD) {
		return adapter.ProviderIntent{}, domain.ErrInsufficientBalance
	}
	return adapter.ProviderIntent{}, nil
}

func (a *WalletAdapter) CollectInput(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error) {
	return adapter.Instrument{}, nil
}

func (a *WalletAdapter) Confirm(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
	ref, err := a.wallet.Debit(ctx, s.UserID, s.FinalAmountUSD)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	return adapter.ChargeResult{Reference: ref}, nil
}

package adapter

import (
	"context"

	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/domain/model"
)

// WalletService is the internal ledger collaborator. GetBalance is an
// advisory read; Debit re-checks the balance and subtracts in one atomic
// operation, so a stale client-side read can never overdraw the wallet.
type WalletService interface {
	GetBalance(ctx context.Context, userID string) (model.WalletBalance, error)
	// Debit fails with domain.ErrInsufficientBalance when the balance at call
	// time is below amountUSD. Returns a ledger transaction reference.
	Debit(ctx context.Context, userID string, amountUSD decimal.Decimal) (string, error)
}

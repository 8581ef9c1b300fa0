package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

var _ adapter.WalletService = (*WalletRepo)(nil)

// WalletRepo is the internal ledger. Debit re-checks the balance inside the
// UPDATE itself; a stale advisory read at session start can never overdraw.
type WalletRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewWalletRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *WalletRepo {
	return &WalletRepo{pool: pool, tm: tm}
}

func (r *WalletRepo) GetBalance(ctx context.Context, userID string) (model.WalletBalance, error) {
	const q = `SELECT balance_usd FROM wallets WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, nil, q, userID)
	if err != nil {
		return model.WalletBalance{}, err
	}
	var b model.WalletBalance
	if err := row.Scan(&b.BalanceUSD); err != nil {
		if err == pgx.ErrNoRows {
			// No wallet row reads as a zero balance; one is created on first top-up.
			return model.WalletBalance{BalanceUSD: decimal.Zero}, nil
		}
		return model.WalletBalance{}, domain.ErrReadDatabaseRow
	}
	return b, nil
}

// Debit subtracts amountUSD and records a ledger entry in one transaction.
// The conditional UPDATE is the authoritative balance check.
func (r *WalletRepo) Debit(ctx context.Context, userID string, amountUSD decimal.Decimal) (string, error) {
	if amountUSD.IsNegative() || amountUSD.IsZero() {
		return "", domain.ErrInvalidArgument
	}
	ref := "wtx-" + uuid.NewString()
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const debit = `
UPDATE wallets SET balance_usd = balance_usd - $2, updated_at = NOW()
 WHERE user_id=$1 AND balance_usd >= $2;`
		cmd, err := execSQL(ctx, r.pool, tx, debit, userID, amountUSD)
		if err != nil {
			return domain.ErrOperationFailed
		}
		if cmd.RowsAffected() == 0 {
			return domain.ErrInsufficientBalance
		}

		const ledger = `
INSERT INTO wallet_ledger (id, user_id, amount_usd, kind, created_at)
VALUES ($1, $2, $3, 'debit', NOW());`
		if _, err := execSQL(ctx, r.pool, tx, ledger, ref, userID, amountUSD.Neg()); err != nil {
			return domain.ErrOperationFailed
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

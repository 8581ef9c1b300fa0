package repository

import (
	"context"
	"time"

	"course-marketplace-checkout/internal/domain/model"
)

// SessionRepository is the durable checkout attempt log. Every submitted
// attempt is recorded here; redirect attempts are rehydrated from this log by
// provider reference when the buyer returns, which must survive a process
// restart in between.
type SessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.PaymentSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentSession, error)
	FindByProviderRef(ctx context.Context, tx Tx, providerRef string) (*model.PaymentSession, error)
	// FinalizeIfAwaiting atomically moves an awaiting-redirect attempt to a
	// terminal status. Returns false when the attempt was already finalized,
	// which makes callback handling idempotent under concurrent delivery.
	FinalizeIfAwaiting(ctx context.Context, tx Tx, id string, status model.SessionStatus, providerRef, errorMessage string) (bool, error)
	ListAwaitingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SessionStatus]int, error)
	// SumRevenueByPeriod returns succeeded revenue in USD cents for
	// period "week" | "month" | "year".
	SumRevenueByPeriod(ctx context.Context, tx Tx, period string) (int64, error)
}

// SessionStore holds the live session for an open checkout dialog. Entries
// expire with the store's TTL, which is how abandoned checkouts are discarded.
type SessionStore interface {
	Put(ctx context.Context, s *model.PaymentSession) error
	Get(ctx context.Context, id string) (*model.PaymentSession, error)
	Delete(ctx context.Context, id string) error
}

package adapter

import (
	"context"

	"course-marketplace-checkout/internal/domain/model"
)

// OrderSource supplies the purchasable item. Checkout re-reads the order both
// at session start and when a redirect callback returns, so a tampered
// callback can never settle against a price the order never had.
type OrderSource interface {
	// GetOrder fails with domain.ErrOrderNotFound for unknown ids.
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
}

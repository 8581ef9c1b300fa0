package adapter

import (
	"context"

	"course-marketplace-checkout/internal/domain/model"
)

// CouponService validates a code against an order and returns the discount
// terms. Fails with domain.ErrInvalidCoupon for unknown codes and
// domain.ErrCouponExpired outside the validity window.
type CouponService interface {
	Validate(ctx context.Context, code, orderID string) (*model.CouponApplication, error)
	// Redeem burns one use of the code. Called only after the discounted
	// payment settles, so abandoned checkouts do not consume uses.
	Redeem(ctx context.Context, code string) error
}

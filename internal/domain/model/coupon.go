package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// CouponApplication is the validated discount terms attached to a session.
// It is what the coupon service returns; the raw coupon row (windows, usage
// counters) never leaves the service.
type CouponApplication struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal  // percent for percentage type, USD for fixed
	MaxDiscount   *decimal.Decimal // optional cap, percentage type only
}

// Coupon is the stored coupon rule.
type Coupon struct {
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MaxDiscount   *decimal.Decimal
	ValidFrom     *time.Time
	ValidUntil    *time.Time
	MaxUses       int
	Uses          int
	CreatedAt     time.Time
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
)

var _ adapter.CouponService = (*CouponRepo)(nil)

// CouponRepo validates and redeems coupon codes. Validation is a plain read;
// redemption is a conditional increment so concurrent checkouts cannot push a
// code past its usage limit.
type CouponRepo struct {
	pool *pgxpool.Pool
}

func NewCouponRepo(pool *pgxpool.Pool) *CouponRepo {
	return &CouponRepo{pool: pool}
}

func (r *CouponRepo) Validate(ctx context.Context, code, orderID string) (*model.CouponApplication, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	if code == "" {
		return nil, domain.ErrInvalidCoupon
	}
	const q = `
SELECT code, discount_type, discount_value, max_discount, valid_from, valid_until, max_uses, uses
  FROM coupons WHERE code=$1;`
	row, err := pickRow(ctx, r.pool, nil, q, code)
	if err != nil {
		return nil, err
	}
	var c model.Coupon
	var dtype string
	if err := row.Scan(&c.Code, &dtype, &c.DiscountValue, &c.MaxDiscount, &c.ValidFrom, &c.ValidUntil, &c.MaxUses, &c.Uses); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInvalidCoupon
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.DiscountType = model.DiscountType(dtype)

	now := time.Now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, domain.ErrCouponExpired
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, domain.ErrCouponExpired
	}
	if c.MaxUses > 0 && c.Uses >= c.MaxUses {
		return nil, fmt.Errorf("coupon exhausted: %w", domain.ErrInvalidCoupon)
	}

	return &model.CouponApplication{
		Code:          c.Code,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		MaxDiscount:   c.MaxDiscount,
	}, nil
}

// Redeem burns one use of the code. Called after the payment settles, never at
// apply time, so abandoned checkouts do not consume uses.
func (r *CouponRepo) Redeem(ctx context.Context, code string) error {
	const q = `
UPDATE coupons SET uses = uses + 1
 WHERE code=$1 AND (max_uses = 0 OR uses < max_uses);`
	cmd, err := execSQL(ctx, r.pool, nil, q, strings.TrimSpace(strings.ToUpper(code)))
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrInvalidCoupon
	}
	return nil
}

// Package pricing holds the pure money math for checkout: coupon discounts
// and display-currency conversion. Settlement amounts are always USD; nothing
// in this package performs I/O.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountTerms is the subset of a coupon application the engine needs.
type DiscountTerms struct {
	Percentage bool
	Value      decimal.Decimal
	MaxCap     *decimal.Decimal // percentage type only
}

// ComputeDiscount returns the discount for the given base amount.
// Percentage discounts are clamped to MaxCap when present; fixed discounts
// are clamped to the base amount. The result is never negative and never
// exceeds base.
func ComputeDiscount(base decimal.Decimal, terms *DiscountTerms) decimal.Decimal {
	if terms == nil {
		return decimal.Zero
	}
	var amount decimal.Decimal
	if terms.Percentage {
		amount = base.Mul(terms.Value).Div(hundred)
		if terms.MaxCap != nil && amount.GreaterThan(*terms.MaxCap) {
			amount = *terms.MaxCap
		}
	} else {
		amount = terms.Value
	}
	amount = decimal.Min(amount, base)
	return floorAtZero(amount).Round(2)
}

// ComputeFinal returns max(base - discount, 0).
func ComputeFinal(base, discount decimal.Decimal) decimal.Decimal {
	return floorAtZero(base.Sub(discount))
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

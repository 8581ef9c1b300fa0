package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SettlementCurrency is the canonical currency every charge settles in.
const SettlementCurrency = "USD"

// ToDisplay converts a USD amount to the display currency at the given rate,
// rounded to 2 decimals. Presentation only: settlement amounts handed to a
// gateway stay in USD minor units.
func ToDisplay(amountUSD, rate decimal.Decimal) decimal.Decimal {
	return amountUSD.Mul(rate).Round(2)
}

// FormatDisplay renders an amount for receipts, e.g. "MXN 1,530.00" without
// the thousands separator: "MXN 1530.00". USD passes through at rate 1.
func FormatDisplay(amountUSD decimal.Decimal, currency string, rate decimal.Decimal) string {
	if currency == "" || currency == SettlementCurrency {
		return fmt.Sprintf("%s %s", SettlementCurrency, amountUSD.StringFixed(2))
	}
	return fmt.Sprintf("%s %s", currency, ToDisplay(amountUSD, rate).StringFixed(2))
}

// MinorUnits converts a USD decimal amount to integer cents for provider
// calls. Rounds half-up at 2 decimals first so 84.999 settles as 8500.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Mul(hundred).IntPart()
}

// FromMinorUnits converts integer cents back to a decimal USD amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}

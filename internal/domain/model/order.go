package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the purchasable item as seen by checkout. Authoring and approval of
// the underlying course live outside this service; checkout only needs the
// settlement price and the display currency the storefront resolved for it.
type Order struct {
	ID            string // UUID
	CourseID      string
	Title         string
	BaseAmountUSD decimal.Decimal // settlement is always USD
	Currency      string          // display currency code resolved for the buyer
	CreatedAt     time.Time
}

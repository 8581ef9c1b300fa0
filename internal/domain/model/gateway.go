package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayCapabilities describes which charge variants a gateway supports.
type GatewayCapabilities struct {
	DirectCharge    bool
	Redirect        bool
	Wallet          bool
	SavedInstrument bool
}

// GatewayDescriptor is one enabled gateway as resolved from configuration.
// At most one descriptor in a registry has Primary set.
type GatewayDescriptor struct {
	ID           string
	DisplayName  string
	Primary      bool
	Capabilities GatewayCapabilities
}

// SavedPaymentMethod is a stored instrument. ProviderToken is an opaque token
// owned by exactly one gateway and is never replayed against another provider.
// It is encrypted at rest.
type SavedPaymentMethod struct {
	ID            string // UUID
	UserID        string
	GatewayID     string
	DisplayName   string
	LastFour      string // optional
	ProviderToken string
	CreatedAt     time.Time
}

// WalletBalance is the buyer's internal ledger balance. A read at session
// start is advisory only; the authoritative check happens inside Debit.
type WalletBalance struct {
	BalanceUSD decimal.Decimal
}

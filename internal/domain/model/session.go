package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionIdle             SessionStatus = "idle"              // created, nothing chosen yet
	SessionSelecting        SessionStatus = "selecting"         // a gateway is chosen, nothing submitted
	SessionInitializing     SessionStatus = "initializing"      // prepare in flight
	SessionAwaitingRedirect SessionStatus = "awaiting-redirect" // buyer handed off to the provider
	SessionProcessing       SessionStatus = "processing"        // collect/confirm in flight
	SessionSucceeded        SessionStatus = "succeeded"
	SessionFailed           SessionStatus = "failed"
)

// PaymentSession is one checkout attempt. A failed attempt is never mutated
// back to life; Retry creates a fresh session so a declined provider intent
// cannot be replayed.
type PaymentSession struct {
	ID     string `json:"id"` // ULID, sortable per attempt
	UserID string `json:"user_id"`

	OrderID       string          `json:"order_id"`
	BaseAmountUSD decimal.Decimal `json:"base_amount_usd"`
	Currency      string          `json:"currency"`      // display currency
	ExchangeRate  decimal.Decimal `json:"exchange_rate"` // display rate, USD -> Currency

	Coupon            *CouponApplication `json:"coupon,omitempty"`
	DiscountAmountUSD decimal.Decimal    `json:"discount_amount_usd"`
	FinalAmountUSD    decimal.Decimal    `json:"final_amount_usd"`

	GatewayID     string `json:"gateway_id,omitempty"`
	MethodLabel   string `json:"method_label,omitempty"`
	SavedMethodID string `json:"saved_method_id,omitempty"`

	// InstrumentToken is the transient tokenized card for direct charge. It is
	// attached at submit time and never persisted to the durable attempt log.
	InstrumentToken string `json:"-"`

	WalletBalanceUSD decimal.Decimal `json:"wallet_balance_usd"` // advisory read at session start

	Status       SessionStatus `json:"status"`
	ProviderRef  string        `json:"provider_ref,omitempty"`
	RedirectURL  string        `json:"redirect_url,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Receipt      *Receipt      `json:"receipt,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InFlight reports whether a submit is already being driven for this session.
// The orchestrator checks this synchronously before issuing any external call,
// which is the idempotency guard against double submission.
func (s *PaymentSession) InFlight() bool {
	switch s.Status {
	case SessionInitializing, SessionAwaitingRedirect, SessionProcessing:
		return true
	}
	return false
}

// Terminal reports whether the session has reached a final outcome.
func (s *PaymentSession) Terminal() bool {
	return s.Status == SessionSucceeded || s.Status == SessionFailed
}

// SelectGateway records the buyer's gateway choice. Switching gateways
// invalidates any previously prepared intent, so the provider reference and
// redirect URL are cleared.
func (s *PaymentSession) SelectGateway(gatewayID, methodLabel string) {
	s.GatewayID = gatewayID
	s.MethodLabel = methodLabel
	s.ProviderRef = ""
	s.RedirectURL = ""
	s.Status = SessionSelecting
	s.UpdatedAt = time.Now()
}

// ApplyPricing sets the derived amounts. Final never goes below zero.
func (s *PaymentSession) ApplyPricing(coupon *CouponApplication, discount decimal.Decimal) {
	s.Coupon = coupon
	s.DiscountAmountUSD = discount
	final := s.BaseAmountUSD.Sub(discount)
	if final.IsNegative() {
		final = decimal.Zero
	}
	s.FinalAmountUSD = final
	s.UpdatedAt = time.Now()
}

// Succeed moves the session to its success terminal state.
func (s *PaymentSession) Succeed(providerRef string) {
	s.Status = SessionSucceeded
	s.ProviderRef = providerRef
	s.ErrorMessage = ""
	s.UpdatedAt = time.Now()
	r := BuildReceipt(s)
	s.Receipt = &r
}

// Fail moves the session to its failure terminal state. A provider reference
// obtained before the failure is kept for support diagnostics.
func (s *PaymentSession) Fail(msg string) {
	s.Status = SessionFailed
	s.ErrorMessage = msg
	s.UpdatedAt = time.Now()
	r := BuildReceipt(s)
	s.Receipt = &r
}

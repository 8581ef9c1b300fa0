package model

import (
	"time"

	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/domain/pricing"
)

type ReceiptOutcome string

const (
	ReceiptSuccess ReceiptOutcome = "success"
	ReceiptFailure ReceiptOutcome = "failure"
)

// NoTransactionID is the sentinel shown when a session failed before any
// provider reference existed.
const NoTransactionID = "N/A"

// Receipt is the immutable user-facing record of a terminal session. It is
// the only session state retained for display after the dialog closes.
type Receipt struct {
	TransactionID   string          `json:"transaction_id"`
	Timestamp       time.Time       `json:"timestamp"`
	MethodLabel     string          `json:"method_label"`
	AmountUSD       decimal.Decimal `json:"amount_usd"`
	CurrencyDisplay string          `json:"currency_display"`
	Outcome         ReceiptOutcome  `json:"outcome"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// BuildReceipt derives the receipt from a terminal session. Purely derived,
// no side effects; calling it on a non-terminal session is a programming error
// and yields a failure receipt.
func BuildReceipt(s *PaymentSession) Receipt {
	r := Receipt{
		Timestamp:       time.Now(),
		MethodLabel:     s.MethodLabel,
		AmountUSD:       s.FinalAmountUSD,
		CurrencyDisplay: pricing.FormatDisplay(s.FinalAmountUSD, s.Currency, s.ExchangeRate),
	}
	if s.Status == SessionSucceeded {
		r.Outcome = ReceiptSuccess
		r.TransactionID = s.ProviderRef
		return r
	}
	r.Outcome = ReceiptFailure
	r.ErrorMessage = s.ErrorMessage
	r.TransactionID = s.ProviderRef
	if r.TransactionID == "" {
		r.TransactionID = NoTransactionID
	}
	return r
}

package adapter

import (
	"context"

	"course-marketplace-checkout/internal/domain/model"
)

// ProviderIntent is a provider-side handle representing an in-progress charge
// attempt: a client secret for card entry, an approval URL for redirect
// providers, or nothing at all for wallet debits.
type ProviderIntent struct {
	Reference    string // provider correlation id; survives process restarts
	ClientSecret string // direct-charge confirmation secret, if any
	ApprovalURL  string // redirect approval URL, if any
}

// Instrument is the payment input collected for confirmation. Empty for
// variants that need none (redirect, wallet).
type Instrument struct {
	Token string
}

// ChargeResult is the provider's settled outcome of a confirmed charge.
type ChargeResult struct {
	Reference   string // settled provider transaction reference
	AmountMinor int64  // settled amount in USD cents
}

// GatewayAdapter is the uniform lifecycle the orchestrator drives for any
// provider. Each stage may be a no-op for a given variant.
type GatewayAdapter interface {
	ID() string
	// Describe returns the method label shown on the receipt.
	Describe() string
	// Prepare obtains a chargeable handle from the provider.
	Prepare(ctx context.Context, s *model.PaymentSession) (ProviderIntent, error)
	// CollectInput resolves the instrument for confirmation. Direct charge
	// reads the tokenized card attached to the session; saved-instrument
	// loads and decrypts the stored token; redirect and wallet return an
	// empty instrument.
	CollectInput(ctx context.Context, s *model.PaymentSession) (Instrument, error)
	// Confirm settles the charge against the provider.
	Confirm(ctx context.Context, s *model.PaymentSession, intent ProviderIntent, ins Instrument) (ChargeResult, error)
}

// RedirectGatewayAdapter is the handoff variant: Confirm is never called
// locally. The buyer's browser leaves for ApprovalURL and completion is
// observed out-of-band via the return callback, which finalizes by reference.
type RedirectGatewayAdapter interface {
	GatewayAdapter
	// FinalizeRedirect validates and settles a returning provider reference.
	// expectedMinor is the amount the attempt was created for; providers that
	// settle a different amount fail verification.
	FinalizeRedirect(ctx context.Context, providerRef string, expectedMinor int64) (ChargeResult, error)
}

// File: internal/infra/adapters/gateway/saved_instrument_adapter.go
package gateway

import (
	"context"
	"fmt"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/ports/repository"
	"course-marketplace-checkout/internal/domain/pricing"
)

var _ adapter.GatewayAdapter = (*SavedInstrumentAdapter)(nil)

// CardCharger is the slice of the direct-charge provider API the saved
// instrument flow drives. CardLinkGateway satisfies it.
type CardCharger interface {
	CreateIntent(ctx context.Context, amountMinor int64, description string) (ref, clientSecret string, err error)
	ConfirmCharge(ctx context.Context, intentRef, cardToken string, amountMinor int64) (string, error)
}

// SavedInstrumentAdapter charges a stored card with no buyer input. The
// stored provider token replaces the card form; everything else is the same
// two-call provider flow the direct variant uses.
type SavedInstrumentAdapter struct {
	id      string
	label   string
	charger CardCharger
	methods repository.SavedMethodRepository
}

func NewSavedInstrumentAdapter(id, label string, charger CardCharger, methods repository.SavedMethodRepository) *SavedInstrumentAdapter {
	if label == "" {
		label = "Saved card"
	}
	return &SavedInstrumentAdapter{id: id, label: label, charger: charger, methods: methods}
}

func (a *SavedInstrumentAdapter) ID() string       { return a.id }
func (a *SavedInstrumentAdapter) Describe() string { return a.label }

func (a *SavedInstrumentAdapter) Prepare(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
	ref, secret, err := a.charger.CreateIntent(ctx, pricing.MinorUnits(s.FinalAmountUSD), "order "+s.OrderID)
	if err != nil {
		return adapter.ProviderIntent{}, fmt.Errorf("%v: %w", err, domain.ErrIntentCreation)
	}
	return adapter.ProviderIntent{Reference: ref, ClientSecret: secret}, nil
}

// CollectInput resolves the stored token. Ownership and gateway binding are
// both enforced here: a method id belonging to another user, or a token
// issued by a different provider, is never replayed.
func (a *SavedInstrumentAdapter) CollectInput(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error) {
	if s.SavedMethodID == "" {
		return adapter.Instrument{}, fmt.Errorf("no saved method selected: %w", domain.ErrInvalidArgument)
	}
	m, err := a.methods.FindByID(ctx, nil, s.SavedMethodID)
	if err != nil {
		return adapter.Instrument{}, fmt.Errorf("saved method lookup: %w", err)
	}
	if m.UserID != s.UserID {
		return adapter.Instrument{}, fmt.Errorf("saved method does not belong to buyer: %w", domain.ErrInvalidArgument)
	}
	if m.GatewayID != s.GatewayID {
		return adapter.Instrument{}, fmt.Errorf("saved method is bound to gateway %s: %w", m.GatewayID, domain.ErrInvalidArgument)
	}
	return adapter.Instrument{Token: m.ProviderToken}, nil
}

func (a *SavedInstrumentAdapter) Confirm(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
	amount := pricing.MinorUnits(s.FinalAmountUSD)
	txRef, err := a.charger.ConfirmCharge(ctx, intent.Reference, ins.Token, amount)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	return adapter.ChargeResult{Reference: txRef, AmountMinor: amount}, nil
}

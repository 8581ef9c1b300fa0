// File: internal/infra/adapters/gateway/noop_gateway.go
package gateway

import (
	"context"
	"fmt"
	"sync"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/pricing"
)

var (
	_ adapter.GatewayAdapter         = (*NoopGateway)(nil)
	_ adapter.RedirectGatewayAdapter = (*NoopGateway)(nil)
)

// NoopGateway is a simple in-memory gateway for tests and local development.
// It can play either variant: with an approval URL it behaves like a redirect
// provider, without one it settles direct charges immediately.
type NoopGateway struct {
	id       string
	redirect bool

	mu      sync.Mutex
	seq     int64
	intents map[string]int64 // reference -> expected amount (USD cents)
}

func NewNoopGateway(id string, redirect bool) *NoopGateway {
	return &NoopGateway{
		id:       id,
		redirect: redirect,
		intents:  make(map[string]int64),
	}
}

func (g *NoopGateway) ID() string       { return g.id }
func (g *NoopGateway) Describe() string { return "Noop" }

func (g *NoopGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopGateway) Prepare(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := g.next()
	g.intents[ref] = pricing.MinorUnits(s.FinalAmountUSD)
	intent := adapter.ProviderIntent{Reference: ref, ClientSecret: "secret-" + ref}
	if g.redirect {
		intent.ClientSecret = ""
		intent.ApprovalURL = "https://example.test/pay/" + ref
	}
	return intent, nil
}

func (g *NoopGateway) CollectInput(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error) {
	return adapter.Instrument{Token: s.InstrumentToken}, nil
}

func (g *NoopGateway) Confirm(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
	return g.settle(intent.Reference, pricing.MinorUnits(s.FinalAmountUSD))
}

func (g *NoopGateway) FinalizeRedirect(ctx context.Context, providerRef string, expectedMinor int64) (adapter.ChargeResult, error) {
	return g.settle(providerRef, expectedMinor)
}

func (g *NoopGateway) settle(ref string, expected int64) (adapter.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	amount, ok := g.intents[ref]
	if !ok {
		return adapter.ChargeResult{}, fmt.Errorf("noop: unknown reference %s: %w", ref, domain.ErrCharge)
	}
	if amount != expected {
		return adapter.ChargeResult{}, fmt.Errorf("noop: amount mismatch: expected %d got %d: %w", amount, expected, domain.ErrCharge)
	}
	delete(g.intents, ref)
	return adapter.ChargeResult{Reference: "ref-" + ref, AmountMinor: amount}, nil
}

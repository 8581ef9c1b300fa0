// File: internal/usecase/gateway_registry.go
package usecase

import (
	"context"
	"fmt"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

// AdapterSet holds the concrete adapter variants registered for one gateway.
// A slot is nil when the gateway does not support that variant.
type AdapterSet struct {
	Direct   adapter.GatewayAdapter
	Redirect adapter.RedirectGatewayAdapter
	Wallet   adapter.GatewayAdapter
	Saved    adapter.GatewayAdapter
}

type registryEntry struct {
	desc model.GatewayDescriptor
	set  AdapterSet
}

// GatewayRegistry resolves the enabled gateways, which one is primary, and
// the adapter variant to drive for a given session.
type GatewayRegistry struct {
	order   []string
	entries map[string]*registryEntry
	methods repository.SavedMethodRepository
}

func NewGatewayRegistry(methods repository.SavedMethodRepository) *GatewayRegistry {
	return &GatewayRegistry{
		entries: make(map[string]*registryEntry),
		methods: methods,
	}
}

// Register adds one gateway. Capability flags must match the provided set;
// registering a descriptor that claims a variant without an adapter for it is
// a wiring bug and is rejected.
func (r *GatewayRegistry) Register(desc model.GatewayDescriptor, set AdapterSet) error {
	if desc.ID == "" {
		return fmt.Errorf("register gateway: %w", domain.ErrInvalidArgument)
	}
	if _, dup := r.entries[desc.ID]; dup {
		return fmt.Errorf("register gateway %s: duplicate id", desc.ID)
	}
	if desc.Capabilities.DirectCharge && set.Direct == nil ||
		desc.Capabilities.Redirect && set.Redirect == nil ||
		desc.Capabilities.Wallet && set.Wallet == nil ||
		desc.Capabilities.SavedInstrument && set.Saved == nil {
		return fmt.Errorf("register gateway %s: capability without adapter", desc.ID)
	}
	r.entries[desc.ID] = &registryEntry{desc: desc, set: set}
	r.order = append(r.order, desc.ID)
	return nil
}

// Enabled returns the descriptors in registration order.
func (r *GatewayRegistry) Enabled() []model.GatewayDescriptor {
	out := make([]model.GatewayDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].desc)
	}
	return out
}

func (r *GatewayRegistry) Empty() bool { return len(r.entries) == 0 }

func (r *GatewayRegistry) Descriptor(id string) (model.GatewayDescriptor, bool) {
	e, ok := r.entries[id]
	if !ok {
		return model.GatewayDescriptor{}, false
	}
	return e.desc, true
}

// AutoSelect picks the default gateway for a new session: the primary
// descriptor, or the first registered one when no primary is configured.
// When the primary supports direct charge and the buyer has at least one
// instrument saved with it, the saved-instrument variant is preferred over
// raw card entry.
func (r *GatewayRegistry) AutoSelect(ctx context.Context, userID string) (gatewayID, savedMethodID string, err error) {
	if r.Empty() {
		return "", "", domain.ErrNoGatewaysAvailable
	}
	pick := r.entries[r.order[0]]
	for _, id := range r.order {
		if r.entries[id].desc.Primary {
			pick = r.entries[id]
			break
		}
	}
	if pick.desc.Capabilities.DirectCharge && pick.desc.Capabilities.SavedInstrument && r.methods != nil {
		methods, err := r.methods.ListByUser(ctx, nil, userID)
		if err == nil {
			for _, m := range methods {
				if m.GatewayID == pick.desc.ID {
					return pick.desc.ID, m.ID, nil
				}
			}
		}
	}
	return pick.desc.ID, "", nil
}

// AdapterFor resolves the variant to drive for the session's selected
// gateway: a saved method pins the saved-instrument variant, then native
// capability in direct > redirect > wallet order.
func (r *GatewayRegistry) AdapterFor(s *model.PaymentSession) (adapter.GatewayAdapter, error) {
	e, ok := r.entries[s.GatewayID]
	if !ok {
		return nil, domain.ErrUnsupportedGateway
	}
	if s.SavedMethodID != "" {
		if e.set.Saved == nil {
			return nil, fmt.Errorf("gateway %s: %w: no saved-instrument support", s.GatewayID, domain.ErrUnsupportedGateway)
		}
		return e.set.Saved, nil
	}
	switch {
	case e.set.Direct != nil:
		return e.set.Direct, nil
	case e.set.Redirect != nil:
		return e.set.Redirect, nil
	case e.set.Wallet != nil:
		return e.set.Wallet, nil
	}
	return nil, domain.ErrUnsupportedGateway
}

// RedirectAdapter returns the redirect variant for a gateway, used when a
// callback rehydrates an attempt by provider reference.
func (r *GatewayRegistry) RedirectAdapter(gatewayID string) (adapter.RedirectGatewayAdapter, error) {
	e, ok := r.entries[gatewayID]
	if !ok || e.set.Redirect == nil {
		return nil, domain.ErrUnsupportedGateway
	}
	return e.set.Redirect, nil
}

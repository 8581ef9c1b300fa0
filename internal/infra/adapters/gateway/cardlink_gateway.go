// File: internal/infra/adapters/gateway/cardlink_gateway.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/pricing"
)

var _ adapter.GatewayAdapter = (*CardLinkGateway)(nil)

// CardLinkGateway is the direct-charge card provider. The flow is two REST
// calls: create an intent, then confirm it with a tokenized card. The client
// secret returned by create is what the storefront card form needs.
type CardLinkGateway struct {
	id      string
	label   string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewCardLinkGateway(id, label, baseURL, apiKey string) (*CardLinkGateway, error) {
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("cardlink: base url and api key are required")
	}
	if label == "" {
		label = "Card"
	}
	return &CardLinkGateway{
		id:      id,
		label:   label,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *CardLinkGateway) ID() string       { return g.id }
func (g *CardLinkGateway) Describe() string { return g.label }

func (g *CardLinkGateway) Prepare(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
	ref, secret, err := g.CreateIntent(ctx, pricing.MinorUnits(s.FinalAmountUSD), "order "+s.OrderID)
	if err != nil {
		return adapter.ProviderIntent{}, fmt.Errorf("%v: %w", err, domain.ErrIntentCreation)
	}
	return adapter.ProviderIntent{Reference: ref, ClientSecret: secret}, nil
}

func (g *CardLinkGateway) CollectInput(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error) {
	if s.InstrumentToken == "" {
		return adapter.Instrument{}, fmt.Errorf("card token required: %w", domain.ErrInvalidArgument)
	}
	return adapter.Instrument{Token: s.InstrumentToken}, nil
}

func (g *CardLinkGateway) Confirm(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
	amount := pricing.MinorUnits(s.FinalAmountUSD)
	txRef, err := g.ConfirmCharge(ctx, intent.Reference, ins.Token, amount)
	if err != nil {
		return adapter.ChargeResult{}, err
	}
	return adapter.ChargeResult{Reference: txRef, AmountMinor: amount}, nil
}

// CreateIntent calls POST /v1/intents and returns (reference, client secret).
// Exported because the saved-instrument adapter drives the same provider API.
func (g *CardLinkGateway) CreateIntent(ctx context.Context, amountMinor int64, description string) (string, string, error) {
	payload := map[string]any{
		"amount":      amountMinor,
		"currency":    pricing.SettlementCurrency,
		"description": description,
	}
	var out struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
		Status       string `json:"status"`
	}
	if err := g.post(ctx, "/v1/intents", payload, &out); err != nil {
		return "", "", err
	}
	if out.ID == "" {
		return "", "", errors.New("cardlink: empty intent id")
	}
	return out.ID, out.ClientSecret, nil
}

// ConfirmCharge calls POST /v1/intents/{ref}/confirm with a tokenized card and
// returns the settled transaction reference.
func (g *CardLinkGateway) ConfirmCharge(ctx context.Context, intentRef, cardToken string, amountMinor int64) (string, error) {
	payload := map[string]any{
		"card_token": cardToken,
		"amount":     amountMinor,
	}
	var out struct {
		TransactionID string `json:"transaction_id"`
		Status        string `json:"status"`
		Decline       string `json:"decline_reason"`
	}
	if err := g.post(ctx, "/v1/intents/"+intentRef+"/confirm", payload, &out); err != nil {
		return "", err
	}
	if out.Status != "succeeded" || out.TransactionID == "" {
		if out.Decline != "" {
			return "", fmt.Errorf("cardlink declined: %s: %w", out.Decline, domain.ErrCharge)
		}
		return "", fmt.Errorf("cardlink charge failed: %w", domain.ErrCharge)
	}
	return out.TransactionID, nil
}

func (g *CardLinkGateway) post(ctx context.Context, path string, payload, out any) error {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cardlink http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// File: internal/infra/adapters/gateway/redirectpay_gateway.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/pricing"
)

var _ adapter.RedirectGatewayAdapter = (*RedirectPayGateway)(nil)

// RedirectPayGateway is the hosted-page provider. Prepare creates a provider
// order and hands back an approval URL; the buyer's browser leaves for it and
// Confirm is never called locally. Completion arrives on the return callback
// and is settled through FinalizeRedirect, where the provider's verify call
// with the expected amount is the authoritative outcome.
type RedirectPayGateway struct {
	id       string
	label    string
	baseURL  string
	apiKey   string
	callback string
	cancel   string
	client   *http.Client
}

func NewRedirectPayGateway(id, label, baseURL, apiKey, callbackURL, cancelURL string) (*RedirectPayGateway, error) {
	if baseURL == "" || apiKey == "" {
		return nil, errors.New("redirectpay: base url and api key are required")
	}
	if _, err := url.Parse(callbackURL); err != nil || callbackURL == "" {
		return nil, fmt.Errorf("redirectpay: invalid callback url %q", callbackURL)
	}
	if label == "" {
		label = "RedirectPay"
	}
	return &RedirectPayGateway{
		id:       id,
		label:    label,
		baseURL:  baseURL,
		apiKey:   apiKey,
		callback: callbackURL,
		cancel:   cancelURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *RedirectPayGateway) ID() string       { return g.id }
func (g *RedirectPayGateway) Describe() string { return g.label }

func (g *RedirectPayGateway) Prepare(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
	payload := map[string]any{
		"amount":      pricing.MinorUnits(s.FinalAmountUSD),
		"currency":    pricing.SettlementCurrency,
		"description": "order " + s.OrderID,
		"return_url":  g.callback,
		"cancel_url":  g.cancel,
	}
	var out struct {
		Authority   string `json:"authority"`
		ApprovalURL string `json:"approval_url"`
	}
	if err := g.post(ctx, "/v1/orders", payload, &out); err != nil {
		return adapter.ProviderIntent{}, fmt.Errorf("%v: %w", err, domain.ErrIntentCreation)
	}
	if out.Authority == "" || out.ApprovalURL == "" {
		return adapter.ProviderIntent{}, fmt.Errorf("redirectpay order rejected: %w", domain.ErrIntentCreation)
	}
	return adapter.ProviderIntent{Reference: out.Authority, ApprovalURL: out.ApprovalURL}, nil
}

func (g *RedirectPayGateway) CollectInput(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error) {
	// The provider's hosted page collects everything.
	return adapter.Instrument{}, nil
}

func (g *RedirectPayGateway) Confirm(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
	return adapter.ChargeResult{}, errors.New("redirectpay: confirm is handled via the return callback")
}

// FinalizeRedirect verifies the authority with the provider. The verify call
// carries the expected amount; a settlement for any other amount fails here.
func (g *RedirectPayGateway) FinalizeRedirect(ctx context.Context, providerRef string, expectedMinor int64) (adapter.ChargeResult, error) {
	payload := map[string]any{
		"authority": providerRef,
		"amount":    expectedMinor,
	}
	var out struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
		Amount        int64  `json:"amount"`
	}
	if err := g.post(ctx, "/v1/orders/verify", payload, &out); err != nil {
		return adapter.ChargeResult{}, err
	}
	// "verified" means an earlier verify already settled this authority.
	if (out.Status != "paid" && out.Status != "verified") || out.TransactionID == "" {
		return adapter.ChargeResult{}, fmt.Errorf("redirectpay verify failed (%s): %w", out.Status, domain.ErrCharge)
	}
	if out.Amount != expectedMinor {
		return adapter.ChargeResult{}, fmt.Errorf("redirectpay settled %d, expected %d: %w", out.Amount, expectedMinor, domain.ErrRedirectValidation)
	}
	return adapter.ChargeResult{Reference: out.TransactionID, AmountMinor: out.Amount}, nil
}

func (g *RedirectPayGateway) post(ctx context.Context, path string, payload, out any) error {
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
		return fmt.Errorf("redirectpay http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

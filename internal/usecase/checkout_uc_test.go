//go:build !integration

// File: internal/usecase/checkout_uc_test.go
package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/usecase"
)

// checkoutDeps holds all the mock dependencies for the checkout tests.
type checkoutDeps struct {
	orders   *MockOrderSource
	coupons  *MockCouponService
	wallet   *MockWalletService
	store    *MockSessionStore
	attempts *MockAttemptRepo
	tm       *MockTxManager
	locker   *MockLocker
	methods  *MockSavedMethodRepo
	registry *usecase.GatewayRegistry

	direct   *MockGatewayAdapter
	redirect *MockRedirectAdapter
	walletGW *MockGatewayAdapter
}

func newCheckoutDeps(t *testing.T) *checkoutDeps {
	t.Helper()
	d := &checkoutDeps{
		orders:   &MockOrderSource{},
		coupons:  &MockCouponService{},
		wallet:   &MockWalletService{},
		store:    NewMockSessionStore(),
		attempts: NewMockAttemptRepo(),
		tm:       &MockTxManager{},
		locker:   NewMockLocker(),
		methods:  NewMockSavedMethodRepo(),
		direct:   &MockGatewayAdapter{IDVal: "card", Label: "Card"},
		redirect: &MockRedirectAdapter{MockGatewayAdapter: MockGatewayAdapter{IDVal: "redirectpay", Label: "RedirectPay"}},
		walletGW: &MockGatewayAdapter{IDVal: "wallet", Label: "Store credit"},
	}
	d.orders.GetOrderFunc = func(ctx context.Context, orderID string) (*model.Order, error) {
		if orderID != "order-1" {
			return nil, domain.ErrOrderNotFound
		}
		return &model.Order{
			ID:            "order-1",
			CourseID:      "course-1",
			Title:         "Intro to Distributed Systems",
			BaseAmountUSD: decimal.NewFromInt(100),
			Currency:      "USD",
		}, nil
	}

	d.registry = usecase.NewGatewayRegistry(d.methods)
	mustRegister := func(desc model.GatewayDescriptor, set usecase.AdapterSet) {
		if err := d.registry.Register(desc, set); err != nil {
			t.Fatalf("register gateway: %v", err)
		}
	}
	mustRegister(model.GatewayDescriptor{
		ID: "card", DisplayName: "Card", Primary: true,
		Capabilities: model.GatewayCapabilities{DirectCharge: true},
	}, usecase.AdapterSet{Direct: d.direct})
	mustRegister(model.GatewayDescriptor{
		ID: "redirectpay", DisplayName: "RedirectPay",
		Capabilities: model.GatewayCapabilities{Redirect: true},
	}, usecase.AdapterSet{Redirect: d.redirect})
	mustRegister(model.GatewayDescriptor{
		ID: "wallet", DisplayName: "Store credit",
		Capabilities: model.GatewayCapabilities{Wallet: true},
	}, usecase.AdapterSet{Wallet: d.walletGW})
	return d
}

func (d *checkoutDeps) uc() usecase.CheckoutUseCase {
	rates := map[string]decimal.Decimal{"MXN": decimal.RequireFromString("17.35")}
	return usecase.NewCheckoutUseCase(d.orders, d.coupons, d.wallet, d.registry, d.store, d.attempts, d.tm, d.locker, rates, newTestLogger())
}

func startSession(t *testing.T, uc usecase.CheckoutUseCase) *model.PaymentSession {
	t.Helper()
	s, err := uc.StartSession(context.Background(), "user-1", "order-1", "")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return s
}

func TestCheckoutStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("selects the primary gateway and records amounts", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.wallet.GetBalanceFunc = func(ctx context.Context, userID string) (model.WalletBalance, error) {
			return model.WalletBalance{BalanceUSD: decimal.NewFromInt(12)}, nil
		}

		s, err := d.uc().StartSession(ctx, "user-1", "order-1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.GatewayID != "card" {
			t.Errorf("expected primary gateway 'card', got %q", s.GatewayID)
		}
		if s.Status != model.SessionSelecting {
			t.Errorf("expected status selecting, got %s", s.Status)
		}
		if !s.FinalAmountUSD.Equal(decimal.NewFromInt(100)) {
			t.Errorf("expected final 100, got %s", s.FinalAmountUSD)
		}
		if !s.WalletBalanceUSD.Equal(decimal.NewFromInt(12)) {
			t.Errorf("expected advisory wallet balance 12, got %s", s.WalletBalanceUSD)
		}
	})

	t.Run("prefers a saved instrument on the primary gateway", func(t *testing.T) {
		d := newCheckoutDeps(t)
		// Rebuild the registry so card also advertises saved-instrument.
		d.registry = usecase.NewGatewayRegistry(d.methods)
		saved := &MockGatewayAdapter{IDVal: "card", Label: "Saved card"}
		if err := d.registry.Register(model.GatewayDescriptor{
			ID: "card", DisplayName: "Card", Primary: true,
			Capabilities: model.GatewayCapabilities{DirectCharge: true, SavedInstrument: true},
		}, usecase.AdapterSet{Direct: d.direct, Saved: saved}); err != nil {
			t.Fatalf("register: %v", err)
		}
		_ = d.methods.Save(ctx, nil, &model.SavedPaymentMethod{ID: "pm-1", UserID: "user-1", GatewayID: "card"})

		s, err := d.uc().StartSession(ctx, "user-1", "order-1", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.SavedMethodID != "pm-1" {
			t.Errorf("expected saved method pm-1 preselected, got %q", s.SavedMethodID)
		}
	})

	t.Run("fails without any configured gateway", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.registry = usecase.NewGatewayRegistry(d.methods)
		if _, err := d.uc().StartSession(ctx, "user-1", "order-1", ""); !errors.Is(err, domain.ErrNoGatewaysAvailable) {
			t.Fatalf("expected ErrNoGatewaysAvailable, got %v", err)
		}
	})

	t.Run("fails for a display currency without a rate", func(t *testing.T) {
		d := newCheckoutDeps(t)
		if _, err := d.uc().StartSession(ctx, "user-1", "order-1", "JPY"); !errors.Is(err, domain.ErrMissingExchangeRate) {
			t.Fatalf("expected ErrMissingExchangeRate, got %v", err)
		}
	})

	t.Run("records the configured display rate", func(t *testing.T) {
		d := newCheckoutDeps(t)
		s, err := d.uc().StartSession(ctx, "user-1", "order-1", "MXN")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Currency != "MXN" || !s.ExchangeRate.Equal(decimal.RequireFromString("17.35")) {
			t.Errorf("expected MXN at 17.35, got %s at %s", s.Currency, s.ExchangeRate)
		}
	})
}

func TestCheckoutApplyCoupon(t *testing.T) {
	ctx := context.Background()

	t.Run("percentage coupon with cap", func(t *testing.T) {
		d := newCheckoutDeps(t)
		cap := decimal.NewFromInt(15)
		d.coupons.ValidateFunc = func(ctx context.Context, code, orderID string) (*model.CouponApplication, error) {
			return &model.CouponApplication{
				Code: code, DiscountType: model.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(20), MaxDiscount: &cap,
			}, nil
		}
		uc := d.uc()
		s := startSession(t, uc)

		s, err := uc.ApplyCoupon(ctx, s.ID, "LAUNCH20")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !s.DiscountAmountUSD.Equal(decimal.NewFromInt(15)) {
			t.Errorf("expected discount capped at 15, got %s", s.DiscountAmountUSD)
		}
		if !s.FinalAmountUSD.Equal(decimal.NewFromInt(85)) {
			t.Errorf("expected final 85, got %s", s.FinalAmountUSD)
		}
	})

	t.Run("fixed coupon larger than the order is rejected", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.coupons.ValidateFunc = func(ctx context.Context, code, orderID string) (*model.CouponApplication, error) {
			return &model.CouponApplication{
				Code: code, DiscountType: model.DiscountFixed,
				DiscountValue: decimal.NewFromInt(150),
			}, nil
		}
		uc := d.uc()
		s := startSession(t, uc)

		if _, err := uc.ApplyCoupon(ctx, s.ID, "BIGONE"); !errors.Is(err, domain.ErrCouponExceedsAmount) {
			t.Fatalf("expected ErrCouponExceedsAmount, got %v", err)
		}
	})

	t.Run("rejected while a payment is in flight", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		s := startSession(t, uc)
		s.Status = model.SessionProcessing
		_ = d.store.Put(ctx, s)

		if _, err := uc.ApplyCoupon(ctx, s.ID, "ANY"); !errors.Is(err, domain.ErrAlreadyProcessing) {
			t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
		}
	})
}

func TestCheckoutSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("direct charge succeeds and records the receipt", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.direct.ConfirmFunc = func(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
			if ins.Token != "tok-visa" {
				t.Errorf("expected instrument token tok-visa, got %q", ins.Token)
			}
			return adapter.ChargeResult{Reference: "tx-42", AmountMinor: 10000}, nil
		}
		uc := d.uc()
		s := startSession(t, uc)

		s, err := uc.Submit(ctx, s.ID, usecase.SubmitInput{InstrumentToken: "tok-visa"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Status != model.SessionSucceeded {
			t.Fatalf("expected succeeded, got %s (%s)", s.Status, s.ErrorMessage)
		}
		if s.Receipt == nil || s.Receipt.TransactionID != "tx-42" {
			t.Errorf("expected receipt with tx-42, got %+v", s.Receipt)
		}
		if d.direct.PrepareCalls != 1 || d.direct.ConfirmCalls != 1 {
			t.Errorf("expected exactly one prepare and one confirm, got %d/%d", d.direct.PrepareCalls, d.direct.ConfirmCalls)
		}
		if _, err := d.attempts.FindByID(ctx, nil, s.ID); err != nil {
			t.Error("expected terminal attempt persisted to the durable log")
		}
	})

	t.Run("double submit is rejected before any provider call", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		s := startSession(t, uc)
		s.Status = model.SessionProcessing
		_ = d.store.Put(ctx, s)

		if _, err := uc.Submit(ctx, s.ID, usecase.SubmitInput{InstrumentToken: "tok"}); !errors.Is(err, domain.ErrAlreadyProcessing) {
			t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
		}
		if d.direct.PrepareCalls != 0 {
			t.Errorf("expected no prepare calls, got %d", d.direct.PrepareCalls)
		}
	})

	t.Run("concurrent submit loses the lock", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.locker.TryLockFunc = func(ctx context.Context, key string, ttl time.Duration) (string, error) {
			return "", domain.ErrLockNotAcquired
		}
		uc := d.uc()
		s := startSession(t, uc)

		if _, err := uc.Submit(ctx, s.ID, usecase.SubmitInput{InstrumentToken: "tok"}); !errors.Is(err, domain.ErrAlreadyProcessing) {
			t.Fatalf("expected ErrAlreadyProcessing, got %v", err)
		}
	})

	t.Run("submit racing a completed submit charges once", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		s := startSession(t, uc)

		// The first lock grant is held back until a competing submit has run
		// to completion, so both requests start from the same selecting state.
		interleaved := false
		d.locker.TryLockFunc = func(ctx context.Context, key string, ttl time.Duration) (string, error) {
			if !interleaved {
				interleaved = true
				if _, err := uc.Submit(ctx, s.ID, usecase.SubmitInput{InstrumentToken: "tok-visa"}); err != nil {
					t.Fatalf("competing submit: %v", err)
				}
			}
			return "tok-" + key, nil
		}

		if _, err := uc.Submit(ctx, s.ID, usecase.SubmitInput{InstrumentToken: "tok-visa"}); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected the late submit rejected as terminal, got %v", err)
		}
		if d.direct.PrepareCalls != 1 || d.direct.ConfirmCalls != 1 {
			t.Errorf("expected exactly one charge, got %d prepares / %d confirms", d.direct.PrepareCalls, d.direct.ConfirmCalls)
		}
		settled, err := uc.Get(ctx, s.ID)
		if err != nil || settled.Status != model.SessionSucceeded {
			t.Fatalf("expected the first submit's settlement kept, got %v / %v", settled, err)
		}
	})

	t.Run("free order settles without a gateway", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.coupons.ValidateFunc = func(ctx context.Context, code, orderID string) (*model.CouponApplication, error) {
			return &model.CouponApplication{
				Code: code, DiscountType: model.DiscountPercentage,
				DiscountValue: decimal.NewFromInt(100),
			}, nil
		}
		uc := d.uc()
		s := startSession(t, uc)
		s, err := uc.ApplyCoupon(ctx, s.ID, "FREE100")
		if err != nil {
			t.Fatalf("apply coupon: %v", err)
		}

		s, err = uc.Submit(ctx, s.ID, usecase.SubmitInput{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Status != model.SessionSucceeded {
			t.Fatalf("expected succeeded, got %s", s.Status)
		}
		if !strings.HasPrefix(s.ProviderRef, "free-") {
			t.Errorf("expected synthesized free reference, got %q", s.ProviderRef)
		}
		if d.direct.PrepareCalls != 0 {
			t.Errorf("expected no provider calls for a free order, got %d", d.direct.PrepareCalls)
		}
		if len(d.coupons.Redeemed) != 1 {
			t.Errorf("expected coupon redeemed once, got %v", d.coupons.Redeemed)
		}
	})

	t.Run("wallet shortfall fails fast with no provider reference", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.walletGW.PrepareFunc = func(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
			return adapter.ProviderIntent{}, domain.ErrInsufficientBalance
		}
		uc := d.uc()
		s := startSession(t, uc)
		s, err := uc.SelectGateway(ctx, s.ID, "wallet")
		if err != nil {
			t.Fatalf("select gateway: %v", err)
		}

		s, err = uc.Submit(ctx, s.ID, usecase.SubmitInput{})
		if err != nil {
			t.Fatalf("collaborator failures terminate the session, not the call: %v", err)
		}
		if s.Status != model.SessionFailed {
			t.Fatalf("expected failed, got %s", s.Status)
		}
		if s.ProviderRef != "" {
			t.Errorf("expected no provider reference, got %q", s.ProviderRef)
		}
		if d.walletGW.ConfirmCalls != 0 {
			t.Errorf("expected no confirm after failed prepare, got %d", d.walletGW.ConfirmCalls)
		}
	})

	t.Run("redirect handoff parks the session as awaiting-redirect", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.redirect.PrepareFunc = func(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
			return adapter.ProviderIntent{Reference: "auth-9", ApprovalURL: "https://pay.example/approve/auth-9"}, nil
		}
		uc := d.uc()
		s := startSession(t, uc)
		s, err := uc.SelectGateway(ctx, s.ID, "redirectpay")
		if err != nil {
			t.Fatalf("select gateway: %v", err)
		}

		s, err = uc.Submit(ctx, s.ID, usecase.SubmitInput{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Status != model.SessionAwaitingRedirect {
			t.Fatalf("expected awaiting-redirect, got %s", s.Status)
		}
		if s.RedirectURL == "" || s.ProviderRef != "auth-9" {
			t.Errorf("expected redirect url and provider ref, got %q / %q", s.RedirectURL, s.ProviderRef)
		}
		// The attempt must be durable before the buyer leaves.
		if _, err := d.attempts.FindByProviderRef(ctx, nil, "auth-9"); err != nil {
			t.Error("expected awaiting attempt persisted to the durable log")
		}
		if d.redirect.ConfirmCalls != 0 {
			t.Errorf("confirm must never run locally for redirect, got %d calls", d.redirect.ConfirmCalls)
		}
	})
}

func TestCheckoutResumeRedirect(t *testing.T) {
	ctx := context.Background()

	// awaitingAttempt stages a durable awaiting-redirect attempt.
	awaitingAttempt := func(t *testing.T, d *checkoutDeps, uc usecase.CheckoutUseCase) *model.PaymentSession {
		t.Helper()
		d.redirect.PrepareFunc = func(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
			return adapter.ProviderIntent{Reference: "auth-1", ApprovalURL: "https://pay.example/approve/auth-1"}, nil
		}
		s := startSession(t, uc)
		s, err := uc.SelectGateway(ctx, s.ID, "redirectpay")
		if err != nil {
			t.Fatalf("select gateway: %v", err)
		}
		s, err = uc.Submit(ctx, s.ID, usecase.SubmitInput{})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		return s
	}

	t.Run("verifies with the provider and succeeds", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		awaitingAttempt(t, d, uc)

		var verifiedMinor int64
		d.redirect.FinalizeFunc = func(ctx context.Context, ref string, expectedMinor int64) (adapter.ChargeResult, error) {
			verifiedMinor = expectedMinor
			return adapter.ChargeResult{Reference: "tx-9", AmountMinor: expectedMinor}, nil
		}

		s, err := uc.ResumeRedirect(ctx, "auth-1", true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Status != model.SessionSucceeded {
			t.Fatalf("expected succeeded, got %s (%s)", s.Status, s.ErrorMessage)
		}
		if verifiedMinor != 10000 {
			t.Errorf("expected verify against 10000 cents, got %d", verifiedMinor)
		}
		if len(d.coupons.Redeemed) != 0 {
			t.Errorf("no coupon on this attempt, got redemptions %v", d.coupons.Redeemed)
		}
		if d.tm.Calls != 1 {
			t.Errorf("expected the durable finalize inside one transaction, got %d", d.tm.Calls)
		}
	})

	t.Run("order source outage surfaces the cause in the failure", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		awaitingAttempt(t, d, uc)

		d.orders.GetOrderFunc = func(ctx context.Context, orderID string) (*model.Order, error) {
			return nil, errors.New("catalog timeout")
		}

		s, err := uc.ResumeRedirect(ctx, "auth-1", true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Status != model.SessionFailed {
			t.Fatalf("expected failed, got %s", s.Status)
		}
		if !strings.Contains(s.ErrorMessage, "catalog timeout") {
			t.Errorf("expected the cause in the failure message, got %q", s.ErrorMessage)
		}
		if d.redirect.FinalizeCalls != 0 {
			t.Errorf("expected no provider verify, got %d", d.redirect.FinalizeCalls)
		}
	})

	t.Run("duplicate callback is idempotent", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		awaitingAttempt(t, d, uc)

		if _, err := uc.ResumeRedirect(ctx, "auth-1", true); err != nil {
			t.Fatalf("first finalize: %v", err)
		}
		s, err := uc.ResumeRedirect(ctx, "auth-1", true)
		if err != nil {
			t.Fatalf("second finalize: %v", err)
		}
		if s.Status != model.SessionSucceeded {
			t.Fatalf("expected succeeded, got %s", s.Status)
		}
		if d.redirect.FinalizeCalls != 1 {
			t.Errorf("expected provider verify to run once, got %d", d.redirect.FinalizeCalls)
		}
	})

	t.Run("amount mismatch against the order source fails validation", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		awaitingAttempt(t, d, uc)

		// Price changed while the buyer was at the provider.
		d.orders.GetOrderFunc = func(ctx context.Context, orderID string) (*model.Order, error) {
			return &model.Order{ID: "order-1", BaseAmountUSD: decimal.NewFromInt(120)}, nil
		}

		s, err := uc.ResumeRedirect(ctx, "auth-1", true)
		if err != nil {
			t.Fatalf("validation failure terminates the attempt, not the call: %v", err)
		}
		if s.Status != model.SessionFailed {
			t.Fatalf("expected failed, got %s", s.Status)
		}
		if d.redirect.FinalizeCalls != 0 {
			t.Errorf("expected no provider verify after failed validation, got %d", d.redirect.FinalizeCalls)
		}
	})

	t.Run("cancelled at provider records a failure", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		awaitingAttempt(t, d, uc)

		d.redirect.FinalizeFunc = func(ctx context.Context, ref string, expectedMinor int64) (adapter.ChargeResult, error) {
			return adapter.ChargeResult{}, domain.ErrCharge
		}

		s, err := uc.ResumeRedirect(ctx, "auth-1", false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.Status != model.SessionFailed {
			t.Fatalf("expected failed, got %s", s.Status)
		}
	})

	t.Run("unknown provider reference", func(t *testing.T) {
		d := newCheckoutDeps(t)
		if _, err := d.uc().ResumeRedirect(ctx, "nope", true); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestCheckoutRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retry creates a fresh attempt and discards the provider reference", func(t *testing.T) {
		d := newCheckoutDeps(t)
		d.direct.ConfirmFunc = func(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
			return adapter.ChargeResult{}, domain.ErrCharge
		}
		d.coupons.ValidateFunc = func(ctx context.Context, code, orderID string) (*model.CouponApplication, error) {
			return &model.CouponApplication{Code: code, DiscountType: model.DiscountFixed, DiscountValue: decimal.NewFromInt(10)}, nil
		}
		uc := d.uc()
		s := startSession(t, uc)
		s, err := uc.ApplyCoupon(ctx, s.ID, "TEN")
		if err != nil {
			t.Fatalf("apply coupon: %v", err)
		}
		failed, err := uc.Submit(ctx, s.ID, usecase.SubmitInput{InstrumentToken: "tok"})
		if err != nil || failed.Status != model.SessionFailed {
			t.Fatalf("expected a failed attempt, got %v / %v", failed, err)
		}

		fresh, err := uc.Retry(ctx, failed.ID)
		if err != nil {
			t.Fatalf("retry: %v", err)
		}
		if fresh.ID == failed.ID {
			t.Error("retry must mint a new session id")
		}
		if fresh.ProviderRef != "" {
			t.Errorf("retry must not reuse the provider reference, got %q", fresh.ProviderRef)
		}
		if fresh.Status != model.SessionSelecting {
			t.Errorf("expected selecting, got %s", fresh.Status)
		}
		if !fresh.FinalAmountUSD.Equal(decimal.NewFromInt(90)) || fresh.Coupon == nil {
			t.Errorf("expected pricing carried forward (90 with coupon), got %s", fresh.FinalAmountUSD)
		}
	})

	t.Run("retry is rejected for non-failed sessions", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		s := startSession(t, uc)
		if _, err := uc.Retry(ctx, s.ID); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestCheckoutSelectGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("switching gateways clears the prepared intent", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		s := startSession(t, uc)
		s.ProviderRef = "stale-intent"
		s.RedirectURL = "https://pay.example/old"
		_ = d.store.Put(ctx, s)

		s, err := uc.SelectGateway(ctx, s.ID, "redirectpay")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if s.ProviderRef != "" || s.RedirectURL != "" {
			t.Errorf("expected stale intent cleared, got %q / %q", s.ProviderRef, s.RedirectURL)
		}
		if s.GatewayID != "redirectpay" {
			t.Errorf("expected redirectpay, got %s", s.GatewayID)
		}
	})

	t.Run("unknown gateway id", func(t *testing.T) {
		d := newCheckoutDeps(t)
		uc := d.uc()
		s := startSession(t, uc)
		if _, err := uc.SelectGateway(ctx, s.ID, "paypal"); !errors.Is(err, domain.ErrUnsupportedGateway) {
			t.Fatalf("expected ErrUnsupportedGateway, got %v", err)
		}
	})
}

func TestCheckoutAbandon(t *testing.T) {
	ctx := context.Background()
	d := newCheckoutDeps(t)
	uc := d.uc()
	s := startSession(t, uc)

	if err := uc.Abandon(ctx, s.ID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := uc.Get(ctx, s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after abandon, got %v", err)
	}
}

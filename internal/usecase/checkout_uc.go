// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/ports/repository"
	"course-marketplace-checkout/internal/domain/pricing"
	"course-marketplace-checkout/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// SubmitInput carries the buyer-entered instrument for the submit call.
// Both fields are optional; which one is required depends on the variant.
type SubmitInput struct {
	InstrumentToken string // tokenized card for direct charge
	SavedMethodID   string // stored instrument id for saved-instrument charge
}

// CheckoutUseCase is the checkout orchestrator: it owns the payment session
// state machine and drives the selected gateway adapter through its
// lifecycle. Collaborator failures never escape as errors; they terminate the
// session as failed with a render-able message. Errors are returned only for
// caller mistakes (unknown session, duplicate submit, invalid arguments).
type CheckoutUseCase interface {
	StartSession(ctx context.Context, userID, orderID, displayCurrency string) (*model.PaymentSession, error)
	ApplyCoupon(ctx context.Context, sessionID, code string) (*model.PaymentSession, error)
	SelectGateway(ctx context.Context, sessionID, gatewayID string) (*model.PaymentSession, error)
	Submit(ctx context.Context, sessionID string, in SubmitInput) (*model.PaymentSession, error)
	// ResumeRedirect rehydrates an attempt from its provider reference when
	// the buyer returns from a redirect handoff. approved is the provider's
	// advisory status flag; settlement is always re-verified server side.
	ResumeRedirect(ctx context.Context, providerRef string, approved bool) (*model.PaymentSession, error)
	Retry(ctx context.Context, sessionID string) (*model.PaymentSession, error)
	Abandon(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (*model.PaymentSession, error)
}

type checkoutUC struct {
	orders   adapter.OrderSource
	coupons  adapter.CouponService
	wallet   adapter.WalletService
	registry *GatewayRegistry
	store    repository.SessionStore
	attempts repository.SessionRepository
	tm       repository.TransactionManager
	locker   repository.Locker
	rates    map[string]decimal.Decimal
	log      *zerolog.Logger
}

const (
	submitLockTTL   = 30 * time.Second
	finalizeLockTTL = 30 * time.Second
)

func NewCheckoutUseCase(
	orders adapter.OrderSource,
	coupons adapter.CouponService,
	wallet adapter.WalletService,
	registry *GatewayRegistry,
	store repository.SessionStore,
	attempts repository.SessionRepository,
	tm repository.TransactionManager,
	locker repository.Locker,
	rates map[string]decimal.Decimal,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{
		orders:   orders,
		coupons:  coupons,
		wallet:   wallet,
		registry: registry,
		store:    store,
		attempts: attempts,
		tm:       tm,
		locker:   locker,
		rates:    rates,
		log:      logger,
	}
}

func (u *checkoutUC) StartSession(ctx context.Context, userID, orderID, displayCurrency string) (*model.PaymentSession, error) {
	if u.registry.Empty() {
		return nil, domain.ErrNoGatewaysAvailable
	}
	order, err := u.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	rate := decimal.NewFromInt(1)
	currency := pricing.SettlementCurrency
	if displayCurrency != "" && displayCurrency != pricing.SettlementCurrency {
		r, ok := u.rates[displayCurrency]
		if !ok {
			return nil, fmt.Errorf("currency %s: %w", displayCurrency, domain.ErrMissingExchangeRate)
		}
		rate = r
		currency = displayCurrency
	}

	now := time.Now()
	s := &model.PaymentSession{
		ID:             ulid.Make().String(),
		UserID:         userID,
		OrderID:        order.ID,
		BaseAmountUSD:  order.BaseAmountUSD,
		FinalAmountUSD: order.BaseAmountUSD,
		Currency:       currency,
		ExchangeRate:   rate,
		Status:         model.SessionIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Advisory only; the authoritative check happens inside Debit.
	if bal, err := u.wallet.GetBalance(ctx, userID); err == nil {
		s.WalletBalanceUSD = bal.BalanceUSD
	}

	gatewayID, savedMethodID, err := u.registry.AutoSelect(ctx, userID)
	if err != nil {
		return nil, err
	}
	desc, _ := u.registry.Descriptor(gatewayID)
	s.SelectGateway(gatewayID, desc.DisplayName)
	s.SavedMethodID = savedMethodID

	if err := u.store.Put(ctx, s); err != nil {
		return nil, err
	}
	u.log.Info().Str("session_id", s.ID).Str("order_id", orderID).
		Str("gateway", gatewayID).Str("amount", s.BaseAmountUSD.String()).
		Msg("checkout session started")
	return s, nil
}

func (u *checkoutUC) ApplyCoupon(ctx context.Context, sessionID, code string) (*model.PaymentSession, error) {
	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.InFlight() {
		return nil, domain.ErrAlreadyProcessing
	}
	if s.Terminal() {
		return nil, fmt.Errorf("session is terminal: %w", domain.ErrInvalidArgument)
	}

	app, err := u.coupons.Validate(ctx, code, s.OrderID)
	if err != nil {
		return nil, err
	}
	// A fixed coupon nominally worth more than the order is a merchandising
	// mistake, not a free order; reject instead of clamping silently.
	if app.DiscountType == model.DiscountFixed && app.DiscountValue.GreaterThan(s.BaseAmountUSD) {
		return nil, domain.ErrCouponExceedsAmount
	}

	discount := pricing.ComputeDiscount(s.BaseAmountUSD, discountTerms(app))
	s.ApplyPricing(app, discount)
	if err := u.store.Put(ctx, s); err != nil {
		return nil, err
	}
	metrics.IncCouponApplied(string(app.DiscountType))
	u.log.Info().Str("session_id", s.ID).Str("coupon", app.Code).
		Str("discount", discount.String()).Msg("coupon applied")
	return s, nil
}

func (u *checkoutUC) SelectGateway(ctx context.Context, sessionID, gatewayID string) (*model.PaymentSession, error) {
	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.InFlight() {
		return nil, domain.ErrAlreadyProcessing
	}
	if s.Terminal() {
		return nil, fmt.Errorf("session is terminal: %w", domain.ErrInvalidArgument)
	}
	desc, ok := u.registry.Descriptor(gatewayID)
	if !ok {
		return nil, domain.ErrUnsupportedGateway
	}
	// Switching gateways invalidates any previously prepared intent.
	s.SelectGateway(desc.ID, desc.DisplayName)
	s.SavedMethodID = ""
	if err := u.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (u *checkoutUC) Submit(ctx context.Context, sessionID string, in SubmitInput) (*model.PaymentSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session id: %w", domain.ErrInvalidArgument)
	}
	// The lock is taken before the session is read: the guards below always
	// run against a post-lock snapshot, so a submit that raced a completed
	// one observes the terminal state, never a stale pre-charge copy.
	token, err := u.locker.TryLock(ctx, "checkout:submit:"+sessionID, submitLockTTL)
	if err != nil {
		return nil, domain.ErrAlreadyProcessing
	}
	defer func() { _ = u.locker.Unlock(ctx, "checkout:submit:"+sessionID, token) }()

	s, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.InFlight() {
		return nil, domain.ErrAlreadyProcessing
	}
	if s.Terminal() {
		return nil, fmt.Errorf("session is terminal, use retry: %w", domain.ErrInvalidArgument)
	}
	if s.GatewayID == "" {
		return nil, fmt.Errorf("no gateway selected: %w", domain.ErrInvalidArgument)
	}

	if in.SavedMethodID != "" {
		s.SavedMethodID = in.SavedMethodID
	}
	s.InstrumentToken = in.InstrumentToken

	// Free orders settle locally; no charge service is ever invoked.
	if s.FinalAmountUSD.IsZero() {
		s.MethodLabel = "Free enrollment"
		s.Succeed("free-" + s.ID)
		return s, u.persistTerminal(ctx, s)
	}

	ad, err := u.registry.AdapterFor(s)
	if err != nil {
		return nil, err
	}
	s.MethodLabel = ad.Describe()

	s.Status = model.SessionInitializing
	s.UpdatedAt = time.Now()
	if err := u.store.Put(ctx, s); err != nil {
		return nil, err
	}

	intent, err := ad.Prepare(ctx, s)
	if err != nil {
		// Wallet short-fall is detected here, before any external call, and
		// carries no provider reference.
		if errors.Is(err, domain.ErrInsufficientBalance) {
			s.Fail("insufficient wallet balance")
		} else {
			s.Fail(fmt.Sprintf("could not start payment: %v", err))
		}
		u.log.Warn().Err(err).Str("session_id", s.ID).Str("gateway", s.GatewayID).Msg("prepare failed")
		return s, u.persistTerminal(ctx, s)
	}
	s.ProviderRef = intent.Reference

	if intent.ApprovalURL != "" {
		// Navigation handoff: terminal for this process. The return callback
		// rehydrates the attempt from the durable log by provider reference.
		s.Status = model.SessionAwaitingRedirect
		s.RedirectURL = intent.ApprovalURL
		s.UpdatedAt = time.Now()
		if err := u.attempts.Save(ctx, nil, s); err != nil {
			return nil, err
		}
		if err := u.store.Put(ctx, s); err != nil {
			return nil, err
		}
		u.log.Info().Str("session_id", s.ID).Str("provider_ref", s.ProviderRef).Msg("awaiting redirect approval")
		return s, nil
	}

	s.Status = model.SessionProcessing
	s.UpdatedAt = time.Now()
	if err := u.store.Put(ctx, s); err != nil {
		return nil, err
	}

	ins, err := ad.CollectInput(ctx, s)
	if err != nil {
		s.Fail(fmt.Sprintf("payment input rejected: %v", err))
		return s, u.persistTerminal(ctx, s)
	}

	started := time.Now()
	res, err := ad.Confirm(ctx, s, intent, ins)
	metrics.ObserveGatewayCharge(s.GatewayID, err == nil, time.Since(started).Milliseconds())
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			s.Fail("insufficient wallet balance")
		} else {
			s.Fail(fmt.Sprintf("payment declined: %v", err))
		}
		u.log.Warn().Err(err).Str("session_id", s.ID).Str("gateway", s.GatewayID).Msg("confirm failed")
		return s, u.persistTerminal(ctx, s)
	}

	s.Succeed(res.Reference)
	u.log.Info().Str("session_id", s.ID).Str("transaction_id", res.Reference).
		Str("amount", s.FinalAmountUSD.String()).Msg("payment succeeded")
	return s, u.persistTerminal(ctx, s)
}

func (u *checkoutUC) ResumeRedirect(ctx context.Context, providerRef string, approved bool) (*model.PaymentSession, error) {
	if providerRef == "" {
		return nil, fmt.Errorf("empty provider reference: %w", domain.ErrInvalidArgument)
	}
	token, err := u.locker.TryLock(ctx, "checkout:finalize:"+providerRef, finalizeLockTTL)
	if err != nil {
		return nil, domain.ErrAlreadyProcessing
	}
	defer func() { _ = u.locker.Unlock(ctx, "checkout:finalize:"+providerRef, token) }()

	s, err := u.attempts.FindByProviderRef(ctx, nil, providerRef)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if s.Terminal() {
		// Duplicate callback delivery; the first finalize won.
		return s, nil
	}

	// The redirect URL is attacker-observable, so the callback is never
	// trusted on its own: re-validate the settled amount against the order
	// source before any money state changes.
	order, err := u.orders.GetOrder(ctx, s.OrderID)
	if err != nil {
		u.log.Error().Err(err).Str("session_id", s.ID).Str("order_id", s.OrderID).Msg("order re-validation failed")
		return u.finalizeFailed(ctx, s, fmt.Sprintf("order re-validation failed: %v", err))
	}
	expected := pricing.ComputeFinal(order.BaseAmountUSD, s.DiscountAmountUSD)
	if !expected.Equal(s.FinalAmountUSD) {
		u.log.Error().Str("session_id", s.ID).Str("provider_ref", providerRef).
			Str("expected", expected.String()).Str("recorded", s.FinalAmountUSD.String()).
			Msg("redirect amount mismatch")
		return u.finalizeFailed(ctx, s, domain.ErrRedirectValidation.Error())
	}

	ad, err := u.registry.RedirectAdapter(s.GatewayID)
	if err != nil {
		return u.finalizeFailed(ctx, s, fmt.Sprintf("gateway no longer enabled: %v", err))
	}

	// The provider's verify call is authoritative, not the approved flag: a
	// buyer who cancelled produces a failed verification here.
	started := time.Now()
	res, err := ad.FinalizeRedirect(ctx, providerRef, pricing.MinorUnits(s.FinalAmountUSD))
	metrics.ObserveGatewayCharge(s.GatewayID, err == nil, time.Since(started).Milliseconds())
	if err != nil {
		msg := fmt.Sprintf("payment not completed: %v", err)
		if !approved {
			msg = "payment cancelled at provider"
		}
		return u.finalizeFailed(ctx, s, msg)
	}

	// The durable row keeps the authority as provider_ref so a duplicate
	// callback still correlates; the settled transaction id lives on the
	// receipt of the live session.
	if err := u.finalizeDurable(ctx, providerRef, model.SessionSucceeded, ""); err != nil {
		return nil, err
	}
	s.Succeed(res.Reference)
	_ = u.store.Put(ctx, s)
	metrics.IncSession(string(model.SessionSucceeded))
	metrics.AddRevenue(pricing.SettlementCurrency, pricing.MinorUnits(s.FinalAmountUSD))
	u.redeemCoupon(ctx, s)
	u.log.Info().Str("session_id", s.ID).Str("transaction_id", res.Reference).Msg("redirect payment finalized")
	return s, nil
}

func (u *checkoutUC) Retry(ctx context.Context, sessionID string) (*model.PaymentSession, error) {
	prev, err := u.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if prev.Status != model.SessionFailed {
		return nil, fmt.Errorf("retry is only valid from failed: %w", domain.ErrInvalidArgument)
	}

	// A fresh attempt: pricing and selection carry forward, the provider
	// reference lifecycle does not, so a declined intent is never reused.
	now := time.Now()
	s := &model.PaymentSession{
		ID:                ulid.Make().String(),
		UserID:            prev.UserID,
		OrderID:           prev.OrderID,
		BaseAmountUSD:     prev.BaseAmountUSD,
		Currency:          prev.Currency,
		ExchangeRate:      prev.ExchangeRate,
		Coupon:            prev.Coupon,
		DiscountAmountUSD: prev.DiscountAmountUSD,
		FinalAmountUSD:    prev.FinalAmountUSD,
		GatewayID:         prev.GatewayID,
		MethodLabel:       prev.MethodLabel,
		SavedMethodID:     prev.SavedMethodID,
		WalletBalanceUSD:  prev.WalletBalanceUSD,
		Status:            model.SessionSelecting,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := u.store.Put(ctx, s); err != nil {
		return nil, err
	}
	u.log.Info().Str("session_id", s.ID).Str("previous", prev.ID).Msg("checkout retry started")
	return s, nil
}

func (u *checkoutUC) Abandon(ctx context.Context, sessionID string) error {
	// No provider void: an unconfirmed intent expires on the provider side.
	return u.store.Delete(ctx, sessionID)
}

func (u *checkoutUC) Get(ctx context.Context, sessionID string) (*model.PaymentSession, error) {
	return u.load(ctx, sessionID)
}

func (u *checkoutUC) load(ctx context.Context, sessionID string) (*model.PaymentSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session id: %w", domain.ErrInvalidArgument)
	}
	if s, err := u.store.Get(ctx, sessionID); err == nil {
		return s, nil
	}
	s, err := u.attempts.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (u *checkoutUC) persistTerminal(ctx context.Context, s *model.PaymentSession) error {
	if err := u.attempts.Save(ctx, nil, s); err != nil {
		return err
	}
	if err := u.store.Put(ctx, s); err != nil {
		return err
	}
	metrics.IncSession(string(s.Status))
	if s.Status == model.SessionSucceeded {
		metrics.AddRevenue(pricing.SettlementCurrency, pricing.MinorUnits(s.FinalAmountUSD))
		u.redeemCoupon(ctx, s)
	}
	return nil
}

// redeemCoupon burns the coupon use after settlement. The payment already
// succeeded, so a redemption failure is logged, never surfaced to the buyer.
func (u *checkoutUC) redeemCoupon(ctx context.Context, s *model.PaymentSession) {
	if s.Coupon == nil {
		return
	}
	if err := u.coupons.Redeem(ctx, s.Coupon.Code); err != nil {
		u.log.Warn().Err(err).Str("session_id", s.ID).Str("coupon", s.Coupon.Code).Msg("coupon redemption failed")
	}
}

// finalizeDurable settles the durable attempt row inside one transaction: the
// re-read takes a row lock on the provider reference, so two finalizers for
// the same authority serialize even if the Redis lock expired between them.
func (u *checkoutUC) finalizeDurable(ctx context.Context, providerRef string, status model.SessionStatus, msg string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		cur, err := u.attempts.FindByProviderRef(ctx, tx, providerRef)
		if err != nil {
			return err
		}
		if cur.Terminal() {
			return nil
		}
		_, err = u.attempts.FinalizeIfAwaiting(ctx, tx, cur.ID, status, providerRef, msg)
		return err
	})
}

func (u *checkoutUC) finalizeFailed(ctx context.Context, s *model.PaymentSession, msg string) (*model.PaymentSession, error) {
	if err := u.finalizeDurable(ctx, s.ProviderRef, model.SessionFailed, msg); err != nil {
		return nil, err
	}
	s.Fail(msg)
	_ = u.store.Put(ctx, s)
	metrics.IncSession(string(model.SessionFailed))
	return s, nil
}

func discountTerms(app *model.CouponApplication) *pricing.DiscountTerms {
	if app == nil {
		return nil
	}
	return &pricing.DiscountTerms{
		Percentage: app.DiscountType == model.DiscountPercentage,
		Value:      app.DiscountValue,
		MaxCap:     app.MaxDiscount,
	}
}

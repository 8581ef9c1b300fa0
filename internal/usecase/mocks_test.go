//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// --- Order source

type MockOrderSource struct {
	GetOrderFunc func(ctx context.Context, orderID string) (*model.Order, error)
}

func (m *MockOrderSource) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, domain.ErrOrderNotFound
}

// --- Coupon service

type MockCouponService struct {
	ValidateFunc func(ctx context.Context, code, orderID string) (*model.CouponApplication, error)

	mu       sync.Mutex
	Redeemed []string
}

func (m *MockCouponService) Validate(ctx context.Context, code, orderID string) (*model.CouponApplication, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, code, orderID)
	}
	return nil, domain.ErrInvalidCoupon
}

func (m *MockCouponService) Redeem(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redeemed = append(m.Redeemed, code)
	return nil
}

// --- Wallet service

type MockWalletService struct {
	GetBalanceFunc func(ctx context.Context, userID string) (model.WalletBalance, error)
	DebitFunc      func(ctx context.Context, userID string, amountUSD decimal.Decimal) (string, error)
}

func (m *MockWalletService) GetBalance(ctx context.Context, userID string) (model.WalletBalance, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, userID)
	}
	return model.WalletBalance{BalanceUSD: decimal.Zero}, nil
}

func (m *MockWalletService) Debit(ctx context.Context, userID string, amountUSD decimal.Decimal) (string, error) {
	if m.DebitFunc != nil {
		return m.DebitFunc(ctx, userID, amountUSD)
	}
	return "", domain.ErrInsufficientBalance
}

// --- Live session store (in-memory stand-in for Redis)

type MockSessionStore struct {
	mu     sync.RWMutex
	store  map[string]*model.PaymentSession
	PutErr error
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{store: make(map[string]*model.PaymentSession)}
}

func (m *MockSessionStore) Put(ctx context.Context, s *model.PaymentSession) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// --- Durable attempt log (in-memory stand-in for Postgres)

type MockAttemptRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.PaymentSession
	SaveErr error
}

func NewMockAttemptRepo() *MockAttemptRepo {
	return &MockAttemptRepo{store: make(map[string]*model.PaymentSession)}
}

func (m *MockAttemptRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockAttemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockAttemptRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, ref string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.ProviderRef == ref {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAttemptRepo) FinalizeIfAwaiting(ctx context.Context, tx repository.Tx, id string, status model.SessionStatus, providerRef, errorMessage string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Terminal() {
		return false, nil
	}
	s.Status = status
	s.ProviderRef = providerRef
	s.ErrorMessage = errorMessage
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockAttemptRepo) ListAwaitingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentSession
	for _, s := range m.store {
		if s.Status == model.SessionAwaitingRedirect && s.CreatedAt.Before(olderThan) {
			cp := *s
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockAttemptRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SessionStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[model.SessionStatus]int)
	for _, s := range m.store {
		out[s.Status]++
	}
	return out, nil
}

func (m *MockAttemptRepo) SumRevenueByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cents int64
	for _, s := range m.store {
		if s.Status == model.SessionSucceeded {
			cents += s.FinalAmountUSD.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
		}
	}
	return cents, nil
}

// --- Transaction manager

// MockTxManager runs the callback with a nil tx handle and counts invocations.
type MockTxManager struct {
	mu    sync.Mutex
	Calls int
}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return fn(ctx, nil)
}

// --- Locker

type MockLocker struct {
	mu   sync.Mutex
	held map[string]bool

	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]bool)}
}

func (m *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return "", domain.ErrLockNotAcquired
	}
	m.held[key] = true
	return "tok-" + key, nil
}

func (m *MockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

// --- Saved methods

type MockSavedMethodRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SavedPaymentMethod
}

func NewMockSavedMethodRepo() *MockSavedMethodRepo {
	return &MockSavedMethodRepo{store: make(map[string]*model.SavedPaymentMethod)}
}

func (m *MockSavedMethodRepo) Save(ctx context.Context, tx repository.Tx, sm *model.SavedPaymentMethod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sm
	m.store[sm.ID] = &cp
	return nil
}

func (m *MockSavedMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SavedPaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sm, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sm
	return &cp, nil
}

func (m *MockSavedMethodRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SavedPaymentMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SavedPaymentMethod
	for _, sm := range m.store {
		if sm.UserID == userID {
			cp := *sm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSavedMethodRepo) CountByUserAndGateway(ctx context.Context, tx repository.Tx, userID, gatewayID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sm := range m.store {
		if sm.UserID == userID && sm.GatewayID == gatewayID {
			n++
		}
	}
	return n, nil
}

func (m *MockSavedMethodRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

// --- Gateway adapters

type MockGatewayAdapter struct {
	IDVal string
	Label string

	PrepareFunc func(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error)
	CollectFunc func(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error)
	ConfirmFunc func(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error)

	PrepareCalls int
	ConfirmCalls int
}

func (m *MockGatewayAdapter) ID() string { return m.IDVal }

func (m *MockGatewayAdapter) Describe() string {
	if m.Label != "" {
		return m.Label
	}
	return "Mock"
}

func (m *MockGatewayAdapter) Prepare(ctx context.Context, s *model.PaymentSession) (adapter.ProviderIntent, error) {
	m.PrepareCalls++
	if m.PrepareFunc != nil {
		return m.PrepareFunc(ctx, s)
	}
	return adapter.ProviderIntent{Reference: "intent-1"}, nil
}

func (m *MockGatewayAdapter) CollectInput(ctx context.Context, s *model.PaymentSession) (adapter.Instrument, error) {
	if m.CollectFunc != nil {
		return m.CollectFunc(ctx, s)
	}
	return adapter.Instrument{Token: s.InstrumentToken}, nil
}

func (m *MockGatewayAdapter) Confirm(ctx context.Context, s *model.PaymentSession, intent adapter.ProviderIntent, ins adapter.Instrument) (adapter.ChargeResult, error) {
	m.ConfirmCalls++
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, s, intent, ins)
	}
	return adapter.ChargeResult{Reference: "tx-1"}, nil
}

type MockRedirectAdapter struct {
	MockGatewayAdapter

	FinalizeFunc  func(ctx context.Context, providerRef string, expectedMinor int64) (adapter.ChargeResult, error)
	FinalizeCalls int
}

func (m *MockRedirectAdapter) FinalizeRedirect(ctx context.Context, providerRef string, expectedMinor int64) (adapter.ChargeResult, error) {
	m.FinalizeCalls++
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, providerRef, expectedMinor)
	}
	return adapter.ChargeResult{Reference: "tx-" + providerRef, AmountMinor: expectedMinor}, nil
}

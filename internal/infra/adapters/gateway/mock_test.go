//go:build !integration

package gateway

import (
	"context"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

// stubMethodRepo serves a single saved method.
type stubMethodRepo struct {
	m *model.SavedPaymentMethod
}

func (s *stubMethodRepo) Save(ctx context.Context, tx repository.Tx, m *model.SavedPaymentMethod) error {
	s.m = m
	return nil
}

func (s *stubMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SavedPaymentMethod, error) {
	if s.m == nil || s.m.ID != id {
		return nil, domain.ErrNotFound
	}
	cp := *s.m
	return &cp, nil
}

func (s *stubMethodRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SavedPaymentMethod, error) {
	if s.m == nil || s.m.UserID != userID {
		return nil, nil
	}
	cp := *s.m
	return []*model.SavedPaymentMethod{&cp}, nil
}

func (s *stubMethodRepo) CountByUserAndGateway(ctx context.Context, tx repository.Tx, userID, gatewayID string) (int, error) {
	if s.m != nil && s.m.UserID == userID && s.m.GatewayID == gatewayID {
		return 1, nil
	}
	return 0, nil
}

func (s *stubMethodRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	s.m = nil
	return nil
}

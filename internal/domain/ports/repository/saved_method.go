package repository

import (
	"context"

	"course-marketplace-checkout/internal/domain/model"
)

// SavedMethodRepository stores saved payment instruments. Provider tokens are
// encrypted before they reach this repository.
type SavedMethodRepository interface {
	Save(ctx context.Context, tx Tx, m *model.SavedPaymentMethod) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SavedPaymentMethod, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.SavedPaymentMethod, error)
	CountByUserAndGateway(ctx context.Context, tx Tx, userID, gatewayID string) (int, error)
	Delete(ctx context.Context, tx Tx, id string) error
}

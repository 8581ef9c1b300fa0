package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/adapter"
)

var _ adapter.OrderSource = (*OrderRepo)(nil)

// OrderRepo reads purchasable orders from the marketplace catalog tables.
// Checkout only ever reads orders; the catalog side owns writes.
type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	const q = `
SELECT id, course_id, title, base_amount_usd, currency, created_at
  FROM orders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, nil, q, orderID)
	if err != nil {
		return nil, err
	}
	var o model.Order
	if err := row.Scan(&o.ID, &o.CourseID, &o.Title, &o.BaseAmountUSD, &o.Currency, &o.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &o, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

// sessionRepo persists checkout attempts. This is the durable log redirect
// callbacks rehydrate from, keyed by provider_ref, so rows must outlive the
// process that created them.
type sessionRepo struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, order_id, gateway_id, saved_method_id, method_label,
  base_usd, discount_usd, final_usd, currency, exchange_rate, coupon,
  status, provider_ref, redirect_url, error_message, created_at, updated_at`

func (r *sessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	var coupon []byte
	if s.Coupon != nil {
		b, err := json.Marshal(s.Coupon)
		if err != nil {
			return err
		}
		coupon = b
	}
	const q = `
INSERT INTO checkout_attempts (
  id, user_id, order_id, gateway_id, saved_method_id, method_label,
  base_usd, discount_usd, final_usd, currency, exchange_rate, coupon,
  status, provider_ref, redirect_url, error_message, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
) ON CONFLICT (id) DO UPDATE SET
  gateway_id=$4, saved_method_id=$5, method_label=$6,
  base_usd=$7, discount_usd=$8, final_usd=$9, currency=$10, exchange_rate=$11, coupon=$12,
  status=$13, provider_ref=$14, redirect_url=$15, error_message=$16, updated_at=$18;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.OrderID, s.GatewayID, s.SavedMethodID, s.MethodLabel,
		s.BaseAmountUSD, s.DiscountAmountUSD, s.FinalAmountUSD, s.Currency, s.ExchangeRate, coupon,
		string(s.Status), s.ProviderRef, s.RedirectURL, s.ErrorMessage, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkout_attempts WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindByProviderRef(ctx context.Context, tx repository.Tx, providerRef string) (*model.PaymentSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkout_attempts WHERE provider_ref=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, providerRef)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

// FinalizeIfAwaiting atomically moves an awaiting-redirect attempt to a
// terminal status. Duplicate callbacks hit zero affected rows and report false.
func (r *sessionRepo) FinalizeIfAwaiting(ctx context.Context, tx repository.Tx, id string, status model.SessionStatus, providerRef, errorMessage string) (bool, error) {
	const q = `
UPDATE checkout_attempts
   SET status=$2, provider_ref=$3, error_message=$4, updated_at=NOW()
 WHERE id=$1
   AND status IN ('awaiting-redirect','initializing','processing');`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), providerRef, errorMessage)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *sessionRepo) ListAwaitingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + sessionColumns + ` FROM checkout_attempts
 WHERE status='awaiting-redirect' AND created_at < $1
 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SessionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM checkout_attempts GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[model.SessionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[model.SessionStatus(status)] = n
	}
	return out, rows.Err()
}

func (r *sessionRepo) SumRevenueByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	const q = `
SELECT COALESCE(SUM(final_usd * 100), 0)::BIGINT
  FROM checkout_attempts
 WHERE status='succeeded' AND updated_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var cents int64
	if err := row.Scan(&cents); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return cents, nil
}

func scanSession(row pgx.Row) (*model.PaymentSession, error) {
	s := &model.PaymentSession{}
	var status string
	var coupon []byte
	if err := row.Scan(
		&s.ID, &s.UserID, &s.OrderID, &s.GatewayID, &s.SavedMethodID, &s.MethodLabel,
		&s.BaseAmountUSD, &s.DiscountAmountUSD, &s.FinalAmountUSD, &s.Currency, &s.ExchangeRate, &coupon,
		&status, &s.ProviderRef, &s.RedirectURL, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SessionStatus(status)
	if len(coupon) > 0 {
		var app model.CouponApplication
		if err := json.Unmarshal(coupon, &app); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		s.Coupon = &app
	}
	return s, nil
}

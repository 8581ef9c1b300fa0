package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"course-marketplace-checkout/internal/domain"
	"course-marketplace-checkout/internal/domain/model"
	"course-marketplace-checkout/internal/domain/ports/repository"
	"course-marketplace-checkout/internal/infra/security"
)

var _ repository.SavedMethodRepository = (*SavedMethodRepo)(nil)

// SavedMethodRepo stores saved payment instruments. Provider tokens are
// encrypted before they hit a row and decrypted on the way out; the plaintext
// token never lands in the database.
type SavedMethodRepo struct {
	pool *pgxpool.Pool
	enc  *security.EncryptionService
}

func NewSavedMethodRepo(pool *pgxpool.Pool, enc *security.EncryptionService) *SavedMethodRepo {
	return &SavedMethodRepo{pool: pool, enc: enc}
}

func (r *SavedMethodRepo) Save(ctx context.Context, tx repository.Tx, m *model.SavedPaymentMethod) error {
	token, err := r.enc.Encrypt(m.ProviderToken)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO saved_payment_methods (
  id, user_id, gateway_id, display_name, last_four, provider_token, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  display_name=$4, last_four=$5, provider_token=$6;`
	if _, err := execSQL(ctx, r.pool, tx, q,
		m.ID, m.UserID, m.GatewayID, m.DisplayName, m.LastFour, token, m.CreatedAt); err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *SavedMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SavedPaymentMethod, error) {
	const q = `
SELECT id, user_id, gateway_id, display_name, last_four, provider_token, created_at
  FROM saved_payment_methods WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return r.scanMethod(row)
}

func (r *SavedMethodRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SavedPaymentMethod, error) {
	const q = `
SELECT id, user_id, gateway_id, display_name, last_four, provider_token, created_at
  FROM saved_payment_methods WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.SavedPaymentMethod
	for rows.Next() {
		m, err := r.scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *SavedMethodRepo) CountByUserAndGateway(ctx context.Context, tx repository.Tx, userID, gatewayID string) (int, error) {
	const q = `SELECT COUNT(*) FROM saved_payment_methods WHERE user_id=$1 AND gateway_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, gatewayID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *SavedMethodRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	cmd, err := execSQL(ctx, r.pool, tx, `DELETE FROM saved_payment_methods WHERE id=$1;`, id)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SavedMethodRepo) scanMethod(row pgx.Row) (*model.SavedPaymentMethod, error) {
	var m model.SavedPaymentMethod
	var token string
	if err := row.Scan(&m.ID, &m.UserID, &m.GatewayID, &m.DisplayName, &m.LastFour, &token, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	plain, err := r.enc.Decrypt(token)
	if err != nil {
		return nil, err
	}
	m.ProviderToken = plain
	return &m, nil
}

package entitlements

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/liveon/internal/common"
	"github.com/dmitrijs2005/liveon/internal/dbx"
	"github.com/dmitrijs2005/liveon/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, e *models.Entitlement) error {
	query := `
		INSERT INTO entitlements (run_id, user_id, checkout_id, amount_cents, currency, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE
		SET checkout_id = EXCLUDED.checkout_id,
		    amount_cents = EXCLUDED.amount_cents,
		    currency = EXCLUDED.currency,
		    paid_at = EXCLUDED.paid_at
	`
	if _, err := r.db.ExecContext(ctx, query, e.RunID, e.UserID, e.CheckoutID, e.AmountCents, e.Currency, e.PaidAt); err != nil {
		return fmt.Errorf("error performing sql request: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, runID string) (*models.Entitlement, error) {
	query := `
		SELECT run_id, user_id, checkout_id, amount_cents, currency, paid_at
		FROM entitlements
		WHERE run_id = $1
	`
	e := &models.Entitlement{}
	err := r.db.QueryRowContext(ctx, query, runID).
		Scan(&e.RunID, &e.UserID, &e.CheckoutID, &e.AmountCents, &e.Currency, &e.PaidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

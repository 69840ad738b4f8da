package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type PaymentRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewPaymentRepo(db *sql.DB, loc *time.Location) *PaymentRepo {
	return &PaymentRepo{db: db, loc: loc}
}

func (r *PaymentRepo) Create(ctx context.Context, o *models.PaymentOrder) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_orders
		(id, user_id, gateway_order_id, amount, currency, selections, week_start, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`, o.ID, o.UserID, o.GatewayOrderID, o.Amount, o.Currency, o.Selections, dateString(o.WeekStart), o.Status)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

// SettleLocked locks the order for gatewayOrderID and hands it to fn. When fn
// returns a coupon it is inserted, and the order row is saved with whatever
// status and payment ID fn left on it, all in one transaction.
func (r *PaymentRepo) SettleLocked(ctx context.Context, gatewayOrderID string, fn func(o *models.PaymentOrder) (*models.WeekCoupon, error)) (*models.PaymentOrder, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var o models.PaymentOrder
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, gateway_order_id, payment_id, amount, currency, selections, week_start, status, created_at, updated_at
		FROM payment_orders
		WHERE gateway_order_id = $1
		FOR UPDATE
	`, gatewayOrderID).Scan(
		&o.ID,
		&o.UserID,
		&o.GatewayOrderID,
		&o.PaymentID,
		&o.Amount,
		&o.Currency,
		&o.Selections,
		&o.WeekStart,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	o.WeekStart = dateIn(o.WeekStart, r.loc)

	coupon, err := fn(&o)
	if err != nil {
		return nil, err
	}
	if coupon != nil {
		if err := insertCoupon(ctx, tx, coupon); err != nil {
			return nil, fmt.Errorf("insert coupon: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payment_orders
		SET status = $2, payment_id = $3, updated_at = NOW()
		WHERE id = $1
	`, o.ID, o.Status, o.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return &o, nil
}

// MarkRefundDue records paymentID against a still pending order and flags it
// for refund. It reports false when the order was not pending.
func (r *PaymentRepo) MarkRefundDue(ctx context.Context, gatewayOrderID, paymentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_orders
		SET status = $3, payment_id = $2, updated_at = NOW()
		WHERE gateway_order_id = $1 AND status = $4
	`, gatewayOrderID, paymentID, models.PaymentRefundDue, models.PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

type CouponRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewCouponRepo(db *sql.DB, loc *time.Location) *CouponRepo {
	return &CouponRepo{db: db, loc: loc}
}

const couponColumns = `id, user_id, week_start, selections, taken, payment_id, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *CouponRepo) scanCoupon(row rowScanner) (*models.WeekCoupon, error) {
	var c models.WeekCoupon
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.WeekStart,
		&c.Selections,
		&c.Taken,
		&c.PaymentID,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.WeekStart = dateIn(c.WeekStart, r.loc)
	return &c, nil
}

func (r *CouponRepo) list(ctx context.Context, query string, args ...any) ([]models.WeekCoupon, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []models.WeekCoupon
	for rows.Next() {
		c, err := r.scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// ListActiveFrom returns a user's active coupons for weeks starting on or after from.
func (r *CouponRepo) ListActiveFrom(ctx context.Context, userID string, from time.Time) ([]models.WeekCoupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE user_id = $1 AND week_start >= $2 AND status = 'active'
		ORDER BY week_start
	`
	return r.list(ctx, query, userID, dateString(from))
}

// ListWeek returns every active coupon for one week.
func (r *CouponRepo) ListWeek(ctx context.Context, weekStart time.Time) ([]models.WeekCoupon, error) {
	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE week_start = $1 AND status = 'active'
	`
	return r.list(ctx, query, dateString(weekStart))
}

// ExpireBefore marks coupons of weeks that started before weekStart as expired.
func (r *CouponRepo) ExpireBefore(ctx context.Context, weekStart time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupons
		SET status = 'expired', updated_at = NOW()
		WHERE week_start < $1 AND status = 'active'
	`, dateString(weekStart))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateLocked locks the user's coupon for weekStart, lets fn mutate it and
// persists the taken grid in the same transaction. fn errors roll back.
func (r *CouponRepo) UpdateLocked(ctx context.Context, userID string, weekStart time.Time, fn func(c *models.WeekCoupon) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	query := `
		SELECT ` + couponColumns + `
		FROM coupons
		WHERE user_id = $1 AND week_start = $2 AND status = 'active'
		FOR UPDATE
	`
	c, err := r.scanCoupon(tx.QueryRowContext(ctx, query, userID, dateString(weekStart)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock coupon: %w", err)
	}

	if err := fn(c); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE coupons
		SET taken = $2, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Taken)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}

func insertCoupon(ctx context.Context, tx *sql.Tx, c *models.WeekCoupon) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coupons (id, user_id, week_start, selections, taken, payment_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`, c.ID, c.UserID, dateString(c.WeekStart), c.Selections, c.Taken, c.PaymentID, c.Status)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

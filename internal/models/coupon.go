package models

import (
	"errors"
	"fmt"
	"time"
)

// WeekCoupon is one purchased week of meals for a user.
type WeekCoupon struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	WeekStart  time.Time `json:"week_start"`
	Selections Grid      `json:"selections"`
	Taken      Grid      `json:"taken"`
	PaymentID  string    `json:"payment_id,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const (
	CouponStatusActive  = "active"
	CouponStatusExpired = "expired"
)

// Redeemable reports whether the cell was bought and has not been taken yet.
func (c *WeekCoupon) Redeemable(meal MealSlot, day int) bool {
	return c.Selections.Has(meal, day) && !c.Taken.Has(meal, day)
}

// CouponRecord is what a user holds right now: at most one coupon for the
// running week and one reserved for the following week.
type CouponRecord struct {
	CurrentWeek *WeekCoupon `json:"current_week,omitempty"`
	NextWeek    *WeekCoupon `json:"next_week,omitempty"`
}

// Empty reports whether the record holds no coupon at all.
func (r *CouponRecord) Empty() bool {
	return r == nil || (r.CurrentWeek == nil && r.NextWeek == nil)
}

var ErrInvalidCouponRecord = errors.New("invalid coupon record")

// Validate rejects records the eligibility check cannot reason about.
func (r *CouponRecord) Validate() error {
	if r == nil {
		return nil
	}
	if err := validateWeek("current_week", r.CurrentWeek); err != nil {
		return err
	}
	if err := validateWeek("next_week", r.NextWeek); err != nil {
		return err
	}
	if r.CurrentWeek != nil && r.NextWeek != nil && !r.NextWeek.WeekStart.After(r.CurrentWeek.WeekStart) {
		return fmt.Errorf("%w: next_week must start after current_week", ErrInvalidCouponRecord)
	}
	return nil
}

func validateWeek(field string, w *WeekCoupon) error {
	if w == nil {
		return nil
	}
	if w.WeekStart.IsZero() {
		return fmt.Errorf("%w: %s.week_start is missing", ErrInvalidCouponRecord, field)
	}
	if w.WeekStart.Weekday() != time.Monday {
		return fmt.Errorf("%w: %s.week_start %s is not a Monday", ErrInvalidCouponRecord, field, w.WeekStart.Format(time.DateOnly))
	}
	return nil
}

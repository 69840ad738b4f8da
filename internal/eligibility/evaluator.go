// Package eligibility decides whether a user may buy another weekly coupon.
package eligibility

import (
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

// DefaultMinElapsedDays is how many whole days must pass after the start of the
// running coupon week before the following week can be bought.
const DefaultMinElapsedDays = 5

const msPerDay = int64(24 * time.Hour / time.Millisecond)

const (
	ReasonNoCoupon       = "no_coupon"
	ReasonWindowOpen     = "purchase_window_open"
	ReasonFullyBooked    = "already_purchased"
	ReasonNextWeekBooked = "next_week_reserved"
	ReasonWindowNotOpen  = "purchase_window_not_open"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	// OpensAt is set when purchase is blocked only by the elapsed-days window.
	OpensAt *time.Time `json:"opens_at,omitempty"`
}

// Evaluator holds the purchase-window policy. The zero value uses DefaultMinElapsedDays.
type Evaluator struct {
	MinElapsedDays int
}

// New returns an Evaluator; non-positive thresholds fall back to the default.
func New(minElapsedDays int) Evaluator {
	if minElapsedDays <= 0 {
		minElapsedDays = DefaultMinElapsedDays
	}
	return Evaluator{MinElapsedDays: minElapsedDays}
}

func (e Evaluator) threshold() int {
	if e.MinElapsedDays <= 0 {
		return DefaultMinElapsedDays
	}
	return e.MinElapsedDays
}

// CanPurchase reports whether a new coupon may be bought at now.
func (e Evaluator) CanPurchase(coupon *models.CouponRecord, now time.Time) bool {
	return e.Decide(coupon, now).Allowed
}

// Decide is CanPurchase with the reason attached. A nil record or a record
// with neither week allows purchase.
func (e Evaluator) Decide(coupon *models.CouponRecord, now time.Time) Decision {
	if coupon.Empty() {
		return Decision{Allowed: true, Reason: ReasonNoCoupon}
	}
	if coupon.CurrentWeek != nil && coupon.NextWeek != nil {
		return Decision{Reason: ReasonFullyBooked}
	}
	if coupon.CurrentWeek == nil {
		return Decision{Reason: ReasonNextWeekBooked}
	}

	start := coupon.CurrentWeek.WeekStart
	if ElapsedDays(now, start) >= e.threshold() {
		return Decision{Allowed: true, Reason: ReasonWindowOpen}
	}
	opens := start.Add(time.Duration(e.threshold()-1)*24*time.Hour + time.Millisecond)
	return Decision{Reason: ReasonWindowNotOpen, OpensAt: &opens}
}

// CanPurchase evaluates with the default threshold.
func CanPurchase(coupon *models.CouponRecord, now time.Time) bool {
	return Evaluator{}.CanPurchase(coupon, now)
}

// ElapsedDays is the absolute distance between a and b in days, rounded up.
// The distance is measured at millisecond resolution, so any started day counts.
func ElapsedDays(a, b time.Time) int {
	ms := a.Sub(b).Milliseconds()
	if ms < 0 {
		ms = -ms
	}
	days := ms / msPerDay
	if ms%msPerDay != 0 {
		days++
	}
	return int(days)
}

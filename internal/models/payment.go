package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
	// PaymentRefundDue marks a captured payment that could not become a
	// coupon and has to be returned.
	PaymentRefundDue = "refund_due"
)

// PaymentOrder ties a gateway order to the grid it pays for.
type PaymentOrder struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	GatewayOrderID string          `json:"order_id"`
	PaymentID      string          `json:"payment_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Selections     Grid            `json:"selections"`
	WeekStart      time.Time       `json:"week_start"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

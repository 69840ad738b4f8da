// Package notify carries mess events to whatever delivers pushes and emails.
package notify

import (
	"context"
	"log/slog"
	"time"
)

const (
	RoutingNoticeCreated  = "notice.created"
	RoutingNoticeUpdated  = "notice.updated"
	RoutingEmailOTP       = "email.otp"
	RoutingCouponReminder = "coupon.reminder"
	RoutingCouponPurchase = "coupon.purchased"
	RoutingRefundDue      = "payment.refund_due"
)

// Publisher is satisfied by rabbitmq.EventProducer.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

// NoticeEvent asks the push worker to fan a notice out to devices.
type NoticeEvent struct {
	NoticeID  string    `json:"notice_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Tokens    []string  `json:"fcm_tokens"`
	CreatedAt time.Time `json:"created_at"`
}

// OTPEvent asks the mail worker to deliver a verification code.
type OTPEvent struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReminderEvent announces that the next week can be bought.
type ReminderEvent struct {
	WeekStart string   `json:"week_start"`
	Tokens    []string `json:"fcm_tokens"`
}

// PurchaseEvent records a settled coupon purchase.
type PurchaseEvent struct {
	UserID    string `json:"user_id"`
	CouponID  string `json:"coupon_id"`
	WeekStart string `json:"week_start"`
	Amount    string `json:"amount"`
}

// RefundEvent flags a captured payment that did not produce a coupon.
type RefundEvent struct {
	UserID         string `json:"user_id"`
	GatewayOrderID string `json:"order_id"`
	PaymentID      string `json:"payment_id"`
	WeekStart      string `json:"week_start"`
	Amount         string `json:"amount"`
	Reason         string `json:"reason"`
}

// LogPublisher stands in for RabbitMQ when no broker is configured.
// It never logs event bodies, which may carry OTP codes.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, routingKey string, body any) error {
	p.Logger.InfoContext(ctx, "event not delivered, no broker configured", "routing_key", routingKey)
	return nil
}

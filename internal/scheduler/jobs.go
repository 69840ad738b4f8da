package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
)

// CouponExpirer is implemented by service.CouponService.
type CouponExpirer interface {
	Now() time.Time
	ExpireCoupons(ctx context.Context) (int64, error)
}

// TokenSource lists device tokens for reminder pushes.
type TokenSource interface {
	ListFCMTokens(ctx context.Context) ([]string, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	coupons   CouponExpirer
	tokens    TokenSource
	publisher notify.Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

func NewJobs(coupons CouponExpirer, tokens TokenSource, publisher notify.Publisher, logger *slog.Logger) *Jobs {
	return &Jobs{
		coupons:   coupons,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
		timeout:   2 * time.Minute,
	}
}

// ExpireCoupons retires coupons of finished weeks.
func (j *Jobs) ExpireCoupons() {
	j.logger.Info("starting coupon expiry job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.coupons.ExpireCoupons(ctx)
	if err != nil {
		j.logger.Error("failed to expire coupons", "error", err)
		return
	}
	j.logger.Info("coupon expiry job finished", "expired", n)
}

// RemindPurchase tells every device that next week's coupon is on sale.
func (j *Jobs) RemindPurchase() {
	j.logger.Info("starting purchase reminder job")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	tokens, err := j.tokens.ListFCMTokens(ctx)
	if err != nil {
		j.logger.Error("failed to list push tokens", "error", err)
		return
	}
	if len(tokens) == 0 {
		j.logger.Info("purchase reminder skipped, no devices registered")
		return
	}

	next := models.WeekStart(j.coupons.Now()).AddDate(0, 0, 7)
	event := notify.ReminderEvent{WeekStart: next.Format(time.DateOnly), Tokens: tokens}
	if err := j.publisher.Publish(ctx, notify.RoutingCouponReminder, event); err != nil {
		j.logger.Error("failed to publish purchase reminder", "error", err)
		return
	}
	j.logger.Info("purchase reminder job finished", "devices", len(tokens), "week_start", event.WeekStart)
}

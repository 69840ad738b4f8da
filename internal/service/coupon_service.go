package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Cheertaboi/mess-coupon-service/internal/concurrency"
	"github.com/Cheertaboi/mess-coupon-service/internal/eligibility"
	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
	"github.com/Cheertaboi/mess-coupon-service/internal/qr"
	"github.com/Cheertaboi/mess-coupon-service/internal/repository"
)

// Repos required by service (use interfaces to allow mocking)
type CouponRepo interface {
	ListActiveFrom(ctx context.Context, userID string, from time.Time) ([]models.WeekCoupon, error)
	ListWeek(ctx context.Context, weekStart time.Time) ([]models.WeekCoupon, error)
	ExpireBefore(ctx context.Context, weekStart time.Time) (int64, error)
	UpdateLocked(ctx context.Context, userID string, weekStart time.Time, fn func(c *models.WeekCoupon) error) error
}

type PaymentRepo interface {
	Create(ctx context.Context, o *models.PaymentOrder) error
	SettleLocked(ctx context.Context, gatewayOrderID string, fn func(o *models.PaymentOrder) (*models.WeekCoupon, error)) (*models.PaymentOrder, error)
	MarkRefundDue(ctx context.Context, gatewayOrderID, paymentID string) (bool, error)
}

// MenuSource supplies meal prices, serving windows and dishes.
type MenuSource interface {
	Week(ctx context.Context) ([]models.DayMenu, error)
	Meals(ctx context.Context) ([]models.Meal, error)
}

// Gateway is the payment provider.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (GatewayOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
}

type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

type CouponOptions struct {
	Eligibility       eligibility.Evaluator
	Location          *time.Location
	Currency          string
	EnforceMealWindow bool
	// Now is overridable in tests.
	Now func() time.Time
}

type CouponService struct {
	coupons   CouponRepo
	payments  PaymentRepo
	menu      MenuSource
	gateway   Gateway
	sealer    *qr.Sealer
	publisher notify.Publisher
	logger    *slog.Logger
	opts      CouponOptions
}

func NewCouponService(coupons CouponRepo, payments PaymentRepo, menu MenuSource, gateway Gateway, sealer *qr.Sealer, publisher notify.Publisher, logger *slog.Logger, opts CouponOptions) *CouponService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CouponService{
		coupons:   coupons,
		payments:  payments,
		menu:      menu,
		gateway:   gateway,
		sealer:    sealer,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// Now returns the current time in the mess timezone.
func (s *CouponService) Now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// CouponStatus is what the "my coupons" screen needs.
type CouponStatus struct {
	Coupons  models.CouponRecord  `json:"coupons"`
	Decision eligibility.Decision `json:"purchase"`
}

// Record assembles the user's current and next week coupons as seen at now.
func (s *CouponService) Record(ctx context.Context, userID string, now time.Time) (*models.CouponRecord, error) {
	current := models.WeekStart(now.In(s.opts.Location))
	next := current.AddDate(0, 0, 7)

	list, err := s.coupons.ListActiveFrom(ctx, userID, current)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	rec := &models.CouponRecord{}
	for i := range list {
		c := list[i]
		switch {
		case c.WeekStart.Equal(current):
			rec.CurrentWeek = &c
		case c.WeekStart.Equal(next):
			rec.NextWeek = &c
		}
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// MyCoupons returns the user's coupons and whether another can be bought.
func (s *CouponService) MyCoupons(ctx context.Context, userID string) (*CouponStatus, error) {
	now := s.Now()
	rec, err := s.Record(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	return &CouponStatus{
		Coupons:  *rec,
		Decision: s.opts.Eligibility.Decide(rec, now),
	}, nil
}

// Checkout is handed to the mobile payment sheet.
type Checkout struct {
	OrderID   string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key"`
	Total     string `json:"total"`
	WeekStart string `json:"week_start"`
}

// targetWeek is the week a purchase made at now should cover.
func targetWeek(rec *models.CouponRecord, now time.Time) time.Time {
	current := models.WeekStart(now)
	if rec.CurrentWeek == nil {
		return current
	}
	return current.AddDate(0, 0, 7)
}

// InitiatePurchase prices the selection and opens a gateway order.
func (s *CouponService) InitiatePurchase(ctx context.Context, userID string, selection models.Grid) (*Checkout, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if selection.Count() == 0 {
		return nil, fmt.Errorf("%w: select at least one meal", ErrInvalidSelection)
	}

	now := s.Now()
	rec, err := s.Record(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if d := s.opts.Eligibility.Decide(rec, now); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPurchased, d.Reason)
	}

	meals, err := s.menu.Meals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load meals: %w", err)
	}
	costs, err := models.CostsFromMeals(meals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentsDisabled, err)
	}
	total := costs.Total(selection)
	minor := total.Shift(2).Round(0).IntPart()
	if minor <= 0 {
		return nil, fmt.Errorf("%w: total must be positive", ErrInvalidSelection)
	}

	week := targetWeek(rec, now)
	orderID := uuid.NewString()
	gwOrder, err := s.gateway.CreateOrder(ctx, minor, s.opts.Currency, orderID)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	order := &models.PaymentOrder{
		ID:             orderID,
		UserID:         userID,
		GatewayOrderID: gwOrder.ID,
		Amount:         total,
		Currency:       s.opts.Currency,
		Selections:     selection,
		WeekStart:      week,
		Status:         models.PaymentPending,
	}
	if err := s.payments.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("store order: %w", err)
	}

	s.logger.InfoContext(ctx, "payment initiated", "user_id", userID, "order_id", gwOrder.ID, "amount", total.String(), "week_start", week.Format(time.DateOnly))
	return &Checkout{
		OrderID:   gwOrder.ID,
		Amount:    gwOrder.Amount,
		Currency:  gwOrder.Currency,
		KeyID:     s.gateway.KeyID(),
		Total:     total.StringFixed(2),
		WeekStart: week.Format(time.DateOnly),
	}, nil
}

// SettlePurchase verifies the checkout callback and turns the paid order into
// a coupon. Settling an already paid order returns it unchanged. A captured
// payment that cannot become a coupon, because its week has ended or is
// already held, is flagged for refund.
func (s *CouponService) SettlePurchase(ctx context.Context, userID, gatewayOrderID, paymentID, signature string) (*models.PaymentOrder, error) {
	if s.gateway == nil {
		return nil, ErrPaymentsDisabled
	}
	if err := s.gateway.VerifyPaymentSignature(gatewayOrderID, paymentID, signature); err != nil {
		s.logger.WarnContext(ctx, "payment signature rejected", "user_id", userID, "order_id", gatewayOrderID)
		return nil, ErrPaymentVerification
	}

	current := models.WeekStart(s.Now())
	var (
		created *models.WeekCoupon
		locked  models.PaymentOrder
	)
	order, err := s.payments.SettleLocked(ctx, gatewayOrderID, func(o *models.PaymentOrder) (*models.WeekCoupon, error) {
		if o.UserID != userID {
			return nil, ErrForbidden
		}
		switch o.Status {
		case models.PaymentPaid:
			return nil, nil
		case models.PaymentRefundDue:
			return nil, ErrRefundDue
		}
		locked = *o
		if o.WeekStart.Before(current) {
			return nil, ErrWeekEnded
		}
		o.Status = models.PaymentPaid
		o.PaymentID = paymentID
		created = &models.WeekCoupon{
			ID:         uuid.NewString(),
			UserID:     o.UserID,
			WeekStart:  o.WeekStart,
			Selections: o.Selections,
			PaymentID:  paymentID,
			Status:     models.CouponStatusActive,
		}
		return created, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrWeekEnded):
			return nil, s.refundDue(ctx, &locked, paymentID, ErrWeekEnded)
		case errors.Is(err, repository.ErrConflict):
			return nil, s.refundDue(ctx, &locked, paymentID, ErrAlreadyPurchased)
		}
		return nil, err
	}

	if created != nil {
		s.logger.InfoContext(ctx, "coupon purchased", "user_id", userID, "coupon_id", created.ID, "week_start", created.WeekStart.Format(time.DateOnly))
		event := notify.PurchaseEvent{
			UserID:    userID,
			CouponID:  created.ID,
			WeekStart: created.WeekStart.Format(time.DateOnly),
			Amount:    order.Amount.StringFixed(2),
		}
		if err := s.publisher.Publish(ctx, notify.RoutingCouponPurchase, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish purchase event", "error", err)
		}
	}
	return order, nil
}

// refundDue saves the captured payment on the order outside the rolled back
// settlement and announces the refund. It returns cause for the caller.
func (s *CouponService) refundDue(ctx context.Context, o *models.PaymentOrder, paymentID string, cause error) error {
	marked, err := s.payments.MarkRefundDue(ctx, o.GatewayOrderID, paymentID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record refund", "order_id", o.GatewayOrderID, "payment_id", paymentID, "error", err)
		return fmt.Errorf("record refund: %w", err)
	}
	if !marked {
		return cause
	}
	s.logger.ErrorContext(ctx, "payment captured without coupon, refund due",
		"user_id", o.UserID, "order_id", o.GatewayOrderID, "payment_id", paymentID,
		"week_start", o.WeekStart.Format(time.DateOnly), "reason", cause.Error())
	event := notify.RefundEvent{
		UserID:         o.UserID,
		GatewayOrderID: o.GatewayOrderID,
		PaymentID:      paymentID,
		WeekStart:      o.WeekStart.Format(time.DateOnly),
		Amount:         o.Amount.StringFixed(2),
		Reason:         cause.Error(),
	}
	if err := s.publisher.Publish(ctx, notify.RoutingRefundDue, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish refund event", "error", err)
	}
	return cause
}

// QRCode seals the redemption payload for one meal of the user's current week.
func (s *CouponService) QRCode(ctx context.Context, userID string, day int, meal models.MealSlot) (string, error) {
	now := s.Now()
	rec, err := s.Record(ctx, userID, now)
	if err != nil {
		return "", err
	}
	if rec.CurrentWeek == nil || !rec.CurrentWeek.Selections.Has(meal, day) {
		return "", ErrNotRedeemable
	}
	return s.sealer.Seal(qr.Payload{
		UserID:    userID,
		DayIndex:  day,
		MealType:  meal,
		WeekStart: rec.CurrentWeek.WeekStart.Format(time.DateOnly),
	})
}

// Redeem checks a scanned code and marks the meal taken.
func (s *CouponService) Redeem(ctx context.Context, code string) (*models.RedemptionResult, error) {
	p, err := s.sealer.Open(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.Now()
	week := models.WeekStart(now)
	if p.WeekStart != "" && p.WeekStart != week.Format(time.DateOnly) {
		return nil, fmt.Errorf("%w: code is for week %s", ErrNotRedeemable, p.WeekStart)
	}
	if p.DayIndex != models.DayIndex(now) {
		return nil, fmt.Errorf("%w: code is for %s", ErrNotRedeemable, models.DayNames[p.DayIndex])
	}

	if s.opts.EnforceMealWindow {
		meals, err := s.menu.Meals(ctx)
		if err != nil {
			return nil, fmt.Errorf("load meals: %w", err)
		}
		for _, m := range meals {
			if slot, err := m.Slot(); err == nil && slot == p.MealType && !m.Serving(now) {
				return nil, fmt.Errorf("%w: %s is served %s-%s", ErrOutsideMealWindow, slot, m.StartTime, m.EndTime)
			}
		}
	}

	err = s.coupons.UpdateLocked(ctx, p.UserID, week, func(c *models.WeekCoupon) error {
		if !c.Selections.Has(p.MealType, p.DayIndex) {
			return ErrNotRedeemable
		}
		if c.Taken.Has(p.MealType, p.DayIndex) {
			return ErrAlreadyRedeemed
		}
		c.Taken[p.MealType][p.DayIndex] = true
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no coupon this week", ErrNotRedeemable)
		}
		return nil, err
	}

	result := &models.RedemptionResult{
		Success:  true,
		Message:  "coupon_redeemed",
		UserID:   p.UserID,
		Day:      models.DayNames[p.DayIndex],
		MealType: p.MealType.String(),
	}
	if days, err := s.menu.Week(ctx); err == nil {
		for _, d := range days {
			if idx, ok := models.ParseDay(d.Day); ok && idx == p.DayIndex {
				result.Dish = d.Dish(p.MealType)
			}
		}
	}
	s.logger.InfoContext(ctx, "meal redeemed", "user_id", p.UserID, "day", result.Day, "meal", result.MealType)
	return result, nil
}

const countWorkers = 4

// MealCounts tallies, per day, how many coupons of the running week include
// each meal.
func (s *CouponService) MealCounts(ctx context.Context) ([]models.MealCount, error) {
	week := models.WeekStart(s.Now())
	coupons, err := s.coupons.ListWeek(ctx, week)
	if err != nil {
		return nil, fmt.Errorf("list week: %w", err)
	}

	// one tally per worker, merged afterwards
	var tallies [countWorkers][models.MealSlots][models.DaysPerWeek]int
	chunk := (len(coupons) + countWorkers - 1) / countWorkers
	concurrency.SimpleWorkerPool(ctx, countWorkers, countWorkers, func(ctx context.Context, w int) {
		lo := w * chunk
		hi := min(lo+chunk, len(coupons))
		for i := lo; i < hi; i++ {
			for m := 0; m < models.MealSlots; m++ {
				for d := 0; d < models.DaysPerWeek; d++ {
					if coupons[i].Selections[m][d] {
						tallies[w][m][d]++
					}
				}
			}
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make([]models.MealCount, models.DaysPerWeek)
	for d := range counts {
		counts[d].Day = models.DayNames[d]
		for w := 0; w < countWorkers; w++ {
			counts[d].Breakfast += tallies[w][models.Breakfast][d]
			counts[d].Lunch += tallies[w][models.Lunch][d]
			counts[d].Dinner += tallies[w][models.Dinner][d]
		}
	}
	return counts, nil
}

// ExpireCoupons retires coupons of weeks that have ended.
func (s *CouponService) ExpireCoupons(ctx context.Context) (int64, error) {
	week := models.WeekStart(s.Now())
	n, err := s.coupons.ExpireBefore(ctx, week)
	if err != nil {
		return 0, fmt.Errorf("expire coupons: %w", err)
	}
	return n, nil
}

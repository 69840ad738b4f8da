package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/models"
	"github.com/Cheertaboi/mess-coupon-service/internal/repository"
)

var ist = time.FixedZone("IST", 5*3600+1800)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, ist)
}

type couponRepoStub struct {
	mu      sync.Mutex
	coupons []models.WeekCoupon
	listErr error
	expired time.Time
}

func (s *couponRepoStub) ListActiveFrom(ctx context.Context, userID string, from time.Time) ([]models.WeekCoupon, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.WeekCoupon
	for _, c := range s.coupons {
		if c.UserID == userID && !c.WeekStart.Before(from) && c.Status == models.CouponStatusActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *couponRepoStub) ListWeek(ctx context.Context, weekStart time.Time) ([]models.WeekCoupon, error) {
	var out []models.WeekCoupon
	for _, c := range s.coupons {
		if c.WeekStart.Equal(weekStart) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *couponRepoStub) ExpireBefore(ctx context.Context, weekStart time.Time) (int64, error) {
	s.expired = weekStart
	var n int64
	for i := range s.coupons {
		if s.coupons[i].WeekStart.Before(weekStart) && s.coupons[i].Status == models.CouponStatusActive {
			s.coupons[i].Status = models.CouponStatusExpired
			n++
		}
	}
	return n, nil
}

func (s *couponRepoStub) UpdateLocked(ctx context.Context, userID string, weekStart time.Time, fn func(c *models.WeekCoupon) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.coupons {
		c := &s.coupons[i]
		if c.UserID == userID && c.WeekStart.Equal(weekStart) {
			cp := *c
			if err := fn(&cp); err != nil {
				return err
			}
			*c = cp
			return nil
		}
	}
	return repository.ErrNotFound
}

type paymentRepoStub struct {
	orders   map[string]*models.PaymentOrder
	created  []models.WeekCoupon
	conflict bool
}

func newPaymentRepoStub() *paymentRepoStub {
	return &paymentRepoStub{orders: make(map[string]*models.PaymentOrder)}
}

func (s *paymentRepoStub) Create(ctx context.Context, o *models.PaymentOrder) error {
	cp := *o
	s.orders[o.GatewayOrderID] = &cp
	return nil
}

func (s *paymentRepoStub) SettleLocked(ctx context.Context, gatewayOrderID string, fn func(o *models.PaymentOrder) (*models.WeekCoupon, error)) (*models.PaymentOrder, error) {
	o, ok := s.orders[gatewayOrderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	c, err := fn(&cp)
	if err != nil {
		return nil, err
	}
	if c != nil {
		if s.conflict {
			return nil, repository.ErrConflict
		}
		s.created = append(s.created, *c)
	}
	*o = cp
	return &cp, nil
}

func (s *paymentRepoStub) MarkRefundDue(ctx context.Context, gatewayOrderID, paymentID string) (bool, error) {
	o, ok := s.orders[gatewayOrderID]
	if !ok || o.Status != models.PaymentPending {
		return false, nil
	}
	o.Status = models.PaymentRefundDue
	o.PaymentID = paymentID
	return true, nil
}

type menuStub struct {
	days  []models.DayMenu
	meals []models.Meal
}

func (s *menuStub) Week(ctx context.Context) ([]models.DayMenu, error) { return s.days, nil }
func (s *menuStub) Meals(ctx context.Context) ([]models.Meal, error)   { return s.meals, nil }

type gatewayStub struct {
	orderID    string
	badSig     bool
	lastAmount int64
}

func (g *gatewayStub) KeyID() string { return "rzp_test_key" }

func (g *gatewayStub) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (GatewayOrder, error) {
	g.lastAmount = amount
	return GatewayOrder{ID: g.orderID, Amount: amount, Currency: currency}, nil
}

func (g *gatewayStub) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if g.badSig {
		return io.ErrUnexpectedEOF
	}
	return nil
}

type published struct {
	key  string
	body any
}

type publisherStub struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, routingKey string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key: routingKey, body: body})
	return p.err
}

func (p *publisherStub) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

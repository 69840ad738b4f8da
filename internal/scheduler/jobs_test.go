package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Cheertaboi/mess-coupon-service/internal/notify"
)

type expirerStub struct {
	now    time.Time
	called bool
	err    error
}

func (s *expirerStub) Now() time.Time { return s.now }

func (s *expirerStub) ExpireCoupons(ctx context.Context) (int64, error) {
	s.called = true
	return 3, s.err
}

type tokensStub struct {
	tokens []string
	err    error
}

func (s tokensStub) ListFCMTokens(ctx context.Context) ([]string, error) { return s.tokens, s.err }

type publisherStub struct {
	key  string
	body any
	err  error
}

func (p *publisherStub) Publish(ctx context.Context, routingKey string, body any) error {
	p.key, p.body = routingKey, body
	return p.err
}

func newTestJobs(exp *expirerStub, tokens tokensStub, pub *publisherStub) *Jobs {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(exp, tokens, pub, logger)
}

func TestExpireCouponsJob(t *testing.T) {
	exp := &expirerStub{err: errors.New("db down")}
	newTestJobs(exp, tokensStub{}, &publisherStub{}).ExpireCoupons()
	if !exp.called {
		t.Fatalf("expected expiry to run")
	}
}

func TestRemindPurchasePublishesNextWeek(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	exp := &expirerStub{now: time.Date(2026, time.October, 16, 18, 0, 0, 0, ist)}
	pub := &publisherStub{}

	newTestJobs(exp, tokensStub{tokens: []string{"t1"}}, pub).RemindPurchase()

	if pub.key != notify.RoutingCouponReminder {
		t.Fatalf("expected %q, got %q", notify.RoutingCouponReminder, pub.key)
	}
	event, ok := pub.body.(notify.ReminderEvent)
	if !ok {
		t.Fatalf("expected ReminderEvent, got %T", pub.body)
	}
	if event.WeekStart != "2026-10-19" || len(event.Tokens) != 1 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestRemindPurchaseSkipsWithoutDevices(t *testing.T) {
	pub := &publisherStub{}
	newTestJobs(&expirerStub{now: time.Now()}, tokensStub{}, pub).RemindPurchase()
	if pub.key != "" {
		t.Fatalf("expected no publish, got %q", pub.key)
	}

	newTestJobs(&expirerStub{now: time.Now()}, tokensStub{err: errors.New("boom")}, pub).RemindPurchase()
	if pub.key != "" {
		t.Fatalf("expected no publish on token error, got %q", pub.key)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jobs := newTestJobs(&expirerStub{}, tokensStub{}, &publisherStub{})

	s := NewScheduler(jobs, logger, Schedules{ExpireCoupons: "not a cron"}, time.UTC)
	if err := s.Start(); err == nil {
		t.Fatalf("expected error for bad schedule")
	}

	s = NewScheduler(jobs, logger, Schedules{ExpireCoupons: "5 0 * * 1", RemindPurchase: "0 18 * * 5"}, time.UTC)
	if err := s.Start(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	<-s.Stop().Done()
}

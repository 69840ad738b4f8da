// Package messclient is a typed client for the mess coupon HTTP API.
package messclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Cheertaboi/mess-coupon-service/internal/eligibility"
	"github.com/Cheertaboi/mess-coupon-service/internal/models"
)

var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Code   string `json:"error"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("mess api: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("mess api: %d %s", e.Status, e.Code)
}

type Client struct {
	http      *resty.Client
	store     SessionStore
	evaluator eligibility.Evaluator
}

// New creates a client for baseURL. A nil store keeps the session in memory.
func New(baseURL string, store SessionStore) *Client {
	if store == nil {
		store = &MemoryStore{}
	}
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(15*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: rc, store: store}
}

// SetMinElapsedDays matches PurchaseGate to the server's purchase window.
func (c *Client) SetMinElapsedDays(n int) {
	c.evaluator = eligibility.New(n)
}

func (c *Client) request(ctx context.Context, authed bool) (*resty.Request, error) {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if authed {
		s, err := c.store.Load()
		if err != nil {
			return nil, err
		}
		req.SetAuthToken(s.Token)
	}
	return req, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		if apiErr == nil || apiErr.Code == "" {
			return &APIError{Status: resp.StatusCode(), Code: strings.ToLower(resp.Status())}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	} `json:"user"`
}

// SignIn authenticates and stores the session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	req, _ := c.request(ctx, false)
	var out sessionResponse
	resp, err := req.
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/users/signIn")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if out.Token == "" || out.User.ID == "" {
		return nil, malformed("sign in returned no token or user")
	}
	s := &Session{
		Token:   out.Token,
		UserID:  out.User.ID,
		Name:    out.User.Name,
		Email:   out.User.Email,
		IsAdmin: out.User.IsAdmin,
	}
	if err := c.store.Save(s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

func (c *Client) SignOut() error {
	return c.store.Clear()
}

// CouponStatus mirrors GET /coupons.
type CouponStatus struct {
	Coupons  models.CouponRecord  `json:"coupons"`
	Purchase eligibility.Decision `json:"purchase"`
}

// Coupons returns the signed-in user's coupons.
func (c *Client) Coupons(ctx context.Context) (*CouponStatus, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out CouponStatus
	if err := check(req.SetResult(&out).Get("/coupons")); err != nil {
		return nil, err
	}
	if err := out.Coupons.Validate(); err != nil {
		return nil, malformed("%v", err)
	}
	if out.Purchase.Reason == "" {
		return nil, malformed("purchase decision has no reason")
	}
	return &out, nil
}

// PurchaseGate fetches the user's coupons and decides locally whether the
// buy screen should be offered at now. The server's own decision is left on
// the returned status.
func (c *Client) PurchaseGate(ctx context.Context, now time.Time) (*CouponStatus, eligibility.Decision, error) {
	status, err := c.Coupons(ctx)
	if err != nil {
		return nil, eligibility.Decision{}, err
	}
	return status, c.evaluator.Decide(&status.Coupons, now), nil
}

// Menu returns the weekly menu, Monday first.
func (c *Client) Menu(ctx context.Context) ([]models.DayMenu, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []models.DayMenu
	if err := check(req.SetResult(&out).Get("/days/getMenu")); err != nil {
		return nil, err
	}
	for _, d := range out {
		if _, ok := models.ParseDay(d.Day); !ok {
			return nil, malformed("unknown day %q", d.Day)
		}
	}
	models.SortWeek(out)
	return out, nil
}

func (c *Client) Meals(ctx context.Context) ([]models.Meal, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []models.Meal
	if err := check(req.SetResult(&out).Get("/meals/getMeals")); err != nil {
		return nil, err
	}
	for _, m := range out {
		if err := m.Validate(); err != nil {
			return nil, malformed("%v", err)
		}
	}
	return out, nil
}

func (c *Client) Notices(ctx context.Context) ([]models.Notice, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []models.Notice
	if err := check(req.SetResult(&out).Get("/notices")); err != nil {
		return nil, err
	}
	for _, n := range out {
		if n.ID == "" {
			return nil, malformed("notice without id")
		}
	}
	return out, nil
}

func (c *Client) AddNotice(ctx context.Context, subject, body string) (*models.Notice, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out models.Notice
	resp, err := req.SetBody(models.NoticeInput{Subject: subject, Body: body}).SetResult(&out).Post("/notices")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, malformed("created notice has no id")
	}
	return &out, nil
}

func (c *Client) UpdateNotice(ctx context.Context, id, subject, body string) (*models.Notice, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out models.Notice
	resp, err := req.
		SetPathParam("id", id).
		SetBody(models.NoticeInput{Subject: subject, Body: body}).
		SetResult(&out).
		Put("/notices/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteNotice(ctx context.Context, id string) error {
	req, err := c.request(ctx, true)
	if err != nil {
		return err
	}
	return check(req.SetPathParam("id", id).Delete("/notices/{id}"))
}

// Checkout mirrors POST /payments/initiate.
type Checkout struct {
	OrderID   string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key"`
	Total     string `json:"total"`
	WeekStart string `json:"week_start"`
}

func (c *Client) InitiatePayment(ctx context.Context, selected models.Grid) (*Checkout, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out Checkout
	resp, err := req.SetBody(map[string]any{"selected": selected}).SetResult(&out).Post("/payments/initiate")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if out.OrderID == "" || out.Amount <= 0 || out.Currency == "" {
		return nil, malformed("checkout is missing order, amount or currency")
	}
	return &out, nil
}

// SettlePayment forwards the checkout callback fields.
func (c *Client) SettlePayment(ctx context.Context, orderID, paymentID, signature string) (*models.PaymentOrder, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out struct {
		Order *models.PaymentOrder `json:"order"`
	}
	resp, err := req.SetBody(map[string]string{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signature,
	}).SetResult(&out).Post("/payments")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if out.Order == nil || out.Order.Status != models.PaymentPaid {
		return nil, malformed("settled order is not paid")
	}
	return out.Order, nil
}

// Scan redeems a QR code. Admin only.
func (c *Client) Scan(ctx context.Context, code string) (*models.RedemptionResult, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out models.RedemptionResult
	resp, err := req.SetBody(map[string]string{"code": code}).SetResult(&out).Post("/coupons/scan")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, malformed("scan answered 2xx without success")
	}
	return &out, nil
}

// MealCounts returns one entry per weekday. Admin only.
func (c *Client) MealCounts(ctx context.Context) ([]models.MealCount, error) {
	req, err := c.request(ctx, true)
	if err != nil {
		return nil, err
	}
	var out []models.MealCount
	if err := check(req.SetResult(&out).Get("/coupons/totalMeal")); err != nil {
		return nil, err
	}
	if len(out) != models.DaysPerWeek {
		return nil, malformed("expected %d days, got %d", models.DaysPerWeek, len(out))
	}
	for _, m := range out {
		if m.Breakfast < 0 || m.Lunch < 0 || m.Dinner < 0 {
			return nil, malformed("negative count on %s", m.Day)
		}
	}
	return out, nil
}

// Package razorpay is a thin client for the parts of the Razorpay orders API
// the mess uses: creating an order and checking a checkout signature.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrInvalidSignature = errors.New("invalid payment signature")

// Order is the subset of a Razorpay order the checkout needs.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client talks to Razorpay with basic auth.
type Client struct {
	keyID     string
	keySecret string
	http      *resty.Client
}

// NewClient creates a client. baseURL is normally https://api.razorpay.com.
func NewClient(baseURL, keyID, keySecret string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetBasicAuth(keyID, keySecret).
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json")
	return &Client{keyID: keyID, keySecret: keySecret, http: rc}
}

// KeyID is the public key the mobile checkout is opened with.
func (c *Client) KeyID() string { return c.keyID }

// CreateOrder registers an order for amount in the smallest currency unit.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %d", amount)
	}
	var order Order
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
		}).
		SetResult(&order).
		SetError(&apiErr).
		Post("/v1/orders")
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create order: razorpay returned %d: %s %s", resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Description)
	}
	if order.ID == "" {
		return nil, errors.New("create order: response has no order id")
	}
	return &order, nil
}

// VerifyPaymentSignature checks the checkout callback signature, an HMAC-SHA256
// of "order_id|payment_id" keyed with the API secret.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// VerifySignature is VerifyPaymentSignature with an explicit secret.
func VerifySignature(secret, orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrInvalidSignature
	}
	want := Sign(secret, orderID, paymentID)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature Razorpay attaches to a successful checkout.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "shh" {
			t.Errorf("unexpected basic auth %q %q", user, pass)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["amount"].(float64) != 14500 || body["currency"] != "INR" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_123","amount":14500,"currency":"INR","receipt":"r1","status":"created"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "rzp_test_key", "shh")
	order, err := c.CreateOrder(context.Background(), 14500, "INR", "r1")
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.ID != "order_123" || order.Amount != 14500 {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestCreateOrderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s")
	if _, err := c.CreateOrder(context.Background(), 10, "INR", "r"); err == nil {
		t.Fatal("expected error from gateway")
	}
	if _, err := c.CreateOrder(context.Background(), 0, "INR", "r"); err == nil {
		t.Fatal("expected non-positive amount to be rejected")
	}
}

func TestVerifySignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	if err := VerifySignature("secret", "order_1", "pay_1", sig); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	cases := []struct{ secret, order, pay, sig string }{
		{"other", "order_1", "pay_1", sig},
		{"secret", "order_2", "pay_1", sig},
		{"secret", "order_1", "pay_1", ""},
	}
	for _, c := range cases {
		if err := VerifySignature(c.secret, c.order, c.pay, c.sig); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature for %+v, got %v", c, err)
		}
	}
}

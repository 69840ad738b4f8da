package service

import (
	"context"

	"github.com/Cheertaboi/mess-coupon-service/pkg/razorpay"
)

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway adapts the Razorpay client to Gateway.
func NewRazorpayGateway(c *razorpay.Client) Gateway {
	return razorpayGateway{client: c}
}

func (g razorpayGateway) KeyID() string { return g.client.KeyID() }

func (g razorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (GatewayOrder, error) {
	o, err := g.client.CreateOrder(ctx, amount, currency, receipt)
	if err != nil {
		return GatewayOrder{}, err
	}
	return GatewayOrder{ID: o.ID, Amount: o.Amount, Currency: o.Currency}, nil
}

func (g razorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return g.client.VerifyPaymentSignature(orderID, paymentID, signature)
}

package razorpayclient

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

type Client struct {
	rz *razorpay.Client
}

func New(keyID, keySecret string) *Client {
	return &Client{rz: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens a payment order with the gateway. Amount is already in
// minor units. The donation id travels in the order notes so webhook events
// can be tied back to the record.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt, donationID string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"donationId": donationID,
		},
	}
	body, err := c.rz.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}
	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay order create: response without order id")
	}
	return orderID, nil
}

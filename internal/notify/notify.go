// Package notify publishes domain events for the notification worker. Email
// rendering and delivery live on the consumer side; failures here are logged
// by callers and never reach the payment flow.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"NGO_BACKEND_GO/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const EventTypePaymentVerified = "payment-verified"

// PaymentVerifiedEvent is the payload consumed by the email worker.
type PaymentVerifiedEvent struct {
	Type          string `json:"type"`
	DonationID    string `json:"donation_id"`
	DonorName     string `json:"donor_name"`
	DonorEmail    string `json:"donor_email"`
	AmountInInr   int64  `json:"amount_in_inr"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
	CreatedAt     string `json:"created_at"`
}

type SQSAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type Publisher struct {
	client   SQSAPI
	queueURL string
}

// NewPublisher returns nil when no queue is configured; callers treat a nil
// publisher as notifications disabled.
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	if queueURL == "" {
		return nil
	}
	return &Publisher{client: client, queueURL: queueURL}
}

func (p *Publisher) PublishPaymentVerified(ctx context.Context, d *models.Donation) error {
	event := PaymentVerifiedEvent{
		Type:          EventTypePaymentVerified,
		DonationID:    d.ID,
		DonorName:     d.FullName,
		DonorEmail:    d.Email,
		AmountInInr:   d.AmountInInr,
		Currency:      d.Currency,
		TransactionID: d.PaymentID,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment-verified event: %w", err)
	}

	body := string(payload)
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return fmt.Errorf("send payment-verified event: %w", err)
	}
	return nil
}

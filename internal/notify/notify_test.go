package notify

import (
	"context"
	"encoding/json"
	"testing"

	"NGO_BACKEND_GO/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	SendMessageFunc func(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return f.SendMessageFunc(ctx, in, optFns...)
}

func TestNewPublisherDisabledWithoutQueue(t *testing.T) {
	if p := NewPublisher(&fakeSQS{}, ""); p != nil {
		t.Error("publisher created without a queue URL")
	}
}

func TestPublishPaymentVerified(t *testing.T) {
	var sent *sqs.SendMessageInput
	client := &fakeSQS{
		SendMessageFunc: func(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
			sent = in
			return &sqs.SendMessageOutput{}, nil
		},
	}
	p := NewPublisher(client, "https://sqs.example/queue")

	err := p.PublishPaymentVerified(context.Background(), &models.Donation{
		ID:          "d1",
		FullName:    "Asha Verma",
		Email:       "asha@example.com",
		AmountInInr: 1000,
		Currency:    "INR",
		PaymentID:   "pay_123",
	})
	if err != nil {
		t.Fatalf("PublishPaymentVerified() error: %v", err)
	}

	if sent == nil {
		t.Fatal("no message sent")
	}
	if *sent.QueueUrl != "https://sqs.example/queue" {
		t.Errorf("queue = %q", *sent.QueueUrl)
	}

	var event PaymentVerifiedEvent
	if err := json.Unmarshal([]byte(*sent.MessageBody), &event); err != nil {
		t.Fatalf("message body is not JSON: %v", err)
	}
	if event.Type != EventTypePaymentVerified {
		t.Errorf("type = %q, want %q", event.Type, EventTypePaymentVerified)
	}
	if event.DonationID != "d1" || event.TransactionID != "pay_123" {
		t.Errorf("event = %+v", event)
	}
	if event.AmountInInr != 1000 || event.Currency != "INR" {
		t.Errorf("amount = %d %s, want 1000 INR", event.AmountInInr, event.Currency)
	}
}

// Notification worker: consumes payment-verified events from SQS and sends
// the donor receipt plus an admin alert through SESv2. Delivery problems are
// parked as pending items and drained by a scheduled run; they never feed
// back into the payment flow.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"NGO_BACKEND_GO/internal/notify"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
)

const (
	pendingPK = "EMAIL#PENDING"
	pendingSK = "TS#"
)

type appConfig struct {
	region          string
	tableName       string
	fromEmail       string
	fromName        string
	adminEmail      string
	orgName         string
	dailyEmailLimit int
}

var (
	initOnce sync.Once
	cfg      appConfig
	ddb      *dynamodb.Client
	ses      *sesv2.Client
	initErr  error
)

func loadConfig(ctx context.Context) error {
	initOnce.Do(func() {
		cfg = appConfig{
			region:          env("AWS_REGION", "ap-south-1"),
			tableName:       os.Getenv("DYNAMODB_TABLE"),
			fromEmail:       os.Getenv("SES_FROM_EMAIL"),
			fromName:        env("EMAIL_FROM_NAME", "Donations Team"),
			adminEmail:      strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
			orgName:         env("ORG_NAME", "Our NGO"),
			dailyEmailLimit: envInt("DAILY_EMAIL_LIMIT", 199),
		}
		if cfg.tableName == "" {
			initErr = fmt.Errorf("DYNAMODB_TABLE not set")
			return
		}
		if cfg.fromEmail == "" {
			initErr = fmt.Errorf("SES_FROM_EMAIL not set")
			return
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.region))
		if err != nil {
			initErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		ddb = dynamodb.NewFromConfig(awsCfg)
		ses = sesv2.NewFromConfig(awsCfg)
	})
	return initErr
}

func handler(ctx context.Context, raw json.RawMessage) error {
	if err := loadConfig(ctx); err != nil {
		return err
	}

	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(raw, &sqsEvent); err == nil && len(sqsEvent.Records) > 0 && sqsEvent.Records[0].EventSource == "aws:sqs" {
		return processSQSEvent(ctx, sqsEvent)
	}

	var schedule events.CloudWatchEvent
	if err := json.Unmarshal(raw, &schedule); err == nil && schedule.Source == "aws.events" {
		return processPendingEmails(ctx)
	}

	log.Printf("unhandled event: %s", string(raw))
	return nil
}

func processSQSEvent(ctx context.Context, ev events.SQSEvent) error {
	for _, record := range ev.Records {
		var payload notify.PaymentVerifiedEvent
		if err := json.Unmarshal([]byte(record.Body), &payload); err != nil {
			log.Printf("invalid payload, skipping message %s: %v", record.MessageId, err)
			continue
		}
		if payload.Type != notify.EventTypePaymentVerified {
			log.Printf("ignoring event type %q", payload.Type)
			continue
		}

		sent, err := trySendEmails(ctx, payload)
		if err != nil {
			log.Printf("failed to send emails for donation %s, parking as pending: %v", payload.DonationID, err)
			if saveErr := savePendingEmail(ctx, payload); saveErr != nil {
				log.Printf("failed to save pending email: %v", saveErr)
			}
			continue
		}
		if !sent {
			log.Printf("daily limit reached, parking as pending: %s", payload.DonorEmail)
			if saveErr := savePendingEmail(ctx, payload); saveErr != nil {
				log.Printf("failed to save pending email: %v", saveErr)
			}
		}
	}
	return nil
}

func processPendingEmails(ctx context.Context) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var lastKey map[string]ddbtypes.AttributeValue

	for {
		out, err := ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              strPtr(cfg.tableName),
			KeyConditionExpression: strPtr("PK = :pk AND begins_with(SK, :sk)"),
			FilterExpression:       strPtr("#st = :pending AND next_attempt_at <= :now"),
			ExpressionAttributeNames: map[string]string{
				"#st": "status",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":pk":      &ddbtypes.AttributeValueMemberS{Value: pendingPK},
				":sk":      &ddbtypes.AttributeValueMemberS{Value: pendingSK},
				":pending": &ddbtypes.AttributeValueMemberS{Value: "PENDING"},
				":now":     &ddbtypes.AttributeValueMemberS{Value: now},
			},
			Limit:             int32Ptr(50),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return fmt.Errorf("failed to query pending emails: %w", err)
		}

		for _, item := range out.Items {
			payloadStr := attrString(item["payload"])
			if payloadStr == "" {
				_ = markPendingAsFailed(ctx, item)
				continue
			}

			var payload notify.PaymentVerifiedEvent
			if err := json.Unmarshal([]byte(payloadStr), &payload); err != nil {
				log.Printf("invalid pending payload: %v", err)
				_ = markPendingAsFailed(ctx, item)
				continue
			}

			sent, err := trySendEmails(ctx, payload)
			if err != nil {
				log.Printf("failed to send pending email: %v", err)
				_ = reschedulePending(ctx, item)
				continue
			}
			if !sent {
				_ = reschedulePending(ctx, item)
				continue
			}

			if err := deletePending(ctx, item); err != nil {
				log.Printf("failed to remove sent pending item: %v", err)
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return nil
}

// trySendEmails delivers the donor receipt and the admin alert. The receipt
// counts against the daily quota; the admin alert rides along best effort.
func trySendEmails(ctx context.Context, payload notify.PaymentVerifiedEvent) (bool, error) {
	allowed, err := reserveDailyQuota(ctx)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, nil
	}

	subject, body := buildReceiptContent(payload)
	if err := sendEmail(ctx, payload.DonorEmail, subject, body); err != nil {
		return false, err
	}

	if err := markReceiptSent(ctx, payload.DonationID); err != nil {
		log.Printf("failed to mark receiptSent for donation %s: %v", payload.DonationID, err)
	}

	if cfg.adminEmail != "" {
		subject, body := buildAdminContent(payload)
		if err := sendEmail(ctx, cfg.adminEmail, subject, body); err != nil {
			log.Printf("failed to send admin alert for donation %s: %v", payload.DonationID, err)
		}
	}

	log.Printf("receipt sent: to=%s donation_id=%s tx=%s", payload.DonorEmail, payload.DonationID, payload.TransactionID)
	return true, nil
}

func sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := ses.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: strPtr(fmt.Sprintf("%s <%s>", cfg.fromName, cfg.fromEmail)),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: strPtr(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: strPtr(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildReceiptContent(payload notify.PaymentVerifiedEvent) (string, string) {
	subject := fmt.Sprintf("Thank you for your donation to %s", cfg.orgName)
	body := fmt.Sprintf(
		"Dear %s,\n\nThank you for your generous donation of %s %d.\n\nTransaction ID: %s\nDonation ID: %s\n\nThis email serves as your receipt.\n\nWarm regards,\n%s",
		emptyIf(payload.DonorName, "donor"),
		payload.Currency,
		payload.AmountInInr,
		payload.TransactionID,
		payload.DonationID,
		cfg.orgName,
	)
	return subject, body
}

func buildAdminContent(payload notify.PaymentVerifiedEvent) (string, string) {
	subject := fmt.Sprintf("Donation received: %s %d", payload.Currency, payload.AmountInInr)
	body := fmt.Sprintf(
		"A donation was verified.\n\nDonor: %s <%s>\nAmount: %s %d\nTransaction ID: %s\nDonation ID: %s\nVerified at: %s",
		payload.DonorName,
		payload.DonorEmail,
		payload.Currency,
		payload.AmountInInr,
		payload.TransactionID,
		payload.DonationID,
		payload.CreatedAt,
	)
	return subject, body
}

// markReceiptSent flags the donation record after a successful receipt send.
// Best effort: payment correctness never depends on this bit.
func markReceiptSent(ctx context.Context, donationID string) error {
	if donationID == "" {
		return nil
	}
	key := "DONATION#" + donationID
	_, err := ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: strPtr(cfg.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: key},
			"SK": &ddbtypes.AttributeValueMemberS{Value: key},
		},
		UpdateExpression:    strPtr("SET receiptSent = :t, updatedAt = :now"),
		ConditionExpression: strPtr("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":t":   &ddbtypes.AttributeValueMemberBOOL{Value: true},
			":now": &ddbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	return err
}

func reserveDailyQuota(ctx context.Context) (bool, error) {
	now := time.Now().In(mustLocation("Asia/Kolkata"))
	dateKey := now.Format("2006-01-02")
	pk := "EMAIL#QUOTA#" + dateKey
	sk := "COUNTER"

	_, err := ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: strPtr(cfg.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pk},
			"SK": &ddbtypes.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:    strPtr("SET send_count = if_not_exists(send_count, :zero) + :one, date_update = :now"),
		ConditionExpression: strPtr("attribute_not_exists(send_count) OR send_count < :limit"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":zero":  &ddbtypes.AttributeValueMemberN{Value: "0"},
			":one":   &ddbtypes.AttributeValueMemberN{Value: "1"},
			":limit": &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(cfg.dailyEmailLimit)},
			":now":   &ddbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		var condErr *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reserve daily quota: %w", err)
	}
	return true, nil
}

func savePendingEmail(ctx context.Context, payload notify.PaymentVerifiedEvent) error {
	serialized, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	next := nextRunAt7amKolkata(now)

	item := map[string]ddbtypes.AttributeValue{
		"PK":              &ddbtypes.AttributeValueMemberS{Value: pendingPK},
		"SK":              &ddbtypes.AttributeValueMemberS{Value: fmt.Sprintf("TS#%d#%s", now.UnixMilli(), uuid.NewString())},
		"status":          &ddbtypes.AttributeValueMemberS{Value: "PENDING"},
		"payload":         &ddbtypes.AttributeValueMemberS{Value: string(serialized)},
		"attempts":        &ddbtypes.AttributeValueMemberN{Value: "0"},
		"next_attempt_at": &ddbtypes.AttributeValueMemberS{Value: next.Format(time.RFC3339)},
		"date_create":     &ddbtypes.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"date_update":     &ddbtypes.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
	}

	_, err = ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: strPtr(cfg.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save pending email: %w", err)
	}
	return nil
}

func reschedulePending(ctx context.Context, item map[string]ddbtypes.AttributeValue) error {
	now := time.Now().UTC()
	next := nextRunAt7amKolkata(now)
	_, err := ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: strPtr(cfg.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": item["PK"],
			"SK": item["SK"],
		},
		UpdateExpression: strPtr("SET #st = :st, next_attempt_at = :next, date_update = :upd, attempts = if_not_exists(attempts, :zero) + :one"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":st":   &ddbtypes.AttributeValueMemberS{Value: "PENDING"},
			":next": &ddbtypes.AttributeValueMemberS{Value: next.Format(time.RFC3339)},
			":upd":  &ddbtypes.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":zero": &ddbtypes.AttributeValueMemberN{Value: "0"},
			":one":  &ddbtypes.AttributeValueMemberN{Value: "1"},
		},
	})
	return err
}

func markPendingAsFailed(ctx context.Context, item map[string]ddbtypes.AttributeValue) error {
	now := time.Now().UTC()
	_, err := ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: strPtr(cfg.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": item["PK"],
			"SK": item["SK"],
		},
		UpdateExpression: strPtr("SET #st = :st, date_update = :upd"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":st":  &ddbtypes.AttributeValueMemberS{Value: "FAILED"},
			":upd": &ddbtypes.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	})
	return err
}

func deletePending(ctx context.Context, item map[string]ddbtypes.AttributeValue) error {
	_, err := ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: strPtr(cfg.tableName),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": item["PK"],
			"SK": item["SK"],
		},
	})
	return err
}

func nextRunAt7amKolkata(now time.Time) time.Time {
	loc := mustLocation("Asia/Kolkata")
	localNow := now.In(loc)
	nextLocal := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 7, 0, 0, 0, loc)
	if !localNow.Before(nextLocal) {
		nextLocal = nextLocal.Add(24 * time.Hour)
	}
	return nextLocal.UTC()
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func attrString(av ddbtypes.AttributeValue) string {
	if s, ok := av.(*ddbtypes.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func emptyIf(value, fallback string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return fallback
	}
	return v
}

func strPtr(s string) *string { return &s }

func int32Ptr(v int32) *int32 { return &v }

func main() {
	lambda.Start(handler)
}

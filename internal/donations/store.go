package donations

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"NGO_BACKEND_GO/internal/dynamo"
	"NGO_BACKEND_GO/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DB is the slice of the dynamo wrapper the store uses. *dynamo.Store satisfies it.
type DB interface {
	GetItem(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error)
	PutItem(ctx context.Context, item map[string]types.AttributeValue) error
	Query(ctx context.Context, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
}

// ErrOrderExists signals that the donation already carries a gateway order id.
// The existing record is returned alongside so callers can respond idempotently.
var ErrOrderExists = errors.New("order already created for donation")

const (
	listPartition = "DONATION"
	recentWindow  = 30 * 24 * time.Hour

	// fixed-width so GSI1SK sorts chronologically
	sortTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

type Store struct {
	db              DB
	defaultCurrency string
}

func NewStore(db DB, defaultCurrency string) *Store {
	return &Store{db: db, defaultCurrency: defaultCurrency}
}

func donationPK(id string) string {
	return "DONATION#" + id
}

// Create validates the submission and persists a new pending donation.
// Nothing is written when validation fails.
func (s *Store) Create(ctx context.Context, in models.DonationInput) (*models.Donation, error) {
	if verr := validateInput(&in, s.defaultCurrency); verr != nil {
		return nil, verr
	}

	now := time.Now().UTC()
	d := &models.Donation{
		ID:          uuid.NewString(),
		FullName:    in.FullName,
		Email:       in.Email,
		Phone:       in.Phone,
		AmountInInr: in.Amount,
		Currency:    in.Currency,
		Recurring:   in.Recurring,
		Frequency:   models.Frequency(in.Frequency),
		Message:     in.Message,
		Provider:    models.PaymentProvider(in.Provider),
		Status:      models.DonationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	item := map[string]types.AttributeValue{
		"PK":          dynamo.S(donationPK(d.ID)),
		"SK":          dynamo.S(donationPK(d.ID)),
		"GSI1PK":      dynamo.S(listPartition),
		"GSI1SK":      dynamo.S("CREATED#" + now.Format(sortTimeFormat) + "#" + d.ID),
		"donationId":  dynamo.S(d.ID),
		"fullName":    dynamo.S(d.FullName),
		"email":       dynamo.S(d.Email),
		"amount":      dynamo.N(strconv.FormatInt(d.AmountInInr, 10)),
		"currency":    dynamo.S(d.Currency),
		"recurring":   dynamo.B(d.Recurring),
		"provider":    dynamo.S(string(d.Provider)),
		"status":      dynamo.S(string(d.Status)),
		"receiptSent": dynamo.B(false),
		"createdAt":   dynamo.S(now.Format(time.RFC3339Nano)),
		"updatedAt":   dynamo.S(now.Format(time.RFC3339Nano)),
	}
	if d.Phone != "" {
		item["phone"] = dynamo.S(d.Phone)
	}
	if d.Frequency != "" {
		item["frequency"] = dynamo.S(string(d.Frequency))
	}
	if d.Message != "" {
		item["message"] = dynamo.S(d.Message)
	}

	if err := s.db.PutItem(ctx, item); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.Donation, error) {
	item, err := s.db.GetItem(ctx, donationPK(id), donationPK(id))
	if err != nil {
		return nil, err
	}
	if len(item) == 0 {
		return nil, models.ErrNotFound
	}
	return unmarshalDonation(item)
}

// List returns one page of donations, newest first, plus the total count of
// matches. Filtering and pagination happen in memory after the GSI query.
func (s *Store) List(ctx context.Context, f models.ListFilter) ([]models.Donation, int, error) {
	all, err := s.queryAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]models.Donation, 0, len(all))
	for _, d := range all {
		if f.Status != "" && string(d.Status) != f.Status {
			continue
		}
		if search != "" && !matchesSearch(d, search) {
			continue
		}
		matched = append(matched, d)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	total := len(matched)
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// Stats aggregates counts and amounts per status. totalAmount only sums
// successful donations; recentCount covers a rolling 30-day window.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	all, err := s.queryAll(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-recentWindow)
	stats := &models.Stats{
		ByStatus: map[models.DonationStatus]models.StatusBucket{},
	}
	for _, d := range all {
		stats.Total++
		bucket := stats.ByStatus[d.Status]
		bucket.Count++
		bucket.Amount += d.AmountInInr
		stats.ByStatus[d.Status] = bucket
		if d.Status == models.DonationStatusSuccess {
			stats.TotalAmount += d.AmountInInr
		}
		if d.CreatedAt.After(cutoff) {
			stats.RecentCount++
		}
	}
	return stats, nil
}

// SetOrder persists the gateway order id, write-once while pending. On a lost
// race or a repeat call the stored record comes back with ErrOrderExists.
func (s *Store) SetOrder(ctx context.Context, id, orderID string) (*models.Donation, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		Key: map[string]types.AttributeValue{
			"PK": dynamo.S(donationPK(id)),
			"SK": dynamo.S(donationPK(id)),
		},
		UpdateExpression:    aws.String("SET orderId = :oid, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK) AND attribute_not_exists(orderId) AND #status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":oid":     dynamo.S(orderID),
			":now":     dynamo.S(now),
			":pending": dynamo.S(string(models.DonationStatusPending)),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if !isConditionalCheckFailed(err) {
			return nil, err
		}
		return s.explainOrderConflict(ctx, id)
	}
	return unmarshalDonation(out.Attributes)
}

func (s *Store) explainOrderConflict(ctx context.Context, id string) (*models.Donation, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OrderID != "" {
		return d, ErrOrderExists
	}
	return nil, models.ErrConflict
}

// MarkPaid transitions pending -> success and attaches the gateway payment id.
// The precondition is checked inside the conditional update itself, so two
// concurrent verification callbacks cannot both succeed.
func (s *Store) MarkPaid(ctx context.Context, id, paymentID string) (*models.Donation, error) {
	return s.transition(ctx, id, models.DonationStatusSuccess, map[string]types.AttributeValue{
		":pid": dynamo.S(paymentID),
	}, ", paymentId = :pid")
}

// MarkFailed transitions pending -> failed on an explicit failure signal.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) (*models.Donation, error) {
	extraExpr := ""
	extraVals := map[string]types.AttributeValue{}
	if reason = strings.TrimSpace(reason); reason != "" {
		extraExpr = ", failureReason = :reason"
		extraVals[":reason"] = dynamo.S(reason)
	}
	return s.transition(ctx, id, models.DonationStatusFailed, extraVals, extraExpr)
}

func (s *Store) transition(ctx context.Context, id string, to models.DonationStatus, extraVals map[string]types.AttributeValue, extraExpr string) (*models.Donation, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	values := map[string]types.AttributeValue{
		":to":      dynamo.S(string(to)),
		":now":     dynamo.S(now),
		":pending": dynamo.S(string(models.DonationStatusPending)),
	}
	for k, v := range extraVals {
		values[k] = v
	}

	out, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		Key: map[string]types.AttributeValue{
			"PK": dynamo.S(donationPK(id)),
			"SK": dynamo.S(donationPK(id)),
		},
		UpdateExpression:    aws.String("SET #status = :to, updatedAt = :now" + extraExpr),
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if !isConditionalCheckFailed(err) {
			return nil, err
		}
		// distinguish unknown id from a donation that already reached a
		// terminal state
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, models.ErrConflict
	}
	return unmarshalDonation(out.Attributes)
}

// SweepStalePending marks pending donations created before the cutoff as
// failed. Races with a late verification lose to the CAS and are skipped.
func (s *Store) SweepStalePending(ctx context.Context, olderThan time.Time) (int, error) {
	all, err := s.queryAll(ctx)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, d := range all {
		if d.Status != models.DonationStatusPending || !d.CreatedAt.Before(olderThan) {
			continue
		}
		if _, err := s.MarkFailed(ctx, d.ID, "stale pending sweep"); err != nil {
			if errors.Is(err, models.ErrConflict) || errors.Is(err, models.ErrNotFound) {
				continue
			}
			return swept, err
		}
		swept++
	}
	return swept, nil
}

func (s *Store) queryAll(ctx context.Context) ([]models.Donation, error) {
	var out []models.Donation
	var lastKey map[string]types.AttributeValue
	for {
		page, err := s.db.Query(ctx, &dynamodb.QueryInput{
			IndexName:              aws.String("GSI1"),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": dynamo.S(listPartition),
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			d, err := unmarshalDonation(item)
			if err != nil {
				return nil, err
			}
			out = append(out, *d)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		lastKey = page.LastEvaluatedKey
	}
	return out, nil
}

func unmarshalDonation(item map[string]types.AttributeValue) (*models.Donation, error) {
	var d models.Donation
	if err := attributevalue.UnmarshalMap(item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func matchesSearch(d models.Donation, search string) bool {
	return strings.Contains(strings.ToLower(d.FullName), search) ||
		strings.Contains(strings.ToLower(d.Email), search) ||
		strings.Contains(strings.ToLower(d.PaymentID), search)
}

func isConditionalCheckFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

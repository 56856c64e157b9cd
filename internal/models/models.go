package models

import "time"

type DonationStatus string

const (
	DonationStatusPending DonationStatus = "pending"
	DonationStatusSuccess DonationStatus = "success"
	DonationStatusFailed  DonationStatus = "failed"
)

// Terminal reports whether no further transition may leave the status.
func (s DonationStatus) Terminal() bool {
	return s == DonationStatusSuccess || s == DonationStatusFailed
}

type PaymentProvider string

const (
	ProviderRazorpay PaymentProvider = "razorpay"
	ProviderOffline  PaymentProvider = "offline"
)

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

const (
	AmountMin = 1
	AmountMax = 1_000_000
)

type Donation struct {
	ID          string          `json:"id" dynamodbav:"donationId"`
	FullName    string          `json:"fullName" dynamodbav:"fullName"`
	Email       string          `json:"email" dynamodbav:"email"`
	Phone       string          `json:"phone,omitempty" dynamodbav:"phone"`
	AmountInInr int64           `json:"amountInInr" dynamodbav:"amount"`
	Currency    string          `json:"currency" dynamodbav:"currency"`
	Recurring   bool            `json:"recurring" dynamodbav:"recurring"`
	Frequency   Frequency       `json:"frequency,omitempty" dynamodbav:"frequency"`
	Message     string          `json:"message,omitempty" dynamodbav:"message"`
	Provider    PaymentProvider `json:"paymentProvider" dynamodbav:"provider"`
	Status      DonationStatus  `json:"paymentStatus" dynamodbav:"status"`
	OrderID     string          `json:"orderId,omitempty" dynamodbav:"orderId"`
	PaymentID   string          `json:"transactionId,omitempty" dynamodbav:"paymentId"`
	ReceiptSent bool            `json:"receiptSent" dynamodbav:"receiptSent"`
	CreatedAt   time.Time       `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt   time.Time       `json:"-" dynamodbav:"updatedAt"`
}

// DonationInput is the donor-facing submission before validation.
type DonationInput struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Amount    int64  `json:"amountInInr"`
	Currency  string `json:"currency"`
	Recurring bool   `json:"recurring"`
	Frequency string `json:"frequency"`
	Message   string `json:"message"`
	Provider  string `json:"paymentProvider"`
}

type ListFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// Order describes a gateway payment order for a pending donation.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type StatusBucket struct {
	Count  int   `json:"count"`
	Amount int64 `json:"amount"`
}

type Stats struct {
	Total       int                              `json:"total"`
	TotalAmount int64                            `json:"totalAmount"`
	RecentCount int                              `json:"recentCount"`
	ByStatus    map[DonationStatus]StatusBucket `json:"byStatus"`
}

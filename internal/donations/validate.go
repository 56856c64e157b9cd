package donations

import (
	"regexp"
	"strings"

	"NGO_BACKEND_GO/internal/models"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const messageMaxLen = 500

// validateInput normalizes the submission in place and collects one error per
// invalid field. Returns nil when everything checks out.
func validateInput(in *models.DonationInput, defaultCurrency string) *models.ValidationError {
	var fields []models.FieldError

	in.FullName = strings.TrimSpace(in.FullName)
	if len(in.FullName) < 2 || len(in.FullName) > 100 {
		fields = append(fields, models.FieldError{
			Field:   "fullName",
			Message: "fullName must be between 2 and 100 characters",
		})
	}

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if !emailRe.MatchString(in.Email) {
		fields = append(fields, models.FieldError{
			Field:   "email",
			Message: "email must be a valid address",
		})
	}

	in.Phone = strings.TrimSpace(in.Phone)
	if in.Phone != "" && countDigits(in.Phone) < 10 {
		fields = append(fields, models.FieldError{
			Field:   "phone",
			Message: "phone must contain at least 10 digits",
		})
	}

	if in.Amount < models.AmountMin {
		fields = append(fields, models.FieldError{
			Field:   "amountInInr",
			Message: "amountInInr must be at least 1",
		})
	} else if in.Amount > models.AmountMax {
		fields = append(fields, models.FieldError{
			Field:   "amountInInr",
			Message: "amountInInr must not exceed 1000000",
		})
	}

	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = defaultCurrency
	}

	in.Frequency = strings.ToLower(strings.TrimSpace(in.Frequency))
	if in.Recurring {
		switch models.Frequency(in.Frequency) {
		case models.FrequencyMonthly, models.FrequencyQuarterly, models.FrequencyYearly:
		default:
			fields = append(fields, models.FieldError{
				Field:   "frequency",
				Message: "frequency must be monthly, quarterly or yearly for recurring donations",
			})
		}
	} else {
		in.Frequency = ""
	}

	in.Message = strings.TrimSpace(in.Message)
	if len(in.Message) > messageMaxLen {
		fields = append(fields, models.FieldError{
			Field:   "message",
			Message: "message must not exceed 500 characters",
		})
	}

	in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
	if in.Provider == "" {
		in.Provider = string(models.ProviderRazorpay)
	}
	switch models.PaymentProvider(in.Provider) {
	case models.ProviderRazorpay, models.ProviderOffline:
	default:
		fields = append(fields, models.FieldError{
			Field:   "paymentProvider",
			Message: "paymentProvider must be razorpay or offline",
		})
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

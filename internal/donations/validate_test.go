package donations

import (
	"strings"
	"testing"

	"NGO_BACKEND_GO/internal/models"
)

func validInput() models.DonationInput {
	return models.DonationInput{
		FullName: "Asha Verma",
		Email:    "asha@example.com",
		Amount:   1000,
	}
}

func TestValidateAcceptsMinimalInput(t *testing.T) {
	in := validInput()
	if verr := validateInput(&in, "INR"); verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if in.Currency != "INR" {
		t.Errorf("currency default = %q, want INR", in.Currency)
	}
	if in.Provider != string(models.ProviderRazorpay) {
		t.Errorf("provider default = %q, want razorpay", in.Provider)
	}
}

func TestValidateAmountBounds(t *testing.T) {
	for _, amount := range []int64{1, 500, 1_000_000} {
		in := validInput()
		in.Amount = amount
		if verr := validateInput(&in, "INR"); verr != nil {
			t.Errorf("amount %d rejected: %v", amount, verr)
		}
	}

	for _, amount := range []int64{0, -5, 1_000_001} {
		in := validInput()
		in.Amount = amount
		verr := validateInput(&in, "INR")
		if verr == nil {
			t.Errorf("amount %d accepted, want validation error", amount)
			continue
		}
		assertFieldError(t, verr, "amountInInr")
	}
}

func TestValidateAmountMinimumMentioned(t *testing.T) {
	in := validInput()
	in.Amount = 0
	verr := validateInput(&in, "INR")
	if verr == nil {
		t.Fatal("amount 0 accepted")
	}
	msg := fieldMessage(verr, "amountInInr")
	if !strings.Contains(msg, "at least 1") {
		t.Errorf("amountInInr message %q does not mention the minimum", msg)
	}
}

func TestValidateFieldConstraints(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.DonationInput)
		field  string
	}{
		{"short name", func(in *models.DonationInput) { in.FullName = "A" }, "fullName"},
		{"long name", func(in *models.DonationInput) { in.FullName = strings.Repeat("x", 101) }, "fullName"},
		{"bad email", func(in *models.DonationInput) { in.Email = "not-an-email" }, "email"},
		{"short phone", func(in *models.DonationInput) { in.Phone = "12345" }, "phone"},
		{"recurring without frequency", func(in *models.DonationInput) { in.Recurring = true }, "frequency"},
		{"recurring with bad frequency", func(in *models.DonationInput) { in.Recurring = true; in.Frequency = "weekly" }, "frequency"},
		{"long message", func(in *models.DonationInput) { in.Message = strings.Repeat("m", 501) }, "message"},
		{"unknown provider", func(in *models.DonationInput) { in.Provider = "paypal" }, "paymentProvider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			verr := validateInput(&in, "INR")
			if verr == nil {
				t.Fatal("input accepted, want validation error")
			}
			assertFieldError(t, verr, tc.field)
		})
	}
}

func TestValidatePhoneAllowsSeparators(t *testing.T) {
	in := validInput()
	in.Phone = "+91 98765-43210"
	if verr := validateInput(&in, "INR"); verr != nil {
		t.Errorf("formatted phone rejected: %v", verr)
	}
}

func TestValidateCollectsAllInvalidFields(t *testing.T) {
	in := models.DonationInput{FullName: "A", Email: "bad", Amount: 0}
	verr := validateInput(&in, "INR")
	if verr == nil {
		t.Fatal("input accepted, want validation error")
	}
	for _, field := range []string{"fullName", "email", "amountInInr"} {
		assertFieldError(t, verr, field)
	}
}

func TestValidateRecurringFrequencies(t *testing.T) {
	for _, freq := range []string{"monthly", "quarterly", "yearly"} {
		in := validInput()
		in.Recurring = true
		in.Frequency = freq
		if verr := validateInput(&in, "INR"); verr != nil {
			t.Errorf("frequency %q rejected: %v", freq, verr)
		}
	}
}

func assertFieldError(t *testing.T, verr *models.ValidationError, field string) {
	t.Helper()
	for _, f := range verr.Fields {
		if f.Field == field {
			return
		}
	}
	t.Errorf("no error for field %q in %v", field, verr.Fields)
}

func fieldMessage(verr *models.ValidationError, field string) string {
	for _, f := range verr.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

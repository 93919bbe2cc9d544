package loans

import (
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Application lifecycle states.
const (
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusDisbursed   = "disbursed"
)

// Application represents a loan application by an MSME borrower.
// Amounts are stored in minor currency units.
type Application struct {
	ID           uuid.UUID  `json:"id"`
	BorrowerID   uuid.UUID  `json:"borrower_id"`
	NBFCID       *uuid.UUID `json:"nbfc_id,omitempty"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency"`
	TenureMonths int        `json:"tenure_months"`
	Purpose      string     `json:"purpose"`
	Status       string     `json:"status"`
	EMI          int64      `json:"emi"`
	EMIDisplay   string     `json:"emi_display,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	DisbursedAt  *time.Time `json:"disbursed_at,omitempty"`
}

// NBFC represents a lending partner.
type NBFC struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	BaseRate    float64   `json:"base_rate"`
	MaxExposure int64     `json:"max_exposure"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// allowedTransitions encodes the application state machine.
var allowedTransitions = map[string][]string{
	StatusSubmitted:   {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusDisbursed},
}

func transitionAllowed(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ComputeEMI returns the monthly instalment in minor units for a principal,
// annual rate in percent, and tenure in months (reducing balance method).
func ComputeEMI(principal int64, annualRate float64, months int) int64 {
	if principal <= 0 || months <= 0 {
		return 0
	}
	if annualRate <= 0 {
		return int64(math.Round(float64(principal) / float64(months)))
	}
	r := annualRate / 12 / 100
	factor := math.Pow(1+r, float64(months))
	emi := float64(principal) * r * factor / (factor - 1)
	return int64(math.Round(emi))
}

var amountPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatAmount renders a minor-unit amount with locale digit grouping,
// e.g. 123456700 INR -> "INR 12,34,567.00".
func FormatAmount(minor int64, currency string) string {
	return amountPrinter.Sprintf("%s %.2f", currency, float64(minor)/100)
}

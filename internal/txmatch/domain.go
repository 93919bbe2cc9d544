package txmatch

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/payments"
)

// Expectation kinds.
const (
	KindLoanEMI     = "loan_emi"
	KindListingSale = "listing_sale"
)

// Expectation is money the platform expects to see settle: an EMI falling
// due or a listing sale awaiting payment.
type Expectation struct {
	ID        uuid.UUID `json:"id"`
	Reference string    `json:"reference"`
	Kind      string    `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	Amount    int64     `json:"amount"`
	DueDate   time.Time `json:"due_date"`
	Matched   bool      `json:"matched"`
	CreatedAt time.Time `json:"created_at"`
}

// Matching rules, in the order they are tried.
const (
	RuleExactReference = "exact_reference"
	RuleAmountWindow   = "amount_window"
)

// Match pairs a settled payment with the expectation it fulfils.
type Match struct {
	ID            uuid.UUID `json:"id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	Reference     string    `json:"reference"`
	ExpectationID uuid.UUID `json:"expectation_id"`
	Rule          string    `json:"rule"`
	Amount        int64     `json:"amount"`
	RunAt         time.Time `json:"run_at"`
}

// Report is the outcome of one reconciliation run.
type Report struct {
	Matches               []Match     `json:"matches"`
	UnmatchedPayments     []uuid.UUID `json:"unmatched_payments"`
	UnmatchedExpectations []uuid.UUID `json:"unmatched_expectations"`
}

// Options tune the second-pass tolerance matching.
type Options struct {
	// AmountTolerance is the largest absolute difference, in minor units,
	// still considered the same amount.
	AmountTolerance int64
	// DateWindow is how far a settlement may land from the due date.
	DateWindow time.Duration
}

// DefaultOptions match to the paisa within three days of the due date.
func DefaultOptions() Options {
	return Options{AmountTolerance: 0, DateWindow: 3 * 24 * time.Hour}
}

// Reconcile pairs settled payments with open expectations. Exact reference
// matches win first; leftovers are paired by amount within the date window.
// Each payment and each expectation is used at most once.
func Reconcile(settled []payments.Payment, open []Expectation, opts Options, runAt time.Time) Report {
	byRef := make(map[string]int, len(open))
	for i, exp := range open {
		byRef[exp.Reference] = i
	}

	usedPayment := make([]bool, len(settled))
	usedExp := make([]bool, len(open))
	var report Report

	record := func(p payments.Payment, expIdx int, rule string) {
		usedExp[expIdx] = true
		report.Matches = append(report.Matches, Match{
			ID:            uuid.New(),
			PaymentID:     p.ID,
			Reference:     p.Reference,
			ExpectationID: open[expIdx].ID,
			Rule:          rule,
			Amount:        p.Amount,
			RunAt:         runAt,
		})
	}

	for i, p := range settled {
		idx, ok := byRef[p.Reference]
		if !ok || usedExp[idx] {
			continue
		}
		usedPayment[i] = true
		record(p, idx, RuleExactReference)
	}

	// Second pass: smallest due-date distance wins among amount candidates,
	// scanned in settlement order so the outcome is deterministic.
	for i, p := range settled {
		if usedPayment[i] || p.SettledAt == nil {
			continue
		}
		best := -1
		var bestDist time.Duration
		for j, exp := range open {
			if usedExp[j] {
				continue
			}
			if absInt64(p.Amount-exp.Amount) > opts.AmountTolerance {
				continue
			}
			dist := absDuration(p.SettledAt.Sub(exp.DueDate))
			if dist > opts.DateWindow {
				continue
			}
			if best == -1 || dist < bestDist {
				best, bestDist = j, dist
			}
		}
		if best >= 0 {
			usedPayment[i] = true
			record(p, best, RuleAmountWindow)
		}
	}

	for i, p := range settled {
		if !usedPayment[i] {
			report.UnmatchedPayments = append(report.UnmatchedPayments, p.ID)
		}
	}
	for j, exp := range open {
		if !usedExp[j] {
			report.UnmatchedExpectations = append(report.UnmatchedExpectations, exp.ID)
		}
	}
	sort.Slice(report.Matches, func(i, j int) bool {
		return report.Matches[i].Reference < report.Matches[j].Reference
	})
	return report
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

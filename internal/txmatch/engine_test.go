package txmatch

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/msmebazaar/platform/internal/payments"
)

func settledPayment(reference string, amount int64, settledAt time.Time) payments.Payment {
	return payments.Payment{
		ID:        uuid.New(),
		Reference: reference,
		Amount:    amount,
		Status:    payments.StatusSucceeded,
		SettledAt: &settledAt,
	}
}

func expectation(reference string, amount int64, due time.Time) Expectation {
	return Expectation{
		ID:        uuid.New(),
		Reference: reference,
		Kind:      KindLoanEMI,
		UserID:    uuid.New(),
		Amount:    amount,
		DueDate:   due,
	}
}

func TestReconcileExactReferenceWins(t *testing.T) {
	now := time.Now()
	pay := settledPayment("PAY-A", 1000, now)
	exp := expectation("PAY-A", 999999, now.Add(-90*24*time.Hour))

	report := Reconcile([]payments.Payment{pay}, []Expectation{exp}, DefaultOptions(), now)
	require.Len(t, report.Matches, 1)
	require.Equal(t, RuleExactReference, report.Matches[0].Rule)
	require.Equal(t, pay.ID, report.Matches[0].PaymentID)
	require.Equal(t, exp.ID, report.Matches[0].ExpectationID)
	require.Empty(t, report.UnmatchedPayments)
	require.Empty(t, report.UnmatchedExpectations)
}

func TestReconcileAmountWindowFallback(t *testing.T) {
	now := time.Now()
	pay := settledPayment("PAY-B", 5000, now)
	near := expectation("EMI-2026-08", 5000, now.Add(24*time.Hour))
	far := expectation("EMI-2026-09", 5000, now.Add(2*24*time.Hour))

	report := Reconcile([]payments.Payment{pay}, []Expectation{near, far}, DefaultOptions(), now)
	require.Len(t, report.Matches, 1)
	require.Equal(t, RuleAmountWindow, report.Matches[0].Rule)
	// The closer due date wins.
	require.Equal(t, near.ID, report.Matches[0].ExpectationID)
	require.Equal(t, []uuid.UUID{far.ID}, report.UnmatchedExpectations)
}

func TestReconcileRespectsWindowAndTolerance(t *testing.T) {
	now := time.Now()
	opts := Options{AmountTolerance: 100, DateWindow: 24 * time.Hour}

	outsideWindow := settledPayment("PAY-C", 5000, now)
	expLate := expectation("EMI-LATE", 5000, now.Add(-48*time.Hour))

	withinTolerance := settledPayment("PAY-D", 5090, now)
	expNear := expectation("EMI-NEAR", 5000, now)

	report := Reconcile(
		[]payments.Payment{outsideWindow, withinTolerance},
		[]Expectation{expLate, expNear},
		opts, now)
	require.Len(t, report.Matches, 1)
	require.Equal(t, expNear.ID, report.Matches[0].ExpectationID)
	require.Equal(t, []uuid.UUID{outsideWindow.ID}, report.UnmatchedPayments)
	require.Equal(t, []uuid.UUID{expLate.ID}, report.UnmatchedExpectations)
}

func TestReconcileEachSideUsedOnce(t *testing.T) {
	now := time.Now()
	pay1 := settledPayment("PAY-E", 5000, now)
	pay2 := settledPayment("PAY-F", 5000, now)
	exp := expectation("EMI-ONE", 5000, now)

	report := Reconcile([]payments.Payment{pay1, pay2}, []Expectation{exp}, DefaultOptions(), now)
	require.Len(t, report.Matches, 1)
	require.Len(t, report.UnmatchedPayments, 1)
	require.Empty(t, report.UnmatchedExpectations)
}

func TestReconcileIgnoresUnsettledSecondPass(t *testing.T) {
	now := time.Now()
	pay := payments.Payment{
		ID:        uuid.New(),
		Reference: "PAY-G",
		Amount:    5000,
		Status:    payments.StatusInitiated,
	}
	exp := expectation("EMI-OPEN", 5000, now)

	report := Reconcile([]payments.Payment{pay}, []Expectation{exp}, DefaultOptions(), now)
	require.Empty(t, report.Matches)
	require.Equal(t, []uuid.UUID{pay.ID}, report.UnmatchedPayments)
}

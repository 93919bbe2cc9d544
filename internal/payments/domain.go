package payments

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Payment lifecycle states.
const (
	StatusInitiated = "initiated"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Payment purposes.
const (
	PurposeListing      = "listing"
	PurposeLoanEMI      = "loan_emi"
	PurposeSubscription = "subscription"
)

// Payment represents a money movement on the platform. Amounts are minor
// currency units.
type Payment struct {
	ID        uuid.UUID  `json:"id"`
	Reference string     `json:"reference"`
	PayerID   uuid.UUID  `json:"payer_id"`
	PayeeID   uuid.UUID  `json:"payee_id"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Purpose   string     `json:"purpose"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// Terminal reports whether the payment can no longer change state.
func (p *Payment) Terminal() bool {
	return p.Status == StatusSucceeded || p.Status == StatusFailed
}

// NewReference mints a lexically sortable payment reference.
func NewReference(now time.Time) string {
	return "PAY-" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

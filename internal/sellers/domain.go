package sellers

import (
	"time"

	"github.com/google/uuid"
)

// Listing lifecycle states.
const (
	StatusDraft     = "draft"
	StatusListed    = "listed"
	StatusSold      = "sold"
	StatusSuspended = "suspended"
)

// Listing represents an MSME business listed on the marketplace.
type Listing struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Name          string    `json:"name"`
	Sector        string    `json:"sector"`
	Region        string    `json:"region"`
	Description   string    `json:"description"`
	AnnualRevenue int64     `json:"annual_revenue"`
	AskingPrice   int64     `json:"asking_price"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilters narrows listing queries.
type ListFilters struct {
	Sector   string
	Region   string
	Status   string
	Search   string
	MinPrice int64
	MaxPrice int64
	OwnerID  *uuid.UUID
	Page     int
	Limit    int
	SortBy   string
	SortDir  string
}

// allowedTransitions encodes the listing state machine. Sold is terminal;
// suspended listings can only be re-listed by an admin.
var allowedTransitions = map[string][]string{
	StatusDraft:     {StatusListed},
	StatusListed:    {StatusSold, StatusSuspended},
	StatusSuspended: {StatusListed},
}

func transitionAllowed(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

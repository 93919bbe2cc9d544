package recommendations

import (
	"github.com/google/uuid"
)

// Recommendation reasons.
const (
	ReasonSector = "popular_in_sector"
	ReasonRegion = "popular_in_region"
	ReasonRecent = "recently_listed"
)

// Recommendation is a listing suggested to a user.
type Recommendation struct {
	ListingID   uuid.UUID `json:"listing_id"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector"`
	Region      string    `json:"region"`
	AskingPrice int64     `json:"asking_price"`
	Currency    string    `json:"currency"`
	Reason      string    `json:"reason"`
}

package gamification

import (
	"time"

	"github.com/google/uuid"
)

// Recognised events and the points they award.
const (
	EventProfileCompleted = "profile_completed"
	EventListingCreated   = "listing_created"
	EventLoanRepaid       = "loan_repaid"
	EventReferral         = "referral"
)

var eventPoints = map[string]int64{
	EventProfileCompleted: 50,
	EventListingCreated:   25,
	EventLoanRepaid:       100,
	EventReferral:         40,
}

// PointsFor returns the award for an event, zero when unknown.
func PointsFor(event string) int64 {
	return eventPoints[event]
}

// Badge tiers by accumulated points.
const (
	BadgeNone   = ""
	BadgeBronze = "bronze"
	BadgeSilver = "silver"
	BadgeGold   = "gold"
)

// BadgeFor maps a points total to the badge tier it earns.
func BadgeFor(points int64) string {
	switch {
	case points >= 2000:
		return BadgeGold
	case points >= 500:
		return BadgeSilver
	case points >= 100:
		return BadgeBronze
	default:
		return BadgeNone
	}
}

// Event is one awarded action, kept as a durable audit of the leaderboard.
type Event struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Event     string    `json:"event"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// Standing is a user's position on the leaderboard.
type Standing struct {
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
	Badge  string `json:"badge"`
	Rank   int64  `json:"rank"`
}

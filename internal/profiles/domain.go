package profiles

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds extended account data for a platform user.
type Profile struct {
	UserID       uuid.UUID         `json:"user_id"`
	Phone        string            `json:"phone"`
	BusinessName string            `json:"business_name"`
	GSTNumber    string            `json:"gst_number"`
	Address      string            `json:"address"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	Pincode      string            `json:"pincode"`
	Preferences  map[string]string `json:"preferences"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Completed reports whether the profile carries enough data to count as
// filled in, which is what gamification awards points for.
func (p *Profile) Completed() bool {
	return p != nil && p.Phone != "" && p.BusinessName != "" && p.City != "" && p.State != ""
}

// Summary aggregates the profile with engagement data from other modules.
type Summary struct {
	Profile         *Profile `json:"profile"`
	Points          int64    `json:"points"`
	Badge           string   `json:"badge"`
	Recommendations int      `json:"recommendations"`
}

package matchmaking

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/sellers"
)

// Scoring weights. They sum to 1 so a perfect, freshly listed match scores 1.0.
const (
	weightSector  = 0.40
	weightRegion  = 0.25
	weightPrice   = 0.20
	weightRecency = 0.15

	// recencyHalfLife controls how fast a listing's freshness contribution
	// decays: a listing this old earns half the recency weight.
	recencyHalfLife = 30 * 24 * time.Hour
)

// Criteria is what a buyer is shopping for, derived from profile preferences.
type Criteria struct {
	Sectors   []string
	Regions   []string
	MinBudget int64
	MaxBudget int64
}

// Empty reports whether the criteria carry no signal at all.
func (c Criteria) Empty() bool {
	return len(c.Sectors) == 0 && len(c.Regions) == 0 && c.MinBudget == 0 && c.MaxBudget == 0
}

// CriteriaFromPreferences parses buyer criteria out of the free-form profile
// preference map. Unknown or malformed keys are ignored.
func CriteriaFromPreferences(prefs map[string]string) Criteria {
	var c Criteria
	if prefs == nil {
		return c
	}
	c.Sectors = splitList(prefs["sectors"])
	c.Regions = splitList(prefs["regions"])
	if v, err := strconv.ParseInt(prefs["min_budget"], 10, 64); err == nil && v > 0 {
		c.MinBudget = v
	}
	if v, err := strconv.ParseInt(prefs["max_budget"], 10, 64); err == nil && v > 0 {
		c.MaxBudget = v
	}
	return c
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Match is a scored listing returned to a buyer.
type Match struct {
	ListingID   uuid.UUID `json:"listing_id"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector"`
	Region      string    `json:"region"`
	AskingPrice int64     `json:"asking_price"`
	Currency    string    `json:"currency"`
	Score       float64   `json:"score"`
	Reasons     []string  `json:"reasons"`
}

// Score rates a single listing against the criteria. The second return lists
// which components contributed, for display alongside the match.
func Score(c Criteria, listing sellers.Listing, now time.Time) (float64, []string) {
	var score float64
	var reasons []string

	if containsFold(c.Sectors, listing.Sector) {
		score += weightSector
		reasons = append(reasons, "sector")
	}
	if containsFold(c.Regions, listing.Region) {
		score += weightRegion
		reasons = append(reasons, "region")
	}
	if priceInBand(c, listing.AskingPrice) {
		score += weightPrice
		reasons = append(reasons, "budget")
	}

	age := now.Sub(listing.UpdatedAt)
	if age < 0 {
		age = 0
	}
	// Exponential decay via repeated halving keeps the math integer-friendly
	// and monotone: fresher listings always outrank staler twins.
	decay := 1.0
	for age >= recencyHalfLife {
		decay /= 2
		age -= recencyHalfLife
	}
	decay *= 1 - 0.5*float64(age)/float64(recencyHalfLife)
	score += weightRecency * decay

	return score, reasons
}

// Rank scores every listing and returns the top matches, best first. Listings
// scoring only on recency (no criteria hit) are dropped unless the criteria
// are empty, in which case recency alone orders the result.
func Rank(c Criteria, listings []sellers.Listing, now time.Time, limit int) []Match {
	if limit <= 0 {
		limit = 10
	}
	matches := make([]Match, 0, len(listings))
	for _, l := range listings {
		if l.Status != sellers.StatusListed {
			continue
		}
		score, reasons := Score(c, l, now)
		if len(reasons) == 0 && !c.Empty() {
			continue
		}
		matches = append(matches, Match{
			ListingID:   l.ID,
			Name:        l.Name,
			Sector:      l.Sector,
			Region:      l.Region,
			AskingPrice: l.AskingPrice,
			Currency:    l.Currency,
			Score:       score,
			Reasons:     reasons,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func priceInBand(c Criteria, price int64) bool {
	if c.MinBudget == 0 && c.MaxBudget == 0 {
		return false
	}
	if c.MinBudget > 0 && price < c.MinBudget {
		return false
	}
	if c.MaxBudget > 0 && price > c.MaxBudget {
		return false
	}
	return true
}

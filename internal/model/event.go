package model

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// MaxDescriptionLen is the rune limit applied to every event description,
// regardless of which provider produced it.
const MaxDescriptionLen = 300

// StructuredConfidence is assigned to every record coming from a structured
// provider API. Only ai_discovered records carry a model-reported confidence.
const StructuredConfidence = 0.95

// Category is the closed taxonomy every provider's own classification is
// mapped into.
type Category string

const (
	CategoryNightlife Category = "nightlife"
	CategoryFoodDrink Category = "food_drink"
	CategoryConcert   Category = "concert"
	CategoryFestival  Category = "festival"
	CategorySports    Category = "sports"
	CategoryArt       Category = "art"
	CategoryFamily    Category = "family"
	CategoryOther     Category = "other"
)

// Categories lists all valid categories.
var Categories = []Category{
	CategoryNightlife,
	CategoryFoodDrink,
	CategoryConcert,
	CategoryFestival,
	CategorySports,
	CategoryArt,
	CategoryFamily,
	CategoryOther,
}

// ValidCategory returns the category if it is a member of the closed set,
// CategoryOther otherwise.
func ValidCategory(s string) Category {
	for _, c := range Categories {
		if Category(s) == c {
			return c
		}
	}
	return CategoryOther
}

// SourceType identifies which connector produced an event. The set is closed
// and each member carries a fixed trust tier used to resolve duplicates.
type SourceType string

const (
	SourceTicketmaster SourceType = "api_ticketmaster"
	SourceEventbrite   SourceType = "api_eventbrite"
	SourceSeatgeek     SourceType = "api_seatgeek"
	SourceAIDiscovered SourceType = "ai_discovered"
)

// Priority returns the fixed trust tier of the source. Higher wins when two
// records describe the same real-world event. Unknown sources rank below
// everything.
func (s SourceType) Priority() int {
	switch s {
	case SourceTicketmaster:
		return 4
	case SourceEventbrite:
		return 3
	case SourceSeatgeek:
		return 2
	case SourceAIDiscovered:
		return 1
	default:
		return 0
	}
}

// Status is the lifecycle state of a persisted event. Events move
// active -> past by date comparison only; rows are never deleted.
type Status string

const (
	StatusActive  Status = "active"
	StatusPast    Status = "past"
	StatusFlagged Status = "flagged"
	StatusRemoved Status = "removed"
)

// Venue is a place an event happens at. Lat/Lng of exactly (0,0) is the
// sentinel for "unknown" and never a real coordinate.
type Venue struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Address  string  `json:"address"`
	City     string  `json:"city"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Verified bool    `json:"verified"`
	OwnerID  string  `json:"owner_id,omitempty"`
}

// HasCoords reports whether the venue carries a real coordinate.
func (v Venue) HasCoords() bool {
	return v.Lat != 0 || v.Lng != 0
}

// Event is the canonical shape every provider's data is mapped into.
type Event struct {
	// ID is opaque and provider-prefixed. It is derived deterministically
	// from the provider's native id, so re-fetching the same upstream
	// record always yields the same ID.
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Venue       *Venue     `json:"venue,omitempty"`
	Date        string     `json:"event_date"` // YYYY-MM-DD
	TimeStart   string     `json:"time_start"` // HH:MM
	TimeEnd     string     `json:"time_end,omitempty"`
	Category    Category   `json:"category"`
	PriceInfo   string     `json:"price_info"`
	SourceType  SourceType `json:"source_type"`
	SourceURL   string     `json:"source_url,omitempty"`
	Confidence  float64    `json:"confidence"`
	ImageURL    string     `json:"image_url,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
}

// DedupKey is the idempotency key used to detect already-ingested records
// across scan runs.
func (e Event) DedupKey() string {
	return e.Title + "|" + e.Date
}

// DeriveID builds a stable event id from a provider prefix and the
// provider's native identifier.
func DeriveID(prefix, nativeID string) string {
	return prefix + "-" + nativeID
}

// DeriveDiscoveredID builds a stable id for an AI-discovered event, which has
// no provider-native id. The hash over (city, date, title) keeps the id
// identical when the same event is reported again.
func DeriveDiscoveredID(city, date, title string) string {
	sum := sha1.Sum([]byte(city + "|" + date + "|" + title))
	return fmt.Sprintf("ai-%s", hex.EncodeToString(sum[:8]))
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

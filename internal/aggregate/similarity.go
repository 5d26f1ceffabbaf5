package aggregate

import (
	"strings"

	"github.com/lnup/eventscout/internal/model"
)

// Coordinates within ~0.005 degrees latitude and longitude (~500m) count as
// the same place.
const coordEpsilon = 0.005

// Start times within 90 minutes of each other count as overlapping.
const startTimeWindowMinutes = 90

const (
	venueNameThreshold    = 0.85
	titleThreshold        = 0.8
	titleAtVenueThreshold = 0.6
)

// NormalizeForComparison lowercases and strips every character outside
// [a-z0-9äöüß], so "Club XYZ" and "club-xyz!!" compare equal.
func NormalizeForComparison(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'ä', r == 'ö', r == 'ü', r == 'ß':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Similarity is the normalized edit-distance closeness of two strings:
// 1 - distance/len(longer), symmetric, 1.0 for identical inputs.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longer, shorter := ra, rb
	if len(rb) > len(ra) {
		longer, shorter = rb, ra
	}
	if len(longer) == 0 {
		return 1
	}
	return 1 - float64(levenshtein(shorter, longer))/float64(len(longer))
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func coordsAreClose(a, b *model.Venue) bool {
	if a == nil || b == nil || !a.HasCoords() || !b.HasCoords() {
		return false
	}
	return abs(a.Lat-b.Lat) < coordEpsilon && abs(a.Lng-b.Lng) < coordEpsilon
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// startTimesOverlap compares HH:MM start times. A missing time on either side
// counts as overlapping so a lone source cannot block a venue match.
func startTimesOverlap(a, b model.Event) bool {
	ma, okA := parseMinutes(a.TimeStart)
	mb, okB := parseMinutes(b.TimeStart)
	if !okA || !okB {
		return true
	}
	d := ma - mb
	if d < 0 {
		d = -d
	}
	return d <= startTimeWindowMinutes
}

func parseMinutes(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := atoi(parts[0])
	m, err2 := atoi(parts[1])
	if !err1 || !err2 {
		return 0, false
	}
	return h*60 + m, true
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// sameVenue checks normalized-name equality, containment either direction,
// fuzzy name similarity, or coordinate proximity.
func sameVenue(a, b model.Event) bool {
	var nameA, nameB string
	if a.Venue != nil {
		nameA = NormalizeForComparison(a.Venue.Name)
	}
	if b.Venue != nil {
		nameB = NormalizeForComparison(b.Venue.Name)
	}
	if nameA != "" && nameB != "" {
		if nameA == nameB {
			return true
		}
		if strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA) {
			return true
		}
		if Similarity(nameA, nameB) > venueNameThreshold {
			return true
		}
	}
	return coordsAreClose(a.Venue, b.Venue)
}

// AreSimilar decides whether two canonical events describe the same
// real-world event. Events on different calendar dates are never similar;
// all string comparison happens inside one date partition.
func AreSimilar(a, b model.Event) bool {
	if a.Date != b.Date {
		return false
	}

	// Same place and overlapping start time is almost certainly the same
	// event, whatever the two providers chose to call it.
	if sameVenue(a, b) && startTimesOverlap(a, b) {
		return true
	}

	titleA := NormalizeForComparison(a.Title)
	titleB := NormalizeForComparison(b.Title)

	if titleA == titleB {
		return true
	}
	if titleA != "" && titleB != "" &&
		(strings.Contains(titleA, titleB) || strings.Contains(titleB, titleA)) {
		return true
	}
	if Similarity(titleA, titleB) > titleThreshold {
		return true
	}

	// Same coordinates with a moderately similar title.
	if coordsAreClose(a.Venue, b.Venue) && Similarity(titleA, titleB) > titleAtVenueThreshold {
		return true
	}

	return false
}

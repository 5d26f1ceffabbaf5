// Package category maps each provider's own taxonomy into the closed
// eight-value event category set. Unmapped codes always fall back to
// CategoryOther; mapping is never an error.
package category

import (
	"strings"

	"github.com/lnup/eventscout/internal/model"
)

var eventbriteCategories = map[string]model.Category{
	"103": model.CategoryConcert,   // Music
	"104": model.CategoryArt,       // Film & Media
	"105": model.CategoryArt,       // Performing & Visual Arts
	"106": model.CategoryOther,     // Fashion
	"107": model.CategoryOther,     // Health
	"108": model.CategorySports,    // Sports & Fitness
	"109": model.CategoryOther,     // Travel & Outdoor
	"110": model.CategoryFoodDrink, // Food & Drink
	"111": model.CategoryOther,     // Charity & Causes
	"112": model.CategoryOther,     // Government & Politics
	"113": model.CategoryOther,     // Community & Culture
	"114": model.CategoryOther,     // Religion & Spirituality
	"115": model.CategoryFamily,    // Family & Education
	"116": model.CategoryOther,     // Seasonal & Holiday
	"117": model.CategoryOther,     // Business & Professional
	"118": model.CategoryOther,     // Science & Technology
	"119": model.CategoryNightlife, // Nightlife
	"199": model.CategoryOther,     // Other
}

var ticketmasterSegments = map[string]model.Category{
	"Music":          model.CategoryConcert,
	"Sports":         model.CategorySports,
	"Arts & Theatre": model.CategoryArt,
	"Film":           model.CategoryArt,
	"Miscellaneous":  model.CategoryOther,
	"Undefined":      model.CategoryOther,
}

var ticketmasterGenres = map[string]model.Category{
	"Club":                    model.CategoryNightlife,
	"Dance/Electronic":        model.CategoryNightlife,
	"DJ":                      model.CategoryNightlife,
	"Rock":                    model.CategoryConcert,
	"Pop":                     model.CategoryConcert,
	"Hip-Hop/Rap":             model.CategoryConcert,
	"R&B":                     model.CategoryConcert,
	"Jazz":                    model.CategoryConcert,
	"Classical":               model.CategoryConcert,
	"Metal":                   model.CategoryConcert,
	"Alternative":             model.CategoryConcert,
	"Folk":                    model.CategoryConcert,
	"Country":                 model.CategoryConcert,
	"Latin":                   model.CategoryConcert,
	"Reggae":                  model.CategoryConcert,
	"Blues":                   model.CategoryConcert,
	"World":                   model.CategoryConcert,
	"Comedy":                  model.CategoryArt,
	"Theatre":                 model.CategoryArt,
	"Opera":                   model.CategoryArt,
	"Dance":                   model.CategoryArt,
	"Circus & Specialty Acts": model.CategoryFamily,
	"Fairs & Festivals":       model.CategoryFestival,
	"Festival":                model.CategoryFestival,
	"Food & Drink":            model.CategoryFoodDrink,
	"Family":                  model.CategoryFamily,
	"Soccer":                  model.CategorySports,
	"Football":                model.CategorySports,
	"Basketball":              model.CategorySports,
	"Ice Hockey":              model.CategorySports,
	"Tennis":                  model.CategorySports,
	"Boxing":                  model.CategorySports,
	"Motorsports/Racing":      model.CategorySports,
}

var seatgeekTypes = map[string]model.Category{
	"concert":                model.CategoryConcert,
	"music_festival":         model.CategoryFestival,
	"theater":                model.CategoryArt,
	"comedy":                 model.CategoryArt,
	"dance_performance_tour": model.CategoryArt,
	"classical":              model.CategoryConcert,
	"opera":                  model.CategoryArt,
	"literary":               model.CategoryArt,
	"film":                   model.CategoryArt,
	"circus":                 model.CategoryFamily,
	"family":                 model.CategoryFamily,
	"sports":                 model.CategorySports,
	"soccer":                 model.CategorySports,
	"football":               model.CategorySports,
	"basketball":             model.CategorySports,
	"ice_hockey":             model.CategorySports,
	"tennis":                 model.CategorySports,
	"baseball":               model.CategorySports,
	"golf":                   model.CategorySports,
	"boxing":                 model.CategorySports,
	"mma":                    model.CategorySports,
	"wrestling":              model.CategorySports,
	"motorsports":            model.CategorySports,
	"minor_league_sports":    model.CategorySports,
	"nfl":                    model.CategorySports,
	"nba":                    model.CategorySports,
	"mlb":                    model.CategorySports,
	"nhl":                    model.CategorySports,
	"ncaa_football":          model.CategorySports,
	"ncaa_basketball":        model.CategorySports,
	"food_and_drink":         model.CategoryFoodDrink,
	"nightlife":              model.CategoryNightlife,
	"club":                   model.CategoryNightlife,
	"festival":               model.CategoryFestival,
}

// FromEventbrite maps an Eventbrite numeric category id.
func FromEventbrite(categoryID string) model.Category {
	if categoryID == "" {
		return model.CategoryOther
	}
	if c, ok := eventbriteCategories[categoryID]; ok {
		return c
	}
	return model.CategoryOther
}

// FromTicketmaster maps a Ticketmaster classification. The genre is more
// specific than the segment, so a genre match wins.
func FromTicketmaster(segment, genre string) model.Category {
	if genre != "" {
		if c, ok := ticketmasterGenres[genre]; ok {
			return c
		}
	}
	if segment != "" {
		if c, ok := ticketmasterSegments[segment]; ok {
			return c
		}
	}
	return model.CategoryOther
}

// FromSeatgeek maps a SeatGeek taxonomy or event type slug.
func FromSeatgeek(typeName string) model.Category {
	if typeName == "" {
		return model.CategoryOther
	}
	normalized := strings.ToLower(typeName)
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if c, ok := seatgeekTypes[normalized]; ok {
		return c
	}
	return model.CategoryOther
}

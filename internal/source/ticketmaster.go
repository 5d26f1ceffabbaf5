package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/lnup/eventscout/internal/category"
	"github.com/lnup/eventscout/internal/model"
)

const ticketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2/events.json"

// Providers report some city names in English; canonical records keep the
// German spelling.
var cityToEnglish = map[string]string{
	"München":      "Munich",
	"Nürnberg":     "Nuremberg",
	"Köln":         "Cologne",
	"Braunschweig": "Brunswick",
	"Hannover":     "Hanover",
}

var cityToGerman = invert(cityToEnglish)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// GermanCityName maps a provider-reported city name back to its German
// spelling, passing unknown names through unchanged.
func GermanCityName(name string) string {
	if de, ok := cityToGerman[name]; ok {
		return de
	}
	return name
}

// Ticketmaster fetches the Discovery v2 feed. An empty city fetches the
// nationwide feed, which the scan orchestrator pages through.
type Ticketmaster struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	userAgent string
	maxBytes  int64
	pageSize  int
	maxPages  int
}

// TicketmasterOption tweaks the connector.
type TicketmasterOption func(*Ticketmaster)

// WithTicketmasterBaseURL overrides the API endpoint (used by tests).
func WithTicketmasterBaseURL(u string) TicketmasterOption {
	return func(t *Ticketmaster) { t.baseURL = u }
}

// WithTicketmasterPaging bounds page size and max page count.
func WithTicketmasterPaging(pageSize, maxPages int) TicketmasterOption {
	return func(t *Ticketmaster) {
		if pageSize > 0 {
			t.pageSize = pageSize
		}
		if maxPages > 0 {
			t.maxPages = maxPages
		}
	}
}

// NewTicketmaster creates the connector. An empty apiKey disables it: Fetch
// returns no events and no error.
func NewTicketmaster(apiKey string, client *http.Client, httpCfg model.HTTPConfig, opts ...TicketmasterOption) *Ticketmaster {
	t := &Ticketmaster{
		apiKey:    apiKey,
		baseURL:   ticketmasterBaseURL,
		client:    client,
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		pageSize:  200,
		maxPages:  3,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Ticketmaster) Name() string { return "ticketmaster" }

// Wire types, defensively optional where the provider omits fields.

type tmResponse struct {
	Embedded *struct {
		Events []tmEvent `json:"events"`
	} `json:"_embedded"`
	Page struct {
		TotalPages int `json:"totalPages"`
	} `json:"page"`
}

type tmEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Info  string `json:"info"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
		End *struct {
			LocalTime string `json:"localTime"`
		} `json:"end"`
		Status *struct {
			Code string `json:"code"`
		} `json:"status"`
	} `json:"dates"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Images []struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	Classifications []struct {
		Segment *struct {
			Name string `json:"name"`
		} `json:"segment"`
		Genre *struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	Embedded *struct {
		Venues []tmVenue `json:"venues"`
	} `json:"_embedded"`
}

type tmVenue struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address *struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	City *struct {
		Name string `json:"name"`
	} `json:"city"`
	Location *struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
}

// Fetch pages through the feed for one city (or nationwide when city is
// empty) and maps each non-cancelled record into a canonical event.
func (t *Ticketmaster) Fetch(ctx context.Context, city string) ([]model.Event, error) {
	if t.apiKey == "" {
		return nil, nil
	}

	var events []model.Event
	page := 0
	totalPages := 1

	for page < totalPages && page < t.maxPages {
		params := url.Values{}
		params.Set("countryCode", "DE")
		params.Set("size", strconv.Itoa(t.pageSize))
		params.Set("page", strconv.Itoa(page))
		params.Set("sort", "date,asc")
		params.Set("apikey", t.apiKey)
		if city != "" {
			en := city
			if mapped, ok := cityToEnglish[city]; ok {
				en = mapped
			}
			params.Set("city", en)
		}

		var resp tmResponse
		if err := getJSON(ctx, t.client, t.baseURL+"?"+params.Encode(), t.userAgent, nil, t.maxBytes, &resp); err != nil {
			if page == 0 {
				fmt.Fprintf(os.Stderr, "Warning: ticketmaster fetch failed: %v\n", err)
				return nil, nil
			}
			// Later pages failing still yield the pages already read.
			fmt.Fprintf(os.Stderr, "Warning: ticketmaster page %d failed: %v\n", page, err)
			break
		}

		if resp.Embedded == nil || len(resp.Embedded.Events) == 0 {
			break
		}
		for _, tm := range resp.Embedded.Events {
			if tm.Dates.Status != nil && tm.Dates.Status.Code == "cancelled" {
				continue
			}
			if e, ok := t.mapEvent(tm, city); ok {
				events = append(events, e)
			}
		}
		totalPages = resp.Page.TotalPages
		page++
	}

	return events, nil
}

func (t *Ticketmaster) mapEvent(tm tmEvent, fallbackCity string) (model.Event, bool) {
	if tm.Name == "" || tm.Dates.Start.LocalDate == "" {
		return model.Event{}, false
	}

	var segment, genre string
	if len(tm.Classifications) > 0 {
		if tm.Classifications[0].Segment != nil {
			segment = tm.Classifications[0].Segment.Name
		}
		if tm.Classifications[0].Genre != nil {
			genre = tm.Classifications[0].Genre.Name
		}
	}

	images := make([]image, 0, len(tm.Images))
	for _, img := range tm.Images {
		images = append(images, image{URL: img.URL, Width: img.Width})
	}

	priceInfo := "Siehe Ticketmaster"
	if len(tm.PriceRanges) > 0 {
		r := tm.PriceRanges[0]
		priceInfo = formatPrice(r.Min, r.Max, r.Currency)
	}

	var venue *model.Venue
	if tm.Embedded != nil && len(tm.Embedded.Venues) > 0 {
		venue = mapTMVenue(tm.Embedded.Venues[0], fallbackCity)
	}

	startTime := "20:00"
	if len(tm.Dates.Start.LocalTime) >= 5 {
		startTime = tm.Dates.Start.LocalTime[:5]
	}
	endTime := ""
	if tm.Dates.End != nil && len(tm.Dates.End.LocalTime) >= 5 {
		endTime = tm.Dates.End.LocalTime[:5]
	}

	return model.Event{
		ID:          model.DeriveID("tm", tm.ID),
		Title:       tm.Name,
		Description: model.Truncate(tm.Info, model.MaxDescriptionLen),
		Venue:       venue,
		Date:        tm.Dates.Start.LocalDate,
		TimeStart:   startTime,
		TimeEnd:     endTime,
		Category:    category.FromTicketmaster(segment, genre),
		PriceInfo:   priceInfo,
		SourceType:  model.SourceTicketmaster,
		SourceURL:   tm.URL,
		Confidence:  model.StructuredConfidence,
		ImageURL:    bestImage(images),
		Status:      model.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}, true
}

func mapTMVenue(v tmVenue, fallbackCity string) *model.Venue {
	cityName := ""
	if v.City != nil {
		cityName = GermanCityName(v.City.Name)
	}
	if cityName == "" {
		cityName = fallbackCity
	}

	address := cityName
	if v.Address != nil && v.Address.Line1 != "" {
		address = v.Address.Line1 + ", " + cityName
	}

	var lat, lng float64
	if v.Location != nil {
		lat, _ = strconv.ParseFloat(v.Location.Latitude, 64)
		lng, _ = strconv.ParseFloat(v.Location.Longitude, 64)
	}

	return &model.Venue{
		ID:      model.DeriveID("tm-venue", v.ID),
		Name:    v.Name,
		Address: address,
		City:    cityName,
		Lat:     lat,
		Lng:     lng,
	}
}

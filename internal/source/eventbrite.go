package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lnup/eventscout/internal/category"
	"github.com/lnup/eventscout/internal/model"
)

const eventbriteBaseURL = "https://www.eventbriteapi.com/v3/events/search/"

// Eventbrite fetches the search API with bearer-token auth.
type Eventbrite struct {
	apiKey    string
	baseURL   string
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewEventbrite creates the connector. An empty apiKey disables it.
func NewEventbrite(apiKey string, client *http.Client, httpCfg model.HTTPConfig) *Eventbrite {
	return &Eventbrite{
		apiKey:    apiKey,
		baseURL:   eventbriteBaseURL,
		client:    client,
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (e *Eventbrite) SetBaseURL(u string) { e.baseURL = u }

func (e *Eventbrite) Name() string { return "eventbrite" }

type ebResponse struct {
	Events []ebEvent `json:"events"`
}

type ebEvent struct {
	ID   string `json:"id"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	URL   string `json:"url"`
	Start struct {
		Local string `json:"local"`
	} `json:"start"`
	End *struct {
		Local string `json:"local"`
	} `json:"end"`
	IsFree bool `json:"is_free"`
	Venue  *struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Address struct {
			Display   string `json:"localized_address_display"`
			Latitude  string `json:"latitude"`
			Longitude string `json:"longitude"`
		} `json:"address"`
	} `json:"venue"`
	CategoryID string `json:"category_id"`
	Logo       *struct {
		URL string `json:"url"`
	} `json:"logo"`
}

// Fetch queries this week's events near the city.
func (e *Eventbrite) Fetch(ctx context.Context, city string) ([]model.Event, error) {
	if e.apiKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("location.address", city+", Germany")
	params.Set("expand", "venue")
	params.Set("start_date.keyword", "this_week")
	params.Set("page", "1")

	headers := map[string]string{"Authorization": "Bearer " + e.apiKey}
	var resp ebResponse
	if err := getJSON(ctx, e.client, e.baseURL+"?"+params.Encode(), e.userAgent, headers, e.maxBytes, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: eventbrite fetch failed: %v\n", err)
		return nil, nil
	}

	events := make([]model.Event, 0, len(resp.Events))
	for _, eb := range resp.Events {
		if ev, ok := mapEBEvent(eb, city); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func mapEBEvent(eb ebEvent, city string) (model.Event, bool) {
	date, startTime := splitLocalDateTime(eb.Start.Local)
	if eb.Name.Text == "" || date == "" {
		return model.Event{}, false
	}
	endTime := ""
	if eb.End != nil {
		_, endTime = splitLocalDateTime(eb.End.Local)
	}

	var venue *model.Venue
	if eb.Venue != nil {
		lat, _ := strconv.ParseFloat(eb.Venue.Address.Latitude, 64)
		lng, _ := strconv.ParseFloat(eb.Venue.Address.Longitude, 64)
		venue = &model.Venue{
			ID:      model.DeriveID("eb-venue", eb.Venue.ID),
			Name:    eb.Venue.Name,
			Address: eb.Venue.Address.Display,
			City:    city,
			Lat:     lat,
			Lng:     lng,
		}
	}

	priceInfo := "Siehe Eventbrite"
	if eb.IsFree {
		priceInfo = "Kostenlos"
	}

	imageURL := ""
	if eb.Logo != nil {
		imageURL = eb.Logo.URL
	}

	return model.Event{
		ID:          model.DeriveID("eb", eb.ID),
		Title:       eb.Name.Text,
		Description: model.Truncate(eb.Description.Text, model.MaxDescriptionLen),
		Venue:       venue,
		Date:        date,
		TimeStart:   startTime,
		TimeEnd:     endTime,
		Category:    category.FromEventbrite(eb.CategoryID),
		PriceInfo:   priceInfo,
		SourceType:  model.SourceEventbrite,
		SourceURL:   eb.URL,
		Confidence:  model.StructuredConfidence,
		ImageURL:    imageURL,
		Status:      model.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}, true
}

// splitLocalDateTime splits "2026-09-05T19:30:00" into date and HH:MM.
func splitLocalDateTime(local string) (date, hhmm string) {
	parts := strings.SplitN(local, "T", 2)
	date = parts[0]
	if len(parts) == 2 && len(parts[1]) >= 5 {
		hhmm = parts[1][:5]
	} else {
		hhmm = "00:00"
	}
	return date, hhmm
}

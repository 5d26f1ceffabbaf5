package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/lnup/eventscout/internal/category"
	"github.com/lnup/eventscout/internal/model"
)

const seatgeekBaseURL = "https://api.seatgeek.com/2/events"

// Seatgeek fetches the events API with query-string client-id auth.
type Seatgeek struct {
	clientID  string
	baseURL   string
	client    *http.Client
	userAgent string
	maxBytes  int64
	perPage   int
	now       func() time.Time
}

// NewSeatgeek creates the connector. An empty clientID disables it.
func NewSeatgeek(clientID string, client *http.Client, httpCfg model.HTTPConfig) *Seatgeek {
	return &Seatgeek{
		clientID:  clientID,
		baseURL:   seatgeekBaseURL,
		client:    client,
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		perPage:   20,
		now:       time.Now,
	}
}

// SetBaseURL overrides the API endpoint (used by tests).
func (s *Seatgeek) SetBaseURL(u string) { s.baseURL = u }

func (s *Seatgeek) Name() string { return "seatgeek" }

type sgResponse struct {
	Events []sgEvent `json:"events"`
}

type sgEvent struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Desc     string `json:"description"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	Taxonomy []struct {
		Name string `json:"name"`
	} `json:"taxonomy"`
	DatetimeLocal string `json:"datetime_local"`
	Venue         struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Address  string `json:"address"`
		City     string `json:"city"`
		Location *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"location"`
	} `json:"venue"`
	Performers []struct {
		Image string `json:"image"`
	} `json:"performers"`
	Stats *struct {
		LowestPrice  *float64 `json:"lowest_price"`
		HighestPrice *float64 `json:"highest_price"`
	} `json:"stats"`
}

// Fetch queries upcoming events in the city.
func (s *Seatgeek) Fetch(ctx context.Context, city string) ([]model.Event, error) {
	if s.clientID == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("venue.city", city)
	params.Set("venue.country", "DE")
	params.Set("per_page", fmt.Sprintf("%d", s.perPage))
	params.Set("sort", "datetime_local.asc")
	params.Set("datetime_local.gte", s.now().UTC().Format("2006-01-02"))
	params.Set("client_id", s.clientID)

	var resp sgResponse
	if err := getJSON(ctx, s.client, s.baseURL+"?"+params.Encode(), s.userAgent, nil, s.maxBytes, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: seatgeek fetch failed: %v\n", err)
		return nil, nil
	}

	events := make([]model.Event, 0, len(resp.Events))
	for _, sg := range resp.Events {
		if ev, ok := mapSGEvent(sg, city); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func mapSGEvent(sg sgEvent, city string) (model.Event, bool) {
	date, startTime := splitLocalDateTime(sg.DatetimeLocal)
	if sg.Title == "" || date == "" {
		return model.Event{}, false
	}
	if startTime == "00:00" {
		startTime = "20:00"
	}

	venueCity := sg.Venue.City
	if venueCity == "" {
		venueCity = city
	}
	address := venueCity
	if sg.Venue.Address != "" {
		address = sg.Venue.Address + ", " + venueCity
	}
	var lat, lng float64
	if sg.Venue.Location != nil {
		lat, lng = sg.Venue.Location.Lat, sg.Venue.Location.Lon
	}
	venue := &model.Venue{
		ID:      model.DeriveID("sg-venue", fmt.Sprintf("%d", sg.Venue.ID)),
		Name:    sg.Venue.Name,
		Address: address,
		City:    venueCity,
		Lat:     lat,
		Lng:     lng,
	}

	// Performer images are the only imagery this provider exposes.
	imageURL := ""
	for _, p := range sg.Performers {
		if p.Image != "" {
			imageURL = p.Image
			break
		}
	}

	priceInfo := "Siehe SeatGeek"
	if sg.Stats != nil && sg.Stats.LowestPrice != nil {
		high := 0.0
		if sg.Stats.HighestPrice != nil {
			high = *sg.Stats.HighestPrice
		}
		priceInfo = formatPrice(*sg.Stats.LowestPrice, high, "EUR")
	}

	typeName := sg.Type
	if len(sg.Taxonomy) > 0 && sg.Taxonomy[0].Name != "" {
		typeName = sg.Taxonomy[0].Name
	}

	return model.Event{
		ID:          model.DeriveID("sg", fmt.Sprintf("%d", sg.ID)),
		Title:       sg.Title,
		Description: model.Truncate(sg.Desc, model.MaxDescriptionLen),
		Venue:       venue,
		Date:        date,
		TimeStart:   startTime,
		Category:    category.FromSeatgeek(typeName),
		PriceInfo:   priceInfo,
		SourceType:  model.SourceSeatgeek,
		SourceURL:   sg.URL,
		Confidence:  model.StructuredConfidence,
		ImageURL:    imageURL,
		Status:      model.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}, true
}

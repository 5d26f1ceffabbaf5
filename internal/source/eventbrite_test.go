package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lnup/eventscout/internal/model"
)

func TestEventbrite_Fetch_MapsFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer eb-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		resp := map[string]any{
			"events": []map[string]any{
				{
					"id":          "111",
					"name":        map[string]any{"text": "Weinprobe"},
					"description": map[string]any{"text": "Ein Abend mit regionalen Weinen"},
					"url":         "https://eb.example/111",
					"start":       map[string]any{"local": "2026-09-05T19:30:00"},
					"end":         map[string]any{"local": "2026-09-05T22:00:00"},
					"is_free":     false,
					"category_id": "110",
					"venue": map[string]any{
						"id":   "v9",
						"name": "Vinothek am Markt",
						"address": map[string]any{
							"localized_address_display": "Marktplatz 3, Passau",
							"latitude":                  "48.5734",
							"longitude":                 "13.4565",
						},
					},
					"logo": map[string]any{"url": "https://img.example/logo.jpg"},
				},
				{
					"id":      "222",
					"name":    map[string]any{"text": "Gratis Stadtführung"},
					"url":     "https://eb.example/222",
					"start":   map[string]any{"local": "2026-09-06T10:00:00"},
					"is_free": true,
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	eb := NewEventbrite("eb-key", server.Client(), model.HTTPConfig{UserAgent: "test", MaxBodyBytes: 1 << 20})
	eb.SetBaseURL(server.URL)

	events, err := eb.Fetch(context.Background(), "Passau")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	e := events[0]
	if e.ID != "eb-111" {
		t.Errorf("unexpected id %s", e.ID)
	}
	if e.Date != "2026-09-05" || e.TimeStart != "19:30" || e.TimeEnd != "22:00" {
		t.Errorf("unexpected date/time mapping: %s %s %s", e.Date, e.TimeStart, e.TimeEnd)
	}
	if e.Category != model.CategoryFoodDrink {
		t.Errorf("expected food_drink for category 110, got %s", e.Category)
	}
	if e.Venue == nil || e.Venue.Lat != 48.5734 {
		t.Errorf("unexpected venue mapping: %+v", e.Venue)
	}

	free := events[1]
	if free.PriceInfo != "Kostenlos" {
		t.Errorf("expected free sentinel, got %q", free.PriceInfo)
	}
	if free.Venue != nil {
		t.Errorf("event without venue should carry nil venue, got %+v", free.Venue)
	}
}

func TestEventbrite_Fetch_OutageYieldsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	eb := NewEventbrite("k", server.Client(), model.HTTPConfig{MaxBodyBytes: 1 << 20})
	eb.SetBaseURL(server.URL)

	events, err := eb.Fetch(context.Background(), "Passau")
	if err != nil || len(events) != 0 {
		t.Errorf("expected silent empty result, got (%d, %v)", len(events), err)
	}
}

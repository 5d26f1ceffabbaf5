package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/retry"
)

type stubConnector struct {
	name   string
	events []model.Event
	err    error
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) Fetch(ctx context.Context, city string) ([]model.Event, error) {
	return s.events, s.err
}

type stubDiscoverer struct {
	events []model.Event
	err    error
}

func (s *stubDiscoverer) Discover(ctx context.Context, city string) ([]model.Event, error) {
	return s.events, s.err
}

func TestDeduplicate_PriorityWins(t *testing.T) {
	v1 := &model.Venue{Name: "Stadthalle", Lat: 48.8300, Lng: 12.9580}
	v2 := &model.Venue{Name: "Stadthalle Deggendorf", Lat: 48.8302, Lng: 12.9583}

	low := model.Event{
		ID: "sg-1", Title: "Rock Konzert", Date: "2026-09-10", TimeStart: "20:00",
		Venue: v1, SourceType: model.SourceSeatgeek,
	}
	high := model.Event{
		ID: "tm-1", Title: "Rock Konzert 2026", Date: "2026-09-10", TimeStart: "20:30",
		Venue: v2, SourceType: model.SourceTicketmaster,
	}

	got := Deduplicate([]model.Event{low, high})
	if len(got) != 1 {
		t.Fatalf("expected 1 event after dedup, got %d", len(got))
	}
	if got[0].ID != "tm-1" {
		t.Errorf("expected higher-priority ticketmaster record to survive, got %s", got[0].ID)
	}
}

func TestDeduplicate_TieBreakOnImage(t *testing.T) {
	v := &model.Venue{Name: "Club Z"}

	without := model.Event{
		ID: "eb-1", Title: "DJ Nacht", Date: "2026-09-10", TimeStart: "23:00",
		Venue: v, SourceType: model.SourceEventbrite,
	}
	with := model.Event{
		ID: "eb-2", Title: "DJ Nacht", Date: "2026-09-10", TimeStart: "23:00",
		Venue: v, SourceType: model.SourceEventbrite, ImageURL: "https://img.example/1.jpg",
	}

	got := Deduplicate([]model.Event{without, with})
	if len(got) != 1 {
		t.Fatalf("expected 1 event after dedup, got %d", len(got))
	}
	if got[0].ID != "eb-2" {
		t.Errorf("expected record with image to survive tie, got %s", got[0].ID)
	}
}

func TestDeduplicate_DistinctEventsUntouched(t *testing.T) {
	events := []model.Event{
		{ID: "a", Title: "Flohmarkt", Date: "2026-09-12", TimeStart: "08:00", SourceType: model.SourceAIDiscovered},
		{ID: "b", Title: "Jazz Session", Date: "2026-09-10", TimeStart: "20:00", SourceType: model.SourceTicketmaster},
		{ID: "c", Title: "Poetry Slam", Date: "2026-09-11", TimeStart: "19:00", SourceType: model.SourceEventbrite},
	}

	got := Deduplicate(events)
	if len(got) != 3 {
		t.Fatalf("expected all 3 dissimilar events to survive, got %d", len(got))
	}
}

func TestAggregate_SortsAscendingAndSettlesAll(t *testing.T) {
	ok1 := &stubConnector{name: "ticketmaster", events: []model.Event{
		{ID: "tm-1", Title: "Spätes Event", Date: "2026-09-20", SourceType: model.SourceTicketmaster},
	}}
	failing := &stubConnector{name: "eventbrite", err: errors.New("503 from provider")}
	ok2 := &stubConnector{name: "seatgeek", events: []model.Event{
		{ID: "sg-1", Title: "Frühes Event", Date: "2026-09-02", SourceType: model.SourceSeatgeek},
	}}

	agg := New([]Connector{ok1, failing, ok2}, nil, false)
	got, err := agg.Aggregate(context.Background(), "Deggendorf")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events despite one connector failing, got %d", len(got))
	}
	if got[0].ID != "sg-1" || got[1].ID != "tm-1" {
		t.Errorf("expected ascending date order, got %s then %s", got[0].ID, got[1].ID)
	}
}

func TestAggregate_DiscovererFailureIsNotFatal(t *testing.T) {
	c := &stubConnector{name: "ticketmaster", events: []model.Event{
		{ID: "tm-1", Title: "Konzert", Date: "2026-09-10", SourceType: model.SourceTicketmaster},
	}}
	d := &stubDiscoverer{err: errors.New("model unavailable")}

	agg := New([]Connector{c}, d, false)
	got, err := agg.Aggregate(context.Background(), "Passau")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected structured results to survive AI failure, got %d", len(got))
	}
}

func TestAggregate_PropagatesAIRateLimitAndProviderErrors(t *testing.T) {
	c := &stubConnector{name: "ticketmaster", events: []model.Event{
		{ID: "tm-1", Title: "Konzert", Date: "2026-09-10", SourceType: model.SourceTicketmaster},
	}}

	d := &stubDiscoverer{err: fmt.Errorf("gemini: %w", retry.ErrRateLimitExhausted)}
	agg := New([]Connector{c}, d, false)
	if _, err := agg.Aggregate(context.Background(), "Passau"); !errors.Is(err, retry.ErrRateLimitExhausted) {
		t.Errorf("rate-limit exhaustion should propagate, got %v", err)
	}

	d = &stubDiscoverer{err: &retry.ProviderError{Provider: "gemini", Status: 400}}
	agg = New([]Connector{c}, d, false)
	if _, err := agg.Aggregate(context.Background(), "Passau"); err == nil {
		t.Error("provider errors should propagate")
	}
}

func TestAggregate_MergesDiscoveredEvents(t *testing.T) {
	v := &model.Venue{Name: "Brauhaus"}
	c := &stubConnector{name: "ticketmaster", events: []model.Event{
		{ID: "tm-1", Title: "Pub Quiz", Date: "2026-09-10", TimeStart: "19:00", Venue: v, SourceType: model.SourceTicketmaster},
	}}
	d := &stubDiscoverer{events: []model.Event{
		// Duplicate of the ticketmaster event; lower priority, must lose
		{ID: "ai-1", Title: "Pub Quiz im Brauhaus", Date: "2026-09-10", TimeStart: "19:00", Venue: v, SourceType: model.SourceAIDiscovered},
		{ID: "ai-2", Title: "Weinprobe", Date: "2026-09-11", TimeStart: "18:00", SourceType: model.SourceAIDiscovered},
	}}

	agg := New([]Connector{c}, d, false)
	got, err := agg.Aggregate(context.Background(), "Passau")
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events after merge, got %d", len(got))
	}
	if got[0].ID != "tm-1" {
		t.Errorf("expected structured record to win the duplicate, got %s", got[0].ID)
	}
	if got[1].ID != "ai-2" {
		t.Errorf("expected discovered-only event to survive, got %s", got[1].ID)
	}
}

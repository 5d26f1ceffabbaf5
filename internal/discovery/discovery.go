package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/retry"
)

// SourceChecker verifies that a cited source URL is real and reachable.
// It is optional; a nil checker skips verification.
type SourceChecker interface {
	Check(ctx context.Context, rawURL string) error
}

// Discoverer runs the discovery prompt against a generative provider and
// turns the answer into canonical events.
type Discoverer struct {
	provider Provider
	policy   retry.Policy
	config   Config
	checker  SourceChecker
	verbose  bool
	now      func() time.Time
}

// NewDiscoverer wires a provider with the rate-limit retry policy. checker
// may be nil.
func NewDiscoverer(provider Provider, cfg Config, checker SourceChecker, verbose bool) *Discoverer {
	return &Discoverer{
		provider: provider,
		policy:   retry.DefaultPolicy(retry.IsRateLimited),
		config:   cfg,
		checker:  checker,
		verbose:  verbose,
		now:      time.Now,
	}
}

// discoveredEvent is the wire shape the prompt asks the model for.
type discoveredEvent struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Date         string  `json:"date"`
	TimeStart    string  `json:"time_start"`
	TimeEnd      *string `json:"time_end"`
	VenueName    string  `json:"venue_name"`
	VenueAddress string  `json:"venue_address"`
	City         string  `json:"city"`
	Category     string  `json:"category"`
	PriceInfo    string  `json:"price_info"`
	SourceURL    *string `json:"source_url"`
	Confidence   float64 `json:"confidence"`
}

// Discover asks the model for events in the city and returns everything that
// survives parsing and filtering. Rate-limit exhaustion and provider errors
// propagate so interactive callers can present different messages; a
// malformed response is "zero events", never an error.
func (d *Discoverer) Discover(ctx context.Context, city string) ([]model.Event, error) {
	today := d.now().UTC().Format("2006-01-02")
	prompt := BuildPrompt(city, today, d.config.HorizonDays)

	var text string
	err := d.policy.Do(ctx, func() error {
		var genErr error
		text, genErr = d.provider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	result := ParseArray(text)
	switch result.Outcome {
	case OutcomeFailed:
		fmt.Fprintf(os.Stderr, "Warning: no JSON array in %s response: %.120s\n", d.provider.Name(), text)
		return nil, nil
	case OutcomeRepaired:
		fmt.Fprintf(os.Stderr, "Warning: %s response truncated, recovered %d complete events\n",
			d.provider.Name(), len(result.Elements))
	}

	horizon := d.now().UTC().AddDate(0, 0, d.config.HorizonDays).Format("2006-01-02")

	var events []model.Event
	for _, raw := range result.Elements {
		var de discoveredEvent
		if err := json.Unmarshal(raw, &de); err != nil {
			continue
		}
		if !d.accept(ctx, de, today, horizon) {
			continue
		}
		events = append(events, d.toEvent(de, city))
	}

	if d.verbose {
		fmt.Fprintf(os.Stderr, "Discovery: %d raw, %d accepted for %s\n", len(result.Elements), len(events), city)
	}
	return events, nil
}

// accept applies the "don't fabricate events" gate: required fields, the
// confidence threshold, the forward horizon, and in strict mode a cited
// (and optionally verified) source URL.
func (d *Discoverer) accept(ctx context.Context, de discoveredEvent, today, horizon string) bool {
	if de.Title == "" || de.Date == "" || de.TimeStart == "" || de.VenueName == "" {
		return false
	}
	if de.Confidence < d.config.MinConfidence {
		return false
	}
	if de.Date < today || de.Date > horizon {
		return false
	}
	if d.config.Strict {
		if de.SourceURL == nil || *de.SourceURL == "" {
			return false
		}
		if d.checker != nil {
			if err := d.checker.Check(ctx, *de.SourceURL); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: dropping %q, source check failed: %v\n", de.Title, err)
				return false
			}
		}
	}
	return true
}

func (d *Discoverer) toEvent(de discoveredEvent, city string) model.Event {
	eventCity := de.City
	if eventCity == "" {
		eventCity = city
	}
	address := de.VenueAddress
	if address == "" {
		address = eventCity
	}

	venue := &model.Venue{
		ID:      model.DeriveDiscoveredID(eventCity, de.Date, de.VenueName) + "-venue",
		Name:    de.VenueName,
		Address: address,
		City:    eventCity,
		// No coordinates from discovery; (0,0) is the unknown sentinel.
	}

	priceInfo := de.PriceInfo
	if priceInfo == "" {
		priceInfo = "Keine Angabe"
	}
	sourceURL := ""
	if de.SourceURL != nil {
		sourceURL = *de.SourceURL
	}
	timeEnd := ""
	if de.TimeEnd != nil {
		timeEnd = *de.TimeEnd
	}

	return model.Event{
		ID:          model.DeriveDiscoveredID(eventCity, de.Date, de.Title),
		Title:       de.Title,
		Description: model.Truncate(de.Description, model.MaxDescriptionLen),
		Venue:       venue,
		Date:        de.Date,
		TimeStart:   de.TimeStart,
		TimeEnd:     timeEnd,
		Category:    model.ValidCategory(de.Category),
		PriceInfo:   priceInfo,
		SourceType:  model.SourceAIDiscovered,
		SourceURL:   sourceURL,
		Confidence:  de.Confidence,
		Status:      model.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
}

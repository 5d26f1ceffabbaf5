// Package discovery implements the generative-AI web-discovery connector.
// A language model with web-search augmentation is asked for small, local
// events the structured providers don't list; its free-text answer is parsed
// with a repair pass and filtered hard before anything becomes a canonical
// event.
package discovery

import (
	"context"
	"fmt"
	"strings"
)

// Provider is one generative backend able to answer a discovery prompt.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// Generate runs one prompt and returns the raw response text. The
	// text is not guaranteed to be pure JSON.
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds discovery provider configuration.
type Config struct {
	// Provider name: "gemini", "openai", ""
	Provider string

	// Model name (provider-specific)
	Model string

	APIKey string

	// BaseURL for custom endpoints (used by tests)
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MinConfidence is the acceptance threshold for discovered events
	MinConfidence float64

	// HorizonDays bounds the forward date window
	HorizonDays int

	// Strict requires a cited source URL on every event
	Strict bool
}

// NewProvider creates a generative provider based on configuration. An empty
// provider name returns (nil, nil): discovery is disabled, not broken.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return NewGeminiProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown discovery provider: %s (supported: gemini, openai)", cfg.Provider)
	}
}

// BuildPrompt constructs the localized discovery prompt. It instructs the
// model to report only concretely dated small/local events with a cited
// source per event, answered as a bare JSON array.
func BuildPrompt(city, today string, horizonDays int) string {
	return fmt.Sprintf(`Du bist ein Event-Scout für die Stadt %[1]s in Deutschland.
Suche im Internet nach lokalen Events, die in den nächsten %[3]d Tagen stattfinden (ab %[2]s).

Fokussiere dich auf KLEINE, LOKALE Events, die NICHT auf großen Plattformen (Ticketmaster, Eventbrite) zu finden sind:
- Themenabende in Restaurants (z.B. "Mexican Night", "Weinprobe")
- Bar-Events (Pub Quiz, Karaoke, Open Mic, DJ-Abende)
- Lokale Live-Musik in Kneipen/Bars
- Food-Trucks, Street-Food-Märkte
- Flohmärkte, Kunstmärkte, Handwerkermärkte
- Comedy-Abende, Poetry Slams
- Workshops, Kurse, Kreativabende
- Vereinsevents, lokale Feste
- Sport-Events (Laufgruppen, Yoga im Park)

WICHTIG: Nur Events mit konkretem Datum, Uhrzeit und Ort. Keine generischen Angebote.
Erfinde keine Events. Gib zu jedem Event die URL der Quelle an.
Heute ist %[2]s.

Antwort als JSON-Array. Jedes Event:
{
  "title": "Name des Events",
  "description": "Kurze Beschreibung, max 200 Zeichen",
  "date": "YYYY-MM-DD",
  "time_start": "HH:MM",
  "time_end": "HH:MM oder null",
  "venue_name": "Name der Location",
  "venue_address": "Adresse",
  "city": "%[1]s",
  "category": "nightlife|food_drink|concert|festival|sports|art|family|other",
  "price_info": "z.B. 10€, Kostenlos, Ab 5€",
  "source_url": "URL der Quelle wenn verfügbar, sonst null",
  "confidence": 0.0-1.0
}

Nur Events mit confidence >= 0.6 zurückgeben.
Antworte NUR mit dem JSON-Array, kein anderer Text.
Leeres Array [] wenn nichts gefunden.`, city, today, horizonDays)
}

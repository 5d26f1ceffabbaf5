package scan

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/retry"
	"github.com/lnup/eventscout/internal/store"
)

type stubFetcher struct {
	events []model.Event
	err    error
	calls  int
}

func (f *stubFetcher) Name() string { return "ticketmaster" }

func (f *stubFetcher) Fetch(ctx context.Context, city string) ([]model.Event, error) {
	f.calls++
	return f.events, f.err
}

type stubDiscoverer struct {
	byCity map[string][]model.Event
	errs   map[string]error
	calls  []string
}

func (d *stubDiscoverer) Discover(ctx context.Context, city string) ([]model.Event, error) {
	d.calls = append(d.calls, city)
	if err := d.errs[city]; err != nil {
		return nil, err
	}
	return d.byCity[city], nil
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func structuredEvent(id, title, date, city string) model.Event {
	return model.Event{
		ID:         id,
		Title:      title,
		Date:       date,
		TimeStart:  "20:00",
		Category:   model.CategoryConcert,
		SourceType: model.SourceTicketmaster,
		Confidence: model.StructuredConfidence,
		Status:     model.StatusActive,
		Venue:      &model.Venue{Name: "Halle " + city, City: city},
	}
}

func newTestOrchestrator(st *store.Store, f Fetcher, d Discoverer) *Orchestrator {
	o := New(st, f, d, 0, time.Minute, false)
	o.now = func() time.Time {
		return time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	}
	return o
}

func TestRun_PersistsStructuredEvents(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{events: []model.Event{
		structuredEvent("tm-1", "Jazzabend", "2026-09-05", "Berlin"),
		structuredEvent("tm-2", "Flohmarkt", "2026-09-06", "Hamburg"),
	}}

	o := newTestOrchestrator(st, fetcher, nil)
	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.StructuredFound != 2 || sum.StructuredPersisted != 2 {
		t.Errorf("summary = %+v, want 2 found, 2 persisted", sum)
	}
	if len(sum.Errors) != 0 {
		t.Errorf("unexpected errors: %v", sum.Errors)
	}

	got, err := st.GetEvent("tm-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if got.Venue == nil || got.Venue.Name != "Halle Berlin" {
		t.Errorf("venue not resolved: %+v", got.Venue)
	}

	// Venue cities are recorded for later discovery scans.
	cities, err := st.ScanEnabledCities()
	if err != nil {
		t.Fatalf("cities: %v", err)
	}
	if len(cities) != 2 || cities[0] != "Berlin" || cities[1] != "Hamburg" {
		t.Errorf("cities = %v, want [Berlin Hamburg]", cities)
	}
}

func TestRun_SecondRunPersistsNothing(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{events: []model.Event{
		structuredEvent("tm-1", "Jazzabend", "2026-09-05", "Berlin"),
	}}

	o := newTestOrchestrator(st, fetcher, nil)
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.StructuredPersisted != 0 {
		t.Errorf("second run persisted %d events, want 0", sum.StructuredPersisted)
	}
	n, err := st.CountEvents(model.StatusActive)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("store holds %d events, want 1", n)
	}
}

func TestRun_DedupKeyBlocksRediscovery(t *testing.T) {
	st := openStore(t)
	// Same title and date as the stored structured event, new AI identity.
	if err := st.InsertEvent(structuredEvent("tm-1", "Jazzabend", "2026-09-05", "Berlin"), ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.UpsertCity("Berlin"); err != nil {
		t.Fatalf("seed city: %v", err)
	}

	disc := &stubDiscoverer{byCity: map[string][]model.Event{
		"Berlin": {{
			ID: "ai-deadbeef", Title: "Jazzabend", Date: "2026-09-05",
			Category: model.CategoryConcert, SourceType: model.SourceAIDiscovered,
			Confidence: 0.8, Status: model.StatusActive,
		}},
	}}

	o := newTestOrchestrator(st, nil, disc)
	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.AIFound != 1 || sum.AIPersisted != 0 {
		t.Errorf("summary = %+v, want 1 found, 0 persisted", sum)
	}
}

func TestRun_RateLimitExhaustionAbortsRemainingCities(t *testing.T) {
	st := openStore(t)
	for _, c := range []string{"Aachen", "Bonn", "Celle"} {
		if err := st.UpsertCity(c); err != nil {
			t.Fatalf("seed city: %v", err)
		}
	}

	// Cities iterate alphabetically: Aachen, Bonn, Celle.
	disc := &stubDiscoverer{
		byCity: map[string][]model.Event{
			"Aachen": {{
				ID: "ai-1", Title: "Lesung", Date: "2026-09-03",
				Category: model.CategoryArt, SourceType: model.SourceAIDiscovered,
				Confidence: 0.8, Status: model.StatusActive,
			}},
		},
		errs: map[string]error{
			"Bonn": retry.ErrRateLimitExhausted,
		},
	}

	o := newTestOrchestrator(st, nil, disc)
	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !sum.AIAborted {
		t.Error("expected AIAborted after rate limit exhaustion")
	}
	if len(disc.calls) != 2 {
		t.Errorf("discoverer called for %v, want Aachen and Bonn only", disc.calls)
	}
	if sum.AIPersisted != 1 {
		t.Errorf("persisted %d AI events, want the pre-abort one", sum.AIPersisted)
	}
}

func TestRun_PerCityFailureDoesNotStopScan(t *testing.T) {
	st := openStore(t)
	for _, c := range []string{"Aachen", "Bonn"} {
		if err := st.UpsertCity(c); err != nil {
			t.Fatalf("seed city: %v", err)
		}
	}

	disc := &stubDiscoverer{
		byCity: map[string][]model.Event{
			"Bonn": {{
				ID: "ai-2", Title: "Stadtfest", Date: "2026-09-04",
				Category: model.CategoryArt, SourceType: model.SourceAIDiscovered,
				Confidence: 0.7, Status: model.StatusActive,
			}},
		},
		errs: map[string]error{
			"Aachen": &retry.ProviderError{Provider: "gemini", Status: 500},
		},
	}

	o := newTestOrchestrator(st, nil, disc)
	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.AIAborted {
		t.Error("a provider error must not abort the scan")
	}
	if len(disc.calls) != 2 {
		t.Errorf("discoverer called for %v, want both cities", disc.calls)
	}
	if sum.AIPersisted != 1 {
		t.Errorf("persisted %d AI events, want 1", sum.AIPersisted)
	}
	if len(sum.Errors) != 1 || !strings.Contains(sum.Errors[0], "Aachen") {
		t.Errorf("errors = %v, want one mentioning Aachen", sum.Errors)
	}
}

func TestRun_ArchivesOldEvents(t *testing.T) {
	st := openStore(t)
	if err := st.InsertEvent(structuredEvent("tm-old", "Vergangen", "2026-08-20", "Berlin"), ""); err != nil {
		t.Fatalf("seed: %v", err)
	}

	o := newTestOrchestrator(st, &stubFetcher{}, nil)
	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Archived != 1 {
		t.Errorf("archived %d, want 1", sum.Archived)
	}
	got, err := st.GetEvent("tm-old")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusPast {
		t.Errorf("status = %s, want past", got.Status)
	}
}

func TestRun_LeaseHeldFails(t *testing.T) {
	st := openStore(t)
	if err := st.AcquireLease("another-run", time.Minute); err != nil {
		t.Fatalf("seed lease: %v", err)
	}

	o := newTestOrchestrator(st, &stubFetcher{}, nil)
	_, err := o.Run(context.Background())
	if !errors.Is(err, store.ErrLeaseHeld) {
		t.Errorf("err = %v, want ErrLeaseHeld", err)
	}
}

func TestRun_ReleasesLease(t *testing.T) {
	st := openStore(t)

	o := newTestOrchestrator(st, &stubFetcher{}, nil)
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// The lease is free again after the run.
	if err := st.AcquireLease("next-run", time.Minute); err != nil {
		t.Errorf("lease not released: %v", err)
	}
}

func TestRun_FetcherErrorIsContained(t *testing.T) {
	st := openStore(t)
	fetcher := &stubFetcher{err: errors.New("boom")}

	o := newTestOrchestrator(st, fetcher, nil)
	sum, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sum.Errors) != 1 || !strings.Contains(sum.Errors[0], "ticketmaster") {
		t.Errorf("errors = %v, want one ticketmaster refresh error", sum.Errors)
	}
}

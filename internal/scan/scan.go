// Package scan runs the recurring three-step job: refresh the structured
// feed, run AI discovery for every scan-enabled city, archive stale events.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/retry"
)

// Fetcher is the structured connector the refresh step pages through.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, city string) ([]model.Event, error)
}

// Discoverer runs generative discovery for one city.
type Discoverer interface {
	Discover(ctx context.Context, city string) ([]model.Event, error)
}

// Store is the persistence surface the orchestrator needs.
type Store interface {
	ExistingKeys(keys []string) (map[string]bool, error)
	InsertEvent(ev model.Event, venueID string) error
	ResolveVenue(v model.Venue) (string, error)
	UpsertCity(name string) error
	ScanEnabledCities() ([]string, error)
	MarkCityScanned(name string, when time.Time) error
	ArchivePast(today string) (int, error)
	AcquireLease(holder string, ttl time.Duration) error
	ReleaseLease(holder string) error
}

// Summary reports what one run found, persisted and archived.
type Summary struct {
	StructuredFound     int
	StructuredPersisted int
	CitiesScanned       int
	AIFound             int
	AIPersisted         int
	AIAborted           bool
	Archived            int
	Errors              []string
}

// Orchestrator owns one scheduled run end to end.
type Orchestrator struct {
	store      Store
	refresher  Fetcher    // nil skips the structured refresh
	discoverer Discoverer // nil skips AI discovery
	limiter    *rate.Limiter
	leaseTTL   time.Duration
	verbose    bool
	now        func() time.Time
}

// New creates an orchestrator. cityDelay paces discovery calls so one run
// never bursts the provider; zero disables pacing.
func New(st Store, refresher Fetcher, discoverer Discoverer, cityDelay, leaseTTL time.Duration, verbose bool) *Orchestrator {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cityDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(cityDelay), 1)
	}
	return &Orchestrator{
		store:      st,
		refresher:  refresher,
		discoverer: discoverer,
		limiter:    limiter,
		leaseTTL:   leaseTTL,
		verbose:    verbose,
		now:        time.Now,
	}
}

// Run executes the full job under the scan lease. Step failures are
// contained and reported in the summary; Run itself fails only when the
// lease cannot be taken, the context is cancelled, or archiving errors.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	holder := uuid.NewString()
	if err := o.store.AcquireLease(holder, o.leaseTTL); err != nil {
		return sum, fmt.Errorf("acquire scan lease: %w", err)
	}
	defer func() {
		if err := o.store.ReleaseLease(holder); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: release scan lease: %v\n", err)
		}
	}()

	o.refreshStructured(ctx, &sum)
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	o.scanCities(ctx, &sum)
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	today := o.now().UTC().Format("2006-01-02")
	archived, err := o.store.ArchivePast(today)
	if err != nil {
		return sum, fmt.Errorf("archive past events: %w", err)
	}
	sum.Archived = archived

	return sum, nil
}

// refreshStructured pulls the nationwide structured feed and persists what
// is new. A failed fetch is recorded, not fatal.
func (o *Orchestrator) refreshStructured(ctx context.Context, sum *Summary) {
	if o.refresher == nil {
		return
	}

	events, err := o.refresher.Fetch(ctx, "")
	if err != nil {
		sum.Errors = append(sum.Errors,
			fmt.Sprintf("%s refresh: %v", o.refresher.Name(), err))
		return
	}
	sum.StructuredFound = len(events)

	persisted, errs := o.persist(events)
	sum.StructuredPersisted = persisted
	sum.Errors = append(sum.Errors, errs...)
}

// scanCities runs AI discovery per scan-enabled city. A provider whose rate
// limit is exhausted aborts the remaining cities; any other per-city failure
// is recorded and the scan moves on.
func (o *Orchestrator) scanCities(ctx context.Context, sum *Summary) {
	if o.discoverer == nil {
		return
	}

	cities, err := o.store.ScanEnabledCities()
	if err != nil {
		sum.Errors = append(sum.Errors, fmt.Sprintf("list scan cities: %v", err))
		return
	}

	for _, city := range cities {
		if err := o.limiter.Wait(ctx); err != nil {
			return
		}

		events, err := o.discoverer.Discover(ctx, city)
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("discover %s: %v", city, err))
			if errors.Is(err, retry.ErrRateLimitExhausted) {
				// The provider limit is account-wide, more cities
				// would only burn the remaining quota.
				sum.AIAborted = true
				return
			}
			continue
		}

		sum.CitiesScanned++
		sum.AIFound += len(events)

		persisted, errs := o.persist(events)
		sum.AIPersisted += persisted
		sum.Errors = append(sum.Errors, errs...)

		if err := o.store.MarkCityScanned(city, o.now()); err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("mark %s scanned: %v", city, err))
		}
		if o.verbose {
			fmt.Fprintf(os.Stderr, "scan: %s yielded %d events\n", city, len(events))
		}
	}
}

// persist writes events that are not already stored, resolving venues and
// recording cities along the way. Per-record failures skip that record.
func (o *Orchestrator) persist(events []model.Event) (int, []string) {
	if len(events) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(events))
	for _, ev := range events {
		keys = append(keys, ev.DedupKey())
	}
	existing, err := o.store.ExistingKeys(keys)
	if err != nil {
		return 0, []string{fmt.Sprintf("check existing events: %v", err)}
	}

	var (
		persisted int
		errs      []string
		seen      = make(map[string]bool) // duplicates within this batch
	)
	for _, ev := range events {
		key := ev.DedupKey()
		if existing[key] || seen[key] {
			continue
		}
		seen[key] = true

		var venueID string
		if ev.Venue != nil && ev.Venue.Name != "" {
			venueID, err = o.store.ResolveVenue(*ev.Venue)
			if err != nil {
				errs = append(errs, fmt.Sprintf("venue for %s: %v", ev.ID, err))
				continue
			}
			if ev.Venue.City != "" {
				if err := o.store.UpsertCity(ev.Venue.City); err != nil {
					// City bookkeeping is best effort.
					fmt.Fprintf(os.Stderr, "Warning: record city %s: %v\n", ev.Venue.City, err)
				}
			}
		}

		if err := o.store.InsertEvent(ev, venueID); err != nil {
			errs = append(errs, fmt.Sprintf("insert %s: %v", ev.ID, err))
			continue
		}
		persisted++
	}
	return persisted, errs
}

// Package aggregate merges the output of all source connectors into one
// deduplicated, date-sorted event list.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/retry"
)

// Connector fetches canonical events for one city from one provider.
type Connector interface {
	Name() string
	Fetch(ctx context.Context, city string) ([]model.Event, error)
}

// Discoverer is the generative-AI connector. It is optional and sequenced
// after the structured connectors so an unavailable model never delays the
// fast path.
type Discoverer interface {
	Discover(ctx context.Context, city string) ([]model.Event, error)
}

// Aggregator unions connector output and collapses near-duplicates.
type Aggregator struct {
	connectors []Connector
	discoverer Discoverer // nil when no AI credentials are configured
	verbose    bool
}

// New creates an aggregator over the given structured connectors.
// discoverer may be nil.
func New(connectors []Connector, discoverer Discoverer, verbose bool) *Aggregator {
	return &Aggregator{
		connectors: connectors,
		discoverer: discoverer,
		verbose:    verbose,
	}
}

// Aggregate fetches from every structured connector concurrently with
// settle-all semantics, appends AI discoveries when configured, and returns
// the deduplicated result sorted ascending by event date. Individual
// connector failures are logged and yield no events; Aggregate itself only
// fails on context cancellation.
func (a *Aggregator) Aggregate(ctx context.Context, city string) ([]model.Event, error) {
	// Connector order is also merge order, which matters for conflict
	// resolution, so results land in fixed slots.
	perConnector := make([][]model.Event, len(a.connectors))

	var wg sync.WaitGroup
	for i, c := range a.connectors {
		wg.Add(1)
		go func(i int, c Connector) {
			defer wg.Done()
			events, err := c.Fetch(ctx, city)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %s fetch failed: %v\n", c.Name(), err)
				return
			}
			perConnector[i] = events
		}(i, c)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []model.Event
	for _, events := range perConnector {
		all = append(all, events...)
	}

	if a.discoverer != nil {
		discovered, err := a.discoverer.Discover(ctx, city)
		switch {
		case err == nil:
			all = append(all, discovered...)
		case errors.Is(err, retry.ErrRateLimitExhausted), isProviderError(err):
			// Interactive callers present these two kinds distinctly
			// instead of silently degrading to API-only results.
			return nil, fmt.Errorf("ai discovery: %w", err)
		default:
			fmt.Fprintf(os.Stderr, "Warning: AI discovery failed, continuing with API results: %v\n", err)
		}
	}

	deduped := Deduplicate(all)
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Date < deduped[j].Date
	})

	if a.verbose {
		fmt.Fprintf(os.Stderr, "Aggregated %d events (%d before dedup) for %s\n",
			len(deduped), len(all), city)
	}
	return deduped, nil
}

// Deduplicate folds events into an accumulator, collapsing entries that
// describe the same real-world event. When two records collide the one from
// the higher-priority source survives; on a tie the one carrying an image
// does. The fold is deliberately sequential: insertion order decides which
// near-duplicate gets compared against which.
//
// The pairwise scan is O(n^2), fine for per-city volumes. Bucket by date
// before the scan if catalogs ever grow beyond that.
func Deduplicate(events []model.Event) []model.Event {
	result := make([]model.Event, 0, len(events))

	for _, event := range events {
		idx := -1
		for i, existing := range result {
			if AreSimilar(existing, event) {
				idx = i
				break
			}
		}

		if idx == -1 {
			result = append(result, event)
			continue
		}

		existing := result[idx]
		switch {
		case event.SourceType.Priority() > existing.SourceType.Priority():
			result[idx] = event
		case event.SourceType.Priority() == existing.SourceType.Priority():
			if event.ImageURL != "" && existing.ImageURL == "" {
				result[idx] = event
			}
		}
	}

	return result
}

func isProviderError(err error) bool {
	var pe *retry.ProviderError
	return errors.As(err, &pe)
}

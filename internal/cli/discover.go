package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lnup/eventscout/internal/aggregate"
	"github.com/lnup/eventscout/internal/cache"
	"github.com/lnup/eventscout/internal/model"
	"github.com/lnup/eventscout/internal/retry"
)

var (
	discoverJSON    string
	discoverNoCache bool
	discoverTimeout time.Duration
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover <city>",
	Short: "Aggregate upcoming events for one city",
	Long: `Discover fetches events for a city from all configured providers in
parallel, adds AI web discovery when an AI provider is set, and prints the
merged, deduplicated list sorted by date.

Example:
  eventscout discover Berlin
  eventscout discover München --json events.json
  eventscout discover Köln --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&discoverJSON, "json", "", "write events as JSON to this path")
	discoverCmd.Flags().BoolVar(&discoverNoCache, "no-cache", false, "bypass the result cache")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 2*time.Minute, "overall discovery timeout")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	city := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()

	cfg := loadConfig()
	today := time.Now().UTC().Format("2006-01-02")

	var results *cache.Results
	if cfg.Cache.Enabled && !discoverNoCache {
		if home, err := os.UserHomeDir(); err == nil {
			layered := cache.NewLayeredCache(cfg.Cache.TTL,
				filepath.Join(home, ".eventscout", "cache"), cfg.Cache.TTL)
			results = cache.NewResults(layered, cfg.Cache.TTL)
		}
	}

	if results != nil {
		if events, found := results.Get(city, today); found {
			if verbose {
				fmt.Fprintf(os.Stderr, "Using cached results for %s\n", city)
			}
			return outputEvents(city, events)
		}
	}

	discoverer, err := buildDiscoverer(cfg)
	if err != nil {
		return fmt.Errorf("configure AI discovery: %w", err)
	}

	// A nil *Discoverer must stay a nil interface inside the aggregator.
	var disc aggregate.Discoverer
	if discoverer != nil {
		disc = discoverer
	}
	agg := aggregate.New(buildConnectors(cfg), disc, cfg.Output.Verbose)
	events, err := agg.Aggregate(ctx, city)
	if err != nil {
		if errors.Is(err, retry.ErrRateLimitExhausted) {
			return fmt.Errorf("the AI provider is rate limited, try again in a few minutes")
		}
		return fmt.Errorf("discover %s: %w", city, err)
	}

	if results != nil {
		if err := results.Put(city, today, events); err != nil && verbose {
			fmt.Fprintf(os.Stderr, "Warning: cache results: %v\n", err)
		}
	}
	return outputEvents(city, events)
}

func outputEvents(city string, events []model.Event) error {
	if discoverJSON != "" {
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return fmt.Errorf("encode events: %w", err)
		}
		if err := os.WriteFile(discoverJSON, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", discoverJSON, err)
		}
	}

	if len(events) == 0 {
		fmt.Printf("No upcoming events found for %s\n", city)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tTITLE\tVENUE\tCATEGORY\tPRICE\tSOURCE")
	for _, ev := range events {
		venue := ""
		if ev.Venue != nil {
			venue = ev.Venue.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.Date, ev.TimeStart, ev.Title, venue,
			ev.Category, ev.PriceInfo, ev.SourceType)
	}
	w.Flush()
	fmt.Printf("\n%d events for %s\n", len(events), city)
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lnup/eventscout/internal/scan"
	"github.com/lnup/eventscout/internal/source"
	"github.com/lnup/eventscout/internal/store"
)

var (
	scanStorePath string
	scanTimeout   time.Duration
	scanNoAI      bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the recurring aggregation job against the local store",
	Long: `Scan runs the full batch job once:
- Refresh the nationwide structured event feed
- Run AI discovery for every scan-enabled city
- Archive events whose date has passed

The job takes a lease in the store, so overlapping runs (for example from
cron and a manual invocation) never interleave.

Example:
  eventscout scan
  eventscout scan --store /var/lib/eventscout/events.db
  eventscout scan --no-ai`,
	Args: cobra.NoArgs,
	RunE: runScanJob,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanStorePath, "store", "", "store path (default from config: eventscout.db)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Minute, "overall job timeout")
	scanCmd.Flags().BoolVar(&scanNoAI, "no-ai", false, "skip the AI discovery step")
}

func runScanJob(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	cfg := loadConfig()
	if scanStorePath != "" {
		cfg.Scan.StorePath = scanStorePath
	}

	st, err := store.Open(cfg.Scan.StorePath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.Scan.StorePath, err)
	}
	defer st.Close()

	client := source.NewHTTPClient(cfg.HTTP)
	refresher := source.NewTicketmaster(cfg.Providers.TicketmasterAPIKey, client, cfg.HTTP,
		source.WithTicketmasterPaging(cfg.Scan.PageSize, cfg.Scan.MaxPages))

	var discoverer scan.Discoverer
	if !scanNoAI {
		d, err := buildDiscoverer(cfg)
		if err != nil {
			return fmt.Errorf("configure AI discovery: %w", err)
		}
		if d != nil {
			discoverer = d
		}
	}

	o := scan.New(st, refresher, discoverer,
		cfg.Scan.CityDelay, leaseTTLOrDefault(cfg.Scan.LeaseTTL), cfg.Output.Verbose)

	sum, err := o.Run(ctx)
	if err != nil {
		if errors.Is(err, store.ErrLeaseHeld) {
			return fmt.Errorf("another scan is already running")
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Printf("Structured: %d found, %d new\n", sum.StructuredFound, sum.StructuredPersisted)
	fmt.Printf("AI: %d cities scanned, %d found, %d new\n", sum.CitiesScanned, sum.AIFound, sum.AIPersisted)
	if sum.AIAborted {
		fmt.Println("AI discovery aborted early: provider rate limit exhausted")
	}
	fmt.Printf("Archived: %d past events\n", sum.Archived)

	if len(sum.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d errors:\n", len(sum.Errors))
		for _, e := range sum.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		return fmt.Errorf("scan completed with %d errors", len(sum.Errors))
	}
	return nil
}

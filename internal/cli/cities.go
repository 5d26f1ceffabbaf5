package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lnup/eventscout/internal/store"
)

// citiesCmd manages which cities the scan job covers.
var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Manage the cities covered by scan",
	Long: `List and edit the set of cities the recurring scan runs AI discovery
for. Cities are also recorded automatically from the venues of ingested
events.

Example:
  eventscout cities list
  eventscout cities add Leipzig
  eventscout cities disable Leipzig`,
}

var citiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scan-enabled cities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			cities, err := st.ScanEnabledCities()
			if err != nil {
				return err
			}
			if len(cities) == 0 {
				fmt.Println("No scan-enabled cities. Add one with: eventscout cities add <name>")
				return nil
			}
			for _, c := range cities {
				fmt.Println(c)
			}
			return nil
		})
	},
}

var citiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a city to the scan set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.SetCityScanEnabled(args[0], true); err != nil {
				return err
			}
			fmt.Printf("Added %s\n", args[0])
			return nil
		})
	},
}

var citiesDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Exclude a city from future scans",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			if err := st.SetCityScanEnabled(args[0], false); err != nil {
				return err
			}
			fmt.Printf("Disabled %s\n", args[0])
			return nil
		})
	},
}

// withStore opens the configured store for one command.
func withStore(fn func(*store.Store) error) error {
	cfg := loadConfig()
	st, err := store.Open(cfg.Scan.StorePath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.Scan.StorePath, err)
	}
	defer st.Close()
	return fn(st)
}

func init() {
	rootCmd.AddCommand(citiesCmd)
	citiesCmd.AddCommand(citiesListCmd)
	citiesCmd.AddCommand(citiesAddCmd)
	citiesCmd.AddCommand(citiesDisableCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Wyko/TMBRefugeChecker/internal/config"
	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
	"github.com/Wyko/TMBRefugeChecker/internal/resolve"
)

var flagRegion string

var refugesCmd = &cobra.Command{
	Use:   "refuges",
	Short: "List the refuges known to the booking system",
	Long: `Fetch the current refuge directory and print every bookable refuge
with its booking id. Use --region to narrow the list to one stretch of
the trail, or "--region all" to print everything grouped by region.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		src := refuge.NewSource(cfg)
		dir, err := src.Directory(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching refuge directory: %w", err)
		}

		if flagRegion == "" {
			for _, r := range dir.All() {
				fmt.Printf("%7d  %s\n", r.ID, r.Name)
			}
			return nil
		}

		regions, err := src.Regions(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching regions: %w", err)
		}

		matched := false
		for _, region := range regions {
			if flagRegion != "all" && !regionMatches(region.Name, flagRegion) {
				continue
			}
			matched = true
			fmt.Printf("%s\n", region.Name)
			for _, id := range region.IDs {
				r, ok := dir.ByID(id)
				if !ok {
					// Region lists sometimes carry ids the directory no
					// longer offers for booking.
					continue
				}
				fmt.Printf("  %7d  %s\n", r.ID, r.Name)
			}
		}
		if !matched {
			return fmt.Errorf("no region matches %q", flagRegion)
		}
		return nil
	},
}

func regionMatches(name, fragment string) bool {
	return strings.Contains(resolve.Normalize(name), resolve.Normalize(fragment))
}

func init() {
	refugesCmd.Flags().StringVar(&flagRegion, "region", "", `narrow to one region, or "all" to group by region`)
}

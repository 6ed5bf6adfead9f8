package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/config"
	"github.com/Wyko/TMBRefugeChecker/internal/poll"
	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
	"github.com/Wyko/TMBRefugeChecker/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the whole plan in a live dashboard",
	Long: `Open a full-screen view that polls every night in the plan and shows
a countdown to the next check. The terminal bell rings when every refuge
has places.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store, err := openPlan()
		if err != nil {
			return err
		}
		defer store.Close()

		queries, err := store.Queries()
		if err != nil {
			return fmt.Errorf("reading plan: %w", err)
		}

		src := refuge.NewSource(cfg)
		dir, err := src.Directory(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching refuge directory: %w", err)
		}

		fetcher, client := newFetcher(cfg)
		checker := availability.NewChecker(dir, fetcher)
		loop := poll.New(checker, cfg.PollIntervalDuration(), cfg.PollJitterDuration(), cfg.GetMinPlaces())

		return tui.Run(loop, queries, client.Cache().Len)
	},
}

func init() {
	monitorCmd.Flags().StringVar(&flagPlanPath, "plan", "", "path to plan database")
}

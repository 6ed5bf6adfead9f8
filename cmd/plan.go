package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/config"
	"github.com/Wyko/TMBRefugeChecker/internal/plan"
	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
)

var flagPlanPath string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage the trip plan",
	Long: `A plan maps each night of the trip to the refuges worth checking.
Once built, "tmb plan check" or "tmb monitor" polls the whole trip at once.`,
}

var planDayCmd = &cobra.Command{
	Use:   "day DATE [REFUGE...]",
	Short: "Set the refuges to check for one night",
	Long: `Replace the refuges checked for DATE. With no refuges the night is
removed from the plan.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := availability.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[0], err)
		}

		var refuges []refuge.Refuge
		if len(args) > 1 {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			src := refuge.NewSource(cfg)
			dir, err := src.Directory(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching refuge directory: %w", err)
			}
			refuges, err = resolveFragments(dir, args[1:])
			if err != nil {
				return err
			}
		}

		store, err := openPlan()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SetDay(date, refuges); err != nil {
			return fmt.Errorf("saving plan: %w", err)
		}
		if len(refuges) == 0 {
			fmt.Printf("Cleared %s.\n", date.Display())
			return nil
		}
		fmt.Printf("%s:\n", date.Display())
		for _, r := range refuges {
			fmt.Printf("  %s\n", r.Name)
		}
		return nil
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openPlan()
		if err != nil {
			return err
		}
		defer store.Close()

		days, err := store.Days()
		if err != nil {
			return fmt.Errorf("reading plan: %w", err)
		}
		if len(days) == 0 {
			fmt.Println("Plan is empty. Add a night with `tmb plan day DATE REFUGE...`.")
			return nil
		}
		for _, d := range days {
			fmt.Printf("%s:\n", d.Date.Display())
			for _, r := range d.Refuges {
				fmt.Printf("  %s\n", r.Name)
			}
		}
		return nil
	},
}

var planCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll availability for every night in the plan",
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

		return runLoop(cmd.Context(), cfg, dir, queries, flagOnce)
	},
}

var planClearCmd = &cobra.Command{
	Use:   "clear [DATE]",
	Short: "Remove one night, or the whole plan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openPlan()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			date, err := availability.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", args[0], err)
			}
			if err := store.ClearDay(date); err != nil {
				return fmt.Errorf("clearing day: %w", err)
			}
			fmt.Printf("Cleared %s.\n", date.Display())
			return nil
		}

		days, err := store.Days()
		if err != nil {
			return fmt.Errorf("reading plan: %w", err)
		}
		for _, d := range days {
			if err := store.ClearDay(d.Date); err != nil {
				return fmt.Errorf("clearing day %s: %w", d.Date, err)
			}
		}
		fmt.Println("Plan cleared.")
		return nil
	},
}

func init() {
	planCmd.PersistentFlags().StringVar(&flagPlanPath, "plan", "", "path to plan database")
	planCheckCmd.Flags().BoolVar(&flagOnce, "once", false, "check once and exit instead of polling")
	planCheckCmd.Flags().IntVar(&flagMinPlaces, "min-places", 0, "places required per refuge (default from config)")
	planCheckCmd.Flags().BoolVar(&flagSilent, "silent", false, "do not ring the terminal bell")
	planCheckCmd.Flags().BoolVar(&flagPlain, "plain", false, "plain output without colors")
	planCheckCmd.Flags().BoolVar(&flagOpen, "open", false, "open the booking site when places appear")

	planCmd.AddCommand(planDayCmd)
	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planCheckCmd)
	planCmd.AddCommand(planClearCmd)
}

func openPlan() (*plan.Store, error) {
	path := flagPlanPath
	if path == "" {
		path = config.DefaultPlanPath()
	}
	store, err := plan.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan: %w", err)
	}
	return store, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Wyko/TMBRefugeChecker/internal/alert"
	"github.com/Wyko/TMBRefugeChecker/internal/availability"
	"github.com/Wyko/TMBRefugeChecker/internal/browser"
	"github.com/Wyko/TMBRefugeChecker/internal/config"
	"github.com/Wyko/TMBRefugeChecker/internal/poll"
	"github.com/Wyko/TMBRefugeChecker/internal/refuge"
	"github.com/Wyko/TMBRefugeChecker/internal/resolve"
)

var (
	flagOnce        bool
	flagMinPlaces   int
	flagSilent      bool
	flagPlain       bool
	flagOpen        bool
	flagCheckRegion string
)

var checkCmd = &cobra.Command{
	Use:   "check DATE [REFUGE...]",
	Short: "Poll refuge availability for one night",
	Long: `Check whether the given refuges have places for DATE and keep polling
until they all do. Refuge names are matched loosely: a fragment like
"boerne" or an id like 32378 both work. With --region every refuge in
the matching region is polled.

Examples:
  tmb check 2026-07-10 boerne
  tmb check 10/07/2026 "la nova" glaciers --min-places 2
  tmb check 2026-07-10 32378 --once
  tmb check 2026-07-10 --region chamonix`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 && flagCheckRegion == "" {
			return errors.New("name at least one refuge, or use --region")
		}

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		date, err := availability.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", args[0], err)
		}

		src := refuge.NewSource(cfg)
		dir, err := src.Directory(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching refuge directory: %w", err)
		}

		refuges, err := resolveFragments(dir, args[1:])
		if err != nil {
			return err
		}

		if flagCheckRegion != "" {
			regions, err := src.Regions(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetching regions: %w", err)
			}
			regional, err := regionRefuges(regions, dir, flagCheckRegion)
			if err != nil {
				return err
			}
			refuges = append(refuges, regional...)
		}

		queries := make([]availability.Query, 0, len(refuges))
		seen := make(map[int]bool, len(refuges))
		for _, r := range refuges {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			queries = append(queries, availability.Query{RefugeID: r.ID, Date: date})
		}

		return runLoop(cmd.Context(), cfg, dir, queries, flagOnce)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&flagOnce, "once", false, "check once and exit instead of polling")
	checkCmd.Flags().IntVar(&flagMinPlaces, "min-places", 0, "places required per refuge (default from config)")
	checkCmd.Flags().BoolVar(&flagSilent, "silent", false, "do not ring the terminal bell")
	checkCmd.Flags().BoolVar(&flagPlain, "plain", false, "plain output without colors")
	checkCmd.Flags().BoolVar(&flagOpen, "open", false, "open the booking site when places appear")
	checkCmd.Flags().StringVar(&flagCheckRegion, "region", "", "poll every refuge in the matching region")
}

// regionRefuges expands a region name fragment to that region's refuges,
// in listing order. Ids the directory does not know still poll, under a
// placeholder name, since region lists can outlive a catalog snapshot.
func regionRefuges(regions []refuge.Region, dir *refuge.Directory, fragment string) ([]refuge.Refuge, error) {
	var out []refuge.Refuge
	matched := false
	for _, region := range regions {
		if !regionMatches(region.Name, fragment) {
			continue
		}
		matched = true
		for _, id := range region.IDs {
			r, ok := dir.ByID(id)
			if !ok {
				r = refuge.Unknown(id)
			}
			out = append(out, r)
		}
	}
	if !matched {
		return nil, fmt.Errorf("no region matches %q", fragment)
	}
	return out, nil
}

// resolveFragments maps each fragment to its best directory match. All
// fragments are attempted before reporting failures so the user sees every
// typo at once.
func resolveFragments(dir *refuge.Directory, fragments []string) ([]refuge.Refuge, error) {
	outcomes := resolve.ResolveAll(fragments, dir)

	var failed []string
	refuges := make([]refuge.Refuge, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Resolved() {
			failed = append(failed, o.Fragment)
			continue
		}
		if len(o.Matches) > 1 {
			names := make([]string, 0, len(o.Matches))
			for _, m := range o.Matches {
				names = append(names, m.Name)
			}
			fmt.Fprintf(os.Stderr, "%q matches %s; using %s\n",
				o.Fragment, strings.Join(names, ", "), o.Best().Name)
		}
		refuges = append(refuges, o.Best())
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("no refuge matches %q (try `tmb refuges` for the full list)",
			strings.Join(failed, `", "`))
	}
	return refuges, nil
}

// newFetcher builds the planning client plus per-refuge overrides for
// huts whose availability lives outside the central booking system.
func newFetcher(cfg *config.Config) (availability.Fetcher, *availability.Client) {
	client := availability.NewClient(cfg)
	if len(cfg.SpecialRefuges) == 0 {
		return client, client
	}
	router := availability.NewRouter(client)
	for _, s := range cfg.SpecialRefuges {
		router.Override(s.ID, availability.NewProbeFetcher(s.ProbeURL, s.UnavailableMarker, cfg))
	}
	return router, client
}

// runLoop wires the availability fetcher into a poll loop and streams each
// cycle through the alert printer.
func runLoop(ctx context.Context, cfg *config.Config, dir *refuge.Directory, queries []availability.Query, once bool) error {
	fetcher, _ := newFetcher(cfg)
	checker := availability.NewChecker(dir, fetcher)

	minPlaces := cfg.GetMinPlaces()
	if flagMinPlaces > 0 {
		minPlaces = flagMinPlaces
	}

	loop := poll.New(checker, cfg.PollIntervalDuration(), cfg.PollJitterDuration(), minPlaces)
	loop.SingleShot = once

	printer := alert.NewPrinter(os.Stdout, flagPlain, flagSilent)
	err := loop.Run(ctx, queries, printer.PrintCycle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	if flagOpen && !once {
		target := browser.BookingURL(cfg.DirectoryURL, 0)
		if len(queries) == 1 {
			target = browser.BookingURL(cfg.DirectoryURL, queries[0].RefugeID)
		}
		if err := browser.Open(target); err != nil {
			log.Warn().Err(err).Msg("could not open browser")
		}
	}
	return nil
}

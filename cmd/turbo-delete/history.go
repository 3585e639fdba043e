package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"turbo-delete/internal/cli"
	"turbo-delete/internal/database"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		recent      int
		outcome     string
		pathPattern string
		since       time.Duration
		stats       bool
		dbInfo      bool
		days        int
		skipped     string
		purge       int
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the history of past deletions",
		Example: `  turbo-delete history --recent 10           # 10 most recent runs
  turbo-delete history --stats --days 30      # statistics for the last 30 days
  turbo-delete history --outcome partial      # runs that skipped entries
  turbo-delete history --path '/data/build/%' # runs under /data/build
  turbo-delete history --since 24h            # runs started in the last day
  turbo-delete history --skipped <run-id>     # entries a run could not remove
  turbo-delete history --purge 90             # forget runs older than 90 days
  turbo-delete history --db                   # database size and record range`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openHistory()
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			show := func(v interface{}, text func()) error {
				if jsonOut {
					return cli.WriteJSON(out, v)
				}
				text()
				return nil
			}

			switch {
			case purge > 0:
				n, err := db.DeleteOldRecords(purge)
				if err != nil {
					return fmt.Errorf("purge history: %w", err)
				}
				if err := db.Vacuum(); err != nil {
					a.logger.Warn().Err(err).Msg("vacuum after purge")
				}
				return show(map[string]int64{"removed": n}, func() {
					fmt.Fprintf(out, "Removed %d runs older than %d days\n", n, purge)
				})

			case skipped != "":
				run, err := db.GetRun(skipped)
				if errors.Is(err, database.ErrRunNotFound) {
					return fmt.Errorf("run %s: %w", skipped, err)
				}
				if err != nil {
					return err
				}
				items, err := db.GetSkippedItems(skipped)
				if err != nil {
					return err
				}
				return show(items, func() {
					fmt.Fprintf(out, "Run %s on %s (%s)\n", run.ID, run.Target, run.Outcome)
					cli.FormatSkipped(out, items)
				})

			case dbInfo:
				info, err := db.GetDatabaseStats()
				if err != nil {
					return err
				}
				return show(info, func() { cli.FormatDatabaseStats(out, a.cfg.DatabasePath, info) })

			case stats:
				s, err := db.GetRunStats(days)
				if err != nil {
					return err
				}
				return show(s, func() { cli.FormatStats(out, days, s) })
			}

			var runs []database.RunRecord
			switch {
			case outcome != "":
				runs, err = db.GetRunsByOutcome(outcome, recent)
			case pathPattern != "":
				runs, err = db.GetRunsByPath(pathPattern, recent)
			case since > 0:
				now := time.Now()
				runs, err = db.GetRunsByDateRange(now.Add(-since), now)
			default:
				runs, err = db.GetRecentRuns(recent)
			}
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []database.RunRecord{}
			}
			if jsonOut {
				return cli.WriteJSON(out, runs)
			}
			return cli.FormatRuns(out, runs)
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 20, "number of runs to show")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (done, partial, rejected, not_found, failed)")
	cmd.Flags().StringVar(&pathPattern, "path", "", "filter by target (SQL LIKE syntax)")
	cmd.Flags().DurationVar(&since, "since", 0, "show runs started within this duration")
	cmd.Flags().BoolVar(&stats, "stats", false, "show aggregated statistics")
	cmd.Flags().BoolVar(&dbInfo, "db", false, "show database size and record range")
	cmd.Flags().IntVar(&days, "days", 30, "days covered by --stats")
	cmd.Flags().StringVar(&skipped, "skipped", "", "show the entries a run could not remove")
	cmd.Flags().IntVar(&purge, "purge", 0, "delete runs older than this many days")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	cmd.MarkFlagsMutuallyExclusive("stats", "db", "skipped", "purge", "outcome", "path", "since")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"turbo-delete/internal/cli"
	"turbo-delete/internal/logging"
	"turbo-delete/internal/report"
	"turbo-delete/internal/runner"
)

func newDeleteCmd(a *app) *cobra.Command {
	var (
		yes         bool
		workers     int
		noOwnership bool
		jsonOut     bool
	)

	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a file or directory tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			out := cmd.OutOrStdout()

			// Rejected and missing targets go straight to the runner, which
			// records them without asking first.
			if !yes && a.deletable(target) {
				ok, err := cli.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Permanently delete %s?", target))
				if err != nil {
					return err
				}
				if !ok {
					return errCancelled
				}
			}

			logger := a.quietLogger()
			opts := runner.Options{Logger: logging.Component(logger, "runner")}
			db, err := a.openHistory()
			if err != nil {
				logger.Warn().Err(err).Msg("run will not be recorded")
			} else {
				defer db.Close()
				opts.Store = db
			}
			r := runner.New(a.newEngine(logger, workers, noOwnership || a.cfg.Engine.SkipOwnership), opts)

			var sink report.Sink
			if !jsonOut {
				console := cli.NewConsoleSink(out, cli.IsTerminal(out))
				defer console.Close()
				sink = console
			}
			id, summary, err := r.Run(target, sink)
			if err != nil {
				return err
			}

			if jsonOut {
				if err := cli.WriteJSON(out, map[string]interface{}{"run_id": id, "summary": summary}); err != nil {
					return err
				}
			} else {
				cli.FormatSummary(out, summary)
			}
			if summary.Skipped > 0 {
				return fmt.Errorf("%w: %d skipped (run %s)", errPartial, summary.Skipped, id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel file removers (default: engine.workers)")
	cmd.Flags().BoolVar(&noOwnership, "no-ownership", false, "skip taking ownership before deleting")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the summary as JSON instead of progress")
	return cmd
}

// deletable reports whether target passes the safety checks and exists
func (a *app) deletable(target string) bool {
	if err := a.guard().ValidateDeleteTarget(target); err != nil {
		return false
	}
	_, err := os.Lstat(target)
	return err == nil
}

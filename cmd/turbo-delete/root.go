package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "turbo-delete",
		Short: "Delete large directory trees fast",
		Long: `turbo-delete removes a file or directory tree using parallel workers.
It refuses drive roots, the OS installation directory and protected system
folders, reports progress while it works, and keeps a history of every run.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: $TURBO_DELETE_CONFIG or the user config dir)")
	root.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored log output")

	root.AddCommand(
		newDeleteCmd(a),
		newDrivesCmd(a),
		newLsCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
	)
	return root
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.Execute()
	if err != nil {
		a.close()
		fmt.Fprintf(errOut, "Error: %v\n", err)
	}
	return exitCode(err)
}

package main

import (
	"github.com/spf13/cobra"

	"turbo-delete/internal/cli"
	"turbo-delete/internal/listing"
)

func newLsCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ls <path>",
		Short: "List the immediate children of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := listing.ListDir(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []listing.Entry{}
				}
				return cli.WriteJSON(cmd.OutOrStdout(), entries)
			}
			return cli.FormatEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

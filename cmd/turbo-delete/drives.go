package main

import (
	"github.com/spf13/cobra"

	"turbo-delete/internal/cli"
	"turbo-delete/internal/disk"
)

func newDrivesCmd(a *app) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "drives",
		Short: "List mounted drives with their capacity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drives, err := disk.GetDrives()
			if err != nil {
				return err
			}
			if jsonOut {
				return cli.WriteJSON(cmd.OutOrStdout(), drives)
			}
			return cli.FormatDrives(cmd.OutOrStdout(), drives)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	return cmd
}

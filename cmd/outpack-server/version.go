package main

import (
	"github.com/spf13/cobra"

	"github.com/mrc-ide/outpack-server/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the outpack-server version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version.FprintVersion(cmd.OutOrStdout(), "outpack-server")
		return nil
	},
}

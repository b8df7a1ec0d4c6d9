package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/sci/internal/meta"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of sci",
	Args:  cobra.NoArgs,

	// No config or logger is needed to print the version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), meta.GetInfo())
	},
}

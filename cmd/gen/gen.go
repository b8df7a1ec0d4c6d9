package gen

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generators for sci documentation",
	Long:  `Generators for sci documentation, such as man pages`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
}

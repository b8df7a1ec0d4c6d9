package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/sci/protocol"
)

var GetCmd = &cobra.Command{
	Use:   "get <number> <type>",
	Short: "Read a device variable",
	Long: `Read a device variable

Usage
	sci get 0x1A u16

`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parseNumber(args[0])
		if err != nil {
			return err
		}

		d, err := protocol.ParseDatatype(args[1])
		if err != nil {
			return err
		}

		return withDevice(func(dev *device) error {
			v, err := dev.GetValue(cmd.Context(), protocol.Parameter{Number: number, Type: d})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	},
}

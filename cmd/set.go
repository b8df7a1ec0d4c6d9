package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luma/sci/protocol"
)

var SetCmd = &cobra.Command{
	Use:   "set <number> <type> <value>",
	Short: "Write a device variable",
	Long: `Write a device variable

Usage
	sci set 0x1A u16 1000

`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parseNumber(args[0])
		if err != nil {
			return err
		}

		d, err := protocol.ParseDatatype(args[1])
		if err != nil {
			return err
		}

		v, err := protocol.ParseValue(args[2])
		if err != nil {
			return err
		}

		return withDevice(func(dev *device) error {
			return dev.SetValue(cmd.Context(), protocol.Parameter{Number: number, Type: d}, v)
		})
	},
}

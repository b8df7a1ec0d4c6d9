package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luma/sci/protocol"
)

var returns string

var CallCmd = &cobra.Command{
	Use:   "call <number> [type:value...]",
	Short: "Invoke a device function",
	Long: `Invoke a device function and print each returned value on its own line

Usage
	sci call 3 u8:1 --returns i8,i16,u16

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, params, err := parseFunction(args)
		if err != nil {
			return err
		}

		if fn.ReturnTypes, err = protocol.ParseDatatypes(returns); err != nil {
			return err
		}

		return withDevice(func(dev *device) error {
			values, err := dev.Invoke(cmd.Context(), fn, params...)
			if err != nil {
				return err
			}

			for _, v := range values {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}

			return nil
		})
	},
}

var UpstreamCmd = &cobra.Command{
	Use:   "upstream <number> [type:value...]",
	Short: "Invoke a device function and read its upstream transfer",
	Long: `Invoke a device function that announces an upstream transfer, read
the announced bytes and print them as hex

Usage
	sci upstream 4

`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, params, err := parseFunction(args)
		if err != nil {
			return err
		}

		return withDevice(func(dev *device) error {
			data, err := dev.RequestUpstream(cmd.Context(), fn, params...)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
			return nil
		})
	},
}

func init() {
	CallCmd.Flags().StringVarP(&returns, "returns", "r", "", "The return types of the function, e.g. i8,i16")
}

func parseFunction(args []string) (protocol.Function, []protocol.Value, error) {
	number, err := parseNumber(args[0])
	if err != nil {
		return protocol.Function{}, nil, err
	}

	types, params, err := parseTypedArgs(args[1:])
	if err != nil {
		return protocol.Function{}, nil, err
	}

	return protocol.Function{Number: number, ArgTypes: types}, params, nil
}

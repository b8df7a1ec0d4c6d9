package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/sci/client"
	"github.com/luma/sci/cmd/gen"
	"github.com/luma/sci/internal/env"
	"github.com/luma/sci/protocol"
	"github.com/luma/sci/transport"
)

var (
	conf *env.Config
	log  *zap.Logger

	// Serial device flags, these override the SCI_ environment
	port         string
	baud         int
	timeout      time.Duration
	format       string
	maxFrameSize int
	trace        bool
)

var RootCmd = &cobra.Command{
	Use:   "sci",
	Short: "Talk to SCI devices over a serial line",
	Long: `Talk to SCI devices over a serial line

Reads and writes device variables, invokes device functions and serves
them over HTTP. Settings are read from SCI_ environment variables and an
optional .env.local file, flags take precedence.`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		if conf, err = env.LoadConfig(cmd.Context()); err != nil {
			return err
		}

		applyFlags(cmd.Flags(), conf)

		log, err = env.MakeLogger(conf.LogLevel)
		return err
	},
}

func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := RootCmd.PersistentFlags()

	flags.StringVarP(&port, "port", "p", "", "The serial device the SCI device is attached to")
	flags.IntVarP(&baud, "baud", "b", transport.DefaultBaudRate, "The baud rate of the serial line")
	flags.DurationVarP(&timeout, "timeout", "t", transport.DefaultReadTimeout, "How long to wait for each response frame")
	flags.StringVarP(&format, "format", "f", protocol.FormatHex.String(), "The number format of the device, hex or decimal")
	flags.IntVar(&maxFrameSize, "max-frame-size", protocol.DefaultMaxFrameSize, "The largest frame in bytes, 0 for no limit")
	flags.BoolVar(&trace, "trace", false, "Log every frame written and read")

	RootCmd.AddCommand(GetCmd, SetCmd, CallCmd, UpstreamCmd, ServeCmd, VersionCmd, gen.RootCmd)
}

// applyFlags copies the flags that were set on the command line over conf.
func applyFlags(flags *pflag.FlagSet, conf *env.Config) {
	if flags.Changed("port") {
		conf.Port = port
	}

	if flags.Changed("baud") {
		conf.Baud = baud
	}

	if flags.Changed("timeout") {
		conf.Timeout = timeout
	}

	if flags.Changed("format") {
		conf.NumberFormat = format
	}

	if flags.Changed("max-frame-size") {
		conf.MaxFrameSize = maxFrameSize
	}
}

// device is a connection to the SCI device along with its serial line.
type device struct {
	*client.Conn
	serial *transport.Serial
}

func (d *device) Close() error {
	return d.serial.Close()
}

func openDevice() (*device, error) {
	cfg, err := conf.Protocol()
	if err != nil {
		return nil, err
	}

	if conf.Port == "" {
		return nil, fmt.Errorf("No serial port given, set --port or SCI_PORT: %w", protocol.ErrConfig)
	}

	serial, err := transport.OpenSerial(transport.Options{
		Port:         conf.Port,
		BaudRate:     conf.Baud,
		ReadTimeout:  conf.Timeout,
		MaxFrameSize: cfg.MaxFrameSize,
		Trace:        trace,
		Log:          log.Named("serial"),
	})
	if err != nil {
		return nil, err
	}

	conn := client.New(serial, client.Options{
		Config:     cfg,
		FrameDelay: conf.FrameDelay,
		Log:        log.Named("client"),
	})

	return &device{Conn: conn, serial: serial}, nil
}

// withDevice runs fn against a freshly opened device and closes it after.
func withDevice(fn func(d *device) error) (err error) {
	d, err := openDevice()
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, d.Close())
	}()

	return fn(d)
}

func parseNumber(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("Failed to parse command number '%s': %w", s, protocol.ErrConfig)
	}

	return uint32(n), nil
}

// parseTypedArgs reads arguments of the form <type>:<value>, e.g. u8:1.
func parseTypedArgs(args []string) ([]protocol.Datatype, []protocol.Value, error) {
	var (
		types  []protocol.Datatype
		values []protocol.Value
	)

	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, nil, fmt.Errorf("Failed to parse argument '%s', expected <type>:<value>: %w", arg, protocol.ErrConfig)
		}

		d, err := protocol.ParseDatatype(parts[0])
		if err != nil {
			return nil, nil, err
		}

		v, err := protocol.ParseValue(parts[1])
		if err != nil {
			return nil, nil, err
		}

		types = append(types, d)
		values = append(values, v)
	}

	return types, values, nil
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"avrkit/config"
	"avrkit/logging"
)

const version = "0.3.0"

var (
	flagConfig    string
	flagDevice    string
	flagBaud      int
	flagLogLevel  string
	flagLogFormat string
	flagSim       bool

	cfg    config.Config
	logger *slog.Logger
)

// newRootCmd creates the root cobra command for avrkit.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "avrkit",
		Short: "Cooperative periodic task scheduler with a serial console",
		Long: `avrkit runs the run loop scheduler on the host. Tasks are added and
inspected from a line console on stdin/stdout or on a serial port.

Examples:
  # Console on the terminal, wall-clock timer
  avrkit run

  # Console on a UART, settings from a file
  avrkit run --config avrkit.yaml --device /dev/ttyUSB0`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			applyFlags(cmd)
			logger = logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&flagDevice, "device", "", "Serial console device (default: stdin/stdout)")
	root.PersistentFlags().IntVar(&flagBaud, "baud", 115200, "Serial console baud rate")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().BoolVar(&flagSim, "sim", false, "Use the simulated timer (logical time runs ahead of the wall clock)")

	root.AddCommand(
		newRunCmd(),
		newVersionCmd(),
	)

	return root
}

// applyFlags lets explicitly set flags override the configuration file
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Serial.Device = flagDevice
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = flagBaud
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = flagLogFormat
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the avrkit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "avrkit "+version)
		},
	}
}

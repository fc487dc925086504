package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"avrkit/core"
	"avrkit/host/serial"
	"avrkit/logging"
)

// simPace slows the simulated timer so an idle loop does not spin a core
const simPace = time.Millisecond

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and the command console",
		Args:  cobra.NoArgs,
		RunE:  runScheduler,
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	core.SetDebugWriter(logging.DebugWriter(logger))
	core.SetDebugEnabled(cfg.Log.Level == "debug")

	var (
		in  io.Reader = os.Stdin
		out io.Writer = os.Stdout
	)
	console := cfg.ConsoleConfig()
	if cfg.Serial.Device != "" {
		port, err := openConsolePort(cfg.SerialPort())
		if err != nil {
			return err
		}
		defer port.Close()
		in, out = port, port
		logger.Info("console on serial port", "device", cfg.Serial.Device, "baud", cfg.Serial.Baud)
	} else {
		// The terminal echoes and edits in cooked mode
		console.Echo = false
	}

	a := newApp(cfg.Runloop(), console, out, logger)

	var timer core.Timer = core.NewHostTimer(cfg.ClockHz)
	if flagSim {
		timer = &pacedSimTimer{SimTimer: core.NewSimTimer(), pace: simPace}
		logger.Info("using simulated timer")
	}

	go func() {
		err := serial.Pump(ctx, in, a.con)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("console receive stopped", "error", err)
		}
	}()

	logger.Info("run loop starting", "clock_hz", cfg.ClockHz, "max_tasks", cfg.MaxTasks)
	err := a.run(ctx, timer)
	logger.Info("run loop stopped", "uptime_ms", a.rl.UptimeMS())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openPort is replaced in tests
var openPort = serial.Open

// openConsolePort opens the console UART and discards input received before
// the run loop could read it.
func openConsolePort(sc *serial.Config) (serial.Port, error) {
	port, err := openPort(sc)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", sc.Device, err)
	}
	return port, nil
}

// pacedSimTimer yields briefly before each simulated sleep
type pacedSimTimer struct {
	*core.SimTimer
	pace time.Duration
}

func (p *pacedSimTimer) Sleep(done func() bool) {
	time.Sleep(p.pace)
	p.SimTimer.Sleep(done)
}
